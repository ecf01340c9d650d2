// Atoll - declarative DigitalOcean resource reconciliation.
// Declare. Resolve. Apply.
package main

func main() {
	Execute()
}
