package types

import "fmt"

// APIError is the uniform shape every backend failure is reduced to
// before it reaches a caller.
type APIError struct {
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
	Reason     string `json:"reason"`
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Reason)
}

// OpResult is what one resource operation reports back.
//
// Changed may be true alongside a failure: a mutation that was accepted
// by the backend but never confirmed terminal is "happened, unconfirmed",
// never "nothing happened".
type OpResult struct {
	Changed  bool      `json:"changed"`
	Msg      string    `json:"msg,omitempty"`
	Resource *Resource `json:"resource,omitempty"`
	Err      *APIError `json:"error,omitempty"`
}

// Failed reports whether the operation ended in error.
func (r OpResult) Failed() bool {
	return r.Err != nil
}
