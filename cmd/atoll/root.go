package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	flagConfig string
	flagToken  string
	flagDebug  bool

	rootCmd = &cobra.Command{
		Use:   "atoll",
		Short: "Declarative DigitalOcean resource reconciliation",
		Long: `Atoll - Declarative DigitalOcean resource reconciliation

Atoll reads a manifest of resources that should exist and reconciles
your DigitalOcean account toward it: missing resources are created,
drifted ones updated, resources declared absent removed. Ambiguous
matches halt the run instead of guessing.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Atoll {{.Version}} - DigitalOcean reconciliation
`)

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "atoll.yaml", "Manifest file path")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "API token (defaults to environment)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
}

func logLevel() zerolog.Level {
	if flagDebug {
		return zerolog.DebugLevel
	}
	return zerolog.InfoLevel
}
