// Package main is the entry point for the sqlmatch CLI binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sqlmatch",
		Short:         "Semantic equivalence scoring for SQL predictions",
		Long:          "Grades predicted SQL queries against gold queries by comparing their canonical structure.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newEvaluateCmd())
	rootCmd.AddCommand(newParseCmd())

	return rootCmd
}
