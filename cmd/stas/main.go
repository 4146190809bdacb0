// Command stas solves, repairs, and generates simultaneous task-allocation
// and scheduling problem instances (spec §6).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes per spec §6.
const (
	exitSolved      = 0
	exitUnsolvable  = 1
	exitTimeout     = 2
	exitInvalidInput = 3
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "stas:", err)
		if code, ok := err.(exitCoder); ok {
			os.Exit(code.ExitCode())
		}
		os.Exit(exitInvalidInput)
	}
}

// exitCoder lets a subcommand's error carry a specific process exit code
// through cobra's generic RunE error path.
type exitCoder interface {
	error
	ExitCode() int
}

type codedError struct {
	code int
	err  error
}

func (c codedError) Error() string { return c.err.Error() }
func (c codedError) ExitCode() int { return c.code }
func (c codedError) Unwrap() error { return c.err }

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "stas",
		Short:         "Simultaneous task allocation and scheduling for heterogeneous robot teams",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "TOML configuration file")

	root.AddCommand(newSolveCmd(&configPath))
	root.AddCommand(newRepairCmd(&configPath))
	root.AddCommand(newGenerateCmd())
	return root
}
