// Command codr is a thin client: it mints a job token and drives
// /ws/execute to submit code and stream its output, mirroring the teacher
// CLI's cobra command shape while targeting this system's job-token
// authenticated WebSocket flow instead of the teacher's synchronous
// /api/v2/execute endpoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "codr",
		Short: "codr CLI - submit code for sandboxed execution",
		Long:  `A command line client for the codr remote code execution service.`,
	}

	rootCmd.PersistentFlags().StringP("url", "u", "http://localhost:8000", "codr gateway URL")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")

	rootCmd.AddCommand(
		NewExecuteCommand(),
		NewListCommand(),
		NewVersionCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
