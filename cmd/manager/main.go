package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var companionURL string

var rootCmd = &cobra.Command{
	Use:   "manager",
	Short: "Operator tool for the wellness services",
	Long: `Operator tool for the wellness services.

Available commands:
  user    - manage user accounts
  chat    - talk to the companion from a terminal
  history - list session dates of a user
  report  - download a daily or weekly PDF report`,
	SilenceUsage: true,
}

func init() {
	def := os.Getenv("COMPANION_URL")
	if def == "" {
		def = "http://localhost:8000"
	}
	rootCmd.PersistentFlags().StringVar(&companionURL, "companion", def, "companion service address")

	rootCmd.AddCommand(userCmd, chatCmd, historyCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
