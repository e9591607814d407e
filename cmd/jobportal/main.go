package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "jobportal",
	Short: "Job portal server and command-line client",
	Long: `jobportal serves the job portal's listings, forms and career assistant
over a local HTTP API and an MCP stdio server, and talks to a running
server from the command line.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("jobportal %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("token", "", "session token for operator views (default $JOBPORTAL_TOKEN)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(countsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(operatorsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
