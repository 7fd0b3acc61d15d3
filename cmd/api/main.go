package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "youthportal-api",
		Short: "Youth Portal admin API",
		Long: `Youth Portal admin API.

Serves the admin panel session endpoints and the bearer-token API, and
provides maintenance commands for the database and user accounts.
Configuration is read from YOUTHPORTAL_* environment variables and an
optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		userCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
