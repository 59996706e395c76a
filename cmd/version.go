package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print antikythera version and supported migration dialects",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("antikythera %s (commit: %s, built: %s)\n\n", Version, CommitSHA, BuildDate)
		fmt.Println("Supported changeset dialects:")
		fmt.Println("  • PostgreSQL (CREATE INDEX CONCURRENTLY)")
		fmt.Println("  • Oracle (CREATE INDEX ... ONLINE)")
		fmt.Println("  • MySQL")
		fmt.Println("  • H2")
		fmt.Println()
		fmt.Println("Changesets target Liquibase 4.x changelog XML.")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
