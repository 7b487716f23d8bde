package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Build metadata, overridable at link time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the pmtailor version, git commit, and build date",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pmtailor version %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}
