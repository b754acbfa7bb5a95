package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "development"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shopd %s\n", AppVersion)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Println()

		// Report key presence without leaking the keys themselves.
		for _, name := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "TOSS_SECRET_KEY"} {
			if os.Getenv(name) != "" {
				fmt.Printf("  %s: configured\n", name)
			} else {
				fmt.Printf("  %s: not set\n", name)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
