package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	in "siem-recorder/internal"
)

// Build information. Populated at build time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("siemctl %s (%s) built at %s with %s\n", Version, Commit, BuildTime, runtime.Version())
		fmt.Printf("host %s, %s\n", in.GetHostname(), in.GetOSVersion())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
