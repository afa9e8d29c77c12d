package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Stoky555/ownership-graph/internal/version"
)

var versionShort bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if versionShort {
			fmt.Fprintln(cmd.OutOrStdout(), version.Short())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "print only the version number")
}
