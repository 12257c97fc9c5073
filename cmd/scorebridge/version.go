package main

import (
	"fmt"

	"github.com/aretw0/scorebridge"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of scorebridge",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scorebridge version %s\n", scorebridge.Release())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
