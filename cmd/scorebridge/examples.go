package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var examplesCmd = &cobra.Command{
	Use:   "examples",
	Short: "List the bundled examples",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		src, err := app.Playground.Examples()
		if err != nil {
			return err
		}
		list, err := src.List(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tFOCUS NODE")
		for _, ex := range list {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", ex.ID, ex.Name, ex.FocusNode)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(examplesCmd)
}
