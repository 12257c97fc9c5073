package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var savesCmd = &cobra.Command{
	Use:   "saves",
	Short: "Manage saved configurations",
}

var savesListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List saved configurations, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		list, err := app.Playground.Saves().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved configurations.")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSAVED\tFOCUS NODE")
		for _, s := range list {
			saved := time.UnixMilli(s.Timestamp).Local().Format(time.DateTime)
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Name, saved, s.FocusNode)
		}
		return tw.Flush()
	},
}

var savesInspectCmd = &cobra.Command{
	Use:   "inspect [id]",
	Short: "Print a saved configuration as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		s, err := app.Playground.Saves().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	},
}

var savesRemoveCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a saved configuration",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Playground.Saves().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(savesCmd)
	savesCmd.AddCommand(savesListCmd)
	savesCmd.AddCommand(savesInspectCmd)
	savesCmd.AddCommand(savesRemoveCmd)
}
