package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailwright/internal/catalog"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l", "ls"},
	Short:   "List the template catalog",
	Long: `List the template directories the preview index is built from, with the
title shown for each.

Examples:
  mailwright list -s standard              # Table
  mailwright list -s responsive -o json    # JSON for scripts`,
	RunE: withApp(runList),
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "output", "o", "table", "output format (table, json, yaml)")
}

func runList(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	if err := validateFormat(listFormat); err != nil {
		return err
	}

	entries := catalog.Scan(ctx, a.paths.Templates, a.logger)
	out := cmd.OutOrStdout()

	if listFormat != "table" {
		return writeStructured(out, listFormat, entries)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TITLE\tDIRECTORY")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\n", e.Title, e.DirName)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d templates in %s\n", len(entries), a.paths.Templates)
	return nil
}
