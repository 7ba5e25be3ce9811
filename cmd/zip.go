package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var zipCmd = &cobra.Command{
	Use:     "zip",
	Aliases: []string{"package"},
	Short:   "Archive each built template directory",
	Long: `Write <name>.zip next to every directory in build/html. A directory that
fails to archive is reported and skipped; the others are still written.
Run build first.`,
	RunE: withApp(runZip),
}

func init() {
	rootCmd.AddCommand(zipCmd)
}

func runZip(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	res, err := orch.Package(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, archive := range res.Archives {
		fmt.Fprintln(out, filepath.ToSlash(archive))
	}
	for _, failure := range res.Failed {
		a.handler.Handle(ctx, failure)
	}
	fmt.Fprintf(out, "%d archives written, %d failed\n", len(res.Archives), len(res.Failed))
	return nil
}
