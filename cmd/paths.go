package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/conneroisu/mailwright/internal/paths"
)

var pathsCmd = &cobra.Command{
	Use:   "paths",
	Short: "Print the resolved source and output locations",
	Long: `Print every location the pipeline reads from or writes to for the selected
structure type. Useful when a template does not show up in the build.`,
	RunE: withApp(runPaths),
}

var pathsFormat string

func init() {
	rootCmd.AddCommand(pathsCmd)

	pathsCmd.Flags().StringVarP(&pathsFormat, "output", "o", "table", "output format (table, json, yaml)")
}

func runPaths(_ context.Context, cmd *cobra.Command, a *app, _ []string) error {
	if err := validateFormat(pathsFormat); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if pathsFormat != "table" {
		return writeStructured(out, pathsFormat, a.paths)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, row := range pathRows(a.paths) {
		fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	return w.Flush()
}

func pathRows(ps paths.PathSet) [][2]string {
	renderDir, renderExt := ps.RenderOutput()
	return [][2]string{
		{"structure", string(ps.StructureType)},
		{"env", string(ps.Env)},
		{"layouts", ps.Layouts},
		{"partials", ps.Partials},
		{"utils", ps.Utils},
		{"templates", joinGlobs(ps.TemplateGlobs)},
		{"preview", ps.Preview},
		{"images", joinGlobs(ps.Images)},
		{"data (shared)", ps.DataShared},
		{"data (per template)", ps.DataPerTemplate.String()},
		{"render output", renderDir + " (*" + renderExt + ")"},
		{"mjml source", ps.MJMLSource.String()},
		{"build output", ps.BuildOutput},
		{"zip output", ps.ZipOutput},
	}
}

func joinGlobs(globs []paths.Glob) string {
	return strings.Join(lo.Map(globs, func(g paths.Glob, _ int) string { return g.String() }), " ")
}
