package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailwright/internal/pipeline"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Render every template into build/",
	Long: `Run the build sequence once: clean, load data, scan the catalog, render the
preview index and the templates, compile MJML (responsive only) and copy or
optimize images (prod).

Examples:
  mailwright build -s standard              # Development build
  mailwright build -s responsive -e prod    # Production build with image optimization
  mailwright build -s standard --plan       # Print the stages without running them`,
	RunE: withApp(runBuild),
}

var buildPlan bool

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().BoolVar(&buildPlan, "plan", false, "print the stage sequence and exit")
}

func runBuild(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	seq := orch.BuildSequence()
	out := cmd.OutOrStdout()
	if buildPlan {
		fmt.Fprintf(out, "%s: %s\n", seq.Name, strings.Join(seq.Names(), " -> "))
		return nil
	}

	if err := orch.Build(ctx); err != nil {
		return err
	}

	printBuildSummary(cmd, seq, orch.Metrics(), orch.State())
	return nil
}

func printBuildSummary(cmd *cobra.Command, seq pipeline.Sequence, m pipeline.MetricsSnapshot, st pipeline.State) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Built %d templates (%d data entries) in %s\n",
		len(st.Catalog), len(st.Table), m.TotalTime.Round(time.Millisecond))
	for _, name := range seq.Names() {
		fmt.Fprintf(out, "  %-18s %s\n", name, m.LastStageTimes[name].Round(time.Millisecond))
	}
	fmt.Fprintf(out, "Build ID: %s\n", st.BuildID)
}
