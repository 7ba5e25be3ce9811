package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailwright/internal/devloop"
	"github.com/conneroisu/mailwright/internal/pipeline"
	"github.com/conneroisu/mailwright/internal/server"
)

var devCmd = &cobra.Command{
	Use:     "dev",
	Aliases: []string{"serve", "s"},
	Short:   "Build, serve with live reload and rebuild on change",
	Long: `Run the build once, then serve build/html and watch layouts, partials, utils,
templates and the shared data document. Every change triggers a rebuild;
connected browsers reload when it succeeds.

Examples:
  mailwright dev -s standard                # Serve on localhost:9000
  mailwright dev -s responsive --port 8080  # Custom port
  mailwright dev -s standard --zip          # Also archive after the initial build`,
	RunE: withApp(runDev),
}

var devZip bool

func init() {
	rootCmd.AddCommand(devCmd)

	devCmd.Flags().String("host", "", "host to bind to (default localhost)")
	devCmd.Flags().IntP("port", "p", 0, "port to serve on (default 9000)")
	devCmd.Flags().BoolVar(&devZip, "zip", false, "package the output after the initial build")

	bindFlag("server.host", devCmd.Flags().Lookup("host"))
	bindFlag("server.port", devCmd.Flags().Lookup("port"))
}

func runDev(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	orch.AddCallback(func(r pipeline.RunResult) {
		if r.Sequence == pipeline.SequencePackage {
			return
		}
		if r.Err != nil {
			fmt.Fprintf(out, "Build failed after %s: %v\n", r.Duration.Round(time.Millisecond), r.Err)
			return
		}
		fmt.Fprintf(out, "Built in %s (%s)\n", r.Duration.Round(time.Millisecond), r.BuildID)
	})

	srv := server.New(server.OptionsFrom(a.cfg, a.paths.BuildOutput), a.logger)
	fmt.Fprintf(out, "Preview at %s (Ctrl+C to stop)\n", srv.URL())

	session := &devloop.Session{
		Paths:    a.paths,
		Builder:  orch,
		Server:   srv,
		Debounce: a.cfg.Watch.Debounce,
		Zip:      devZip,
		Logger:   a.logger,
	}
	return session.Run(ctx)
}
