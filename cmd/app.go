package cmd

import (
	"context"
	"fmt"
	"os"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/mailwright/internal/archive"
	"github.com/conneroisu/mailwright/internal/config"
	"github.com/conneroisu/mailwright/internal/data"
	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/images"
	"github.com/conneroisu/mailwright/internal/logging"
	"github.com/conneroisu/mailwright/internal/mjml"
	"github.com/conneroisu/mailwright/internal/paths"
	"github.com/conneroisu/mailwright/internal/pipeline"
	"github.com/conneroisu/mailwright/internal/renderer"
	"github.com/conneroisu/mailwright/internal/version"
)

// app holds what every pipeline command needs once configuration is loaded.
type app struct {
	cfg     *config.Config
	paths   paths.PathSet
	secrets config.Secrets
	logger  logging.Logger
	handler *errors.ErrorHandler
	sentry  *errors.SentryNotifier
}

// handledError marks an error that has already been logged.
type handledError struct {
	err error
}

func (e *handledError) Error() string { return e.err.Error() }
func (e *handledError) Unwrap() error { return e.err }

func bindFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func loadApp() (*app, error) {
	if initErr != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, initErr.Error())
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error()).WithPath("log.level")
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})

	secrets, err := config.LoadSecrets()
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error())
	}

	sentry, err := errors.NewSentryNotifier(secrets.SentryDSN, string(cfg.Build.Env), version.GetVersion())
	if err != nil {
		logger.Warn(context.Background(), err, "Error reporting disabled")
	}
	handler := errors.NewErrorHandler(logger, nil)
	if sentry != nil {
		handler = errors.NewErrorHandler(logger, sentry)
	}

	ps, err := paths.Resolve(paths.OptionsFrom(cfg))
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		paths:   ps,
		secrets: secrets,
		logger:  logger,
		handler: handler,
		sentry:  sentry,
	}, nil
}

// orchestrator wires the stage collaborators for this run.
func (a *app) orchestrator() (*pipeline.Orchestrator, error) {
	loader, err := data.NewLoader(a.logger, data.WithConcurrency(a.cfg.Build.Concurrency))
	if err != nil {
		return nil, err
	}

	compiler := mjml.NewCLICompiler(a.cfg.MJML)
	if a.paths.StructureType == config.StructureResponsive {
		if err := compiler.Available(); err != nil {
			a.logger.Warn(context.Background(), err, "MJML compiler unavailable, compile-mjml will fail")
		}
	}

	render := renderer.NewTemplateRenderer(a.paths, a.logger,
		renderer.WithColumns(a.cfg.Build.PreviewColumns),
		renderer.WithFuncs(template.FuncMap{
			"buildEnv":      func() string { return string(a.paths.Env) },
			"structureType": func() string { return string(a.paths.StructureType) },
		}),
	)

	return pipeline.New(a.paths, pipeline.Deps{
		Loader:   loader,
		Renderer: render,
		Compiler: compiler,
		Images:   images.NewOptimizer(images.OptionsFrom(a.cfg), a.logger),
		Packager: archive.NewPackager(archive.ZipArchiver{}, a.logger, a.cfg.Build.Concurrency),
	}, a.logger), nil
}

// withApp adapts fn to cobra's RunE: it loads the configuration, runs fn and
// reports a failure through the error handler exactly once.
func withApp(fn func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := loadApp()
		if err != nil {
			errors.NewErrorHandler(logging.NewLogger(nil), nil).Handle(ctx, err)
			return &handledError{err: err}
		}
		if a.sentry != nil {
			defer a.sentry.Flush()
		}

		if err := fn(ctx, cmd, a, args); err != nil {
			a.handler.Handle(ctx, err)
			return &handledError{err: err}
		}
		return nil
	}
}
