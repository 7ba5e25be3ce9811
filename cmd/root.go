// Package cmd provides the mailwright command-line interface.
//
// Configuration is layered, highest priority first:
//  1. command-line flags (--structure-type, --env, --port, ...)
//  2. environment variables, MAILWRIGHT_<SECTION>_<KEY>, e.g. MAILWRIGHT_BUILD_ENV
//  3. the config file named by --config or MAILWRIGHT_CONFIG_FILE
//  4. .mailwright.yml in the working directory
//
// Credentials for mail transports and Sentry are read from the environment
// (optionally through a .env file) and never from the config file.
package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/mailwright/internal/config"
)

var (
	cfgFile       string
	initErr       error
	structureFlag config.StructureType
	envFlag       config.Env
)

var rootCmd = &cobra.Command{
	Use:   "mailwright",
	Short: "Build, preview and send HTML email templates",
	Long: `mailwright renders email templates from layouts, partials and per-template
data, compiles MJML for responsive templates, and serves the result with live
reload while you edit.

Quick Start:
  mailwright build -s standard          Render every template once
  mailwright dev -s responsive          Build, serve on :9000 and rebuild on change
  mailwright zip -s standard            Archive each built template
  mailwright notify -s standard --folder welcome
                                        Mail a built template to the test inbox
  mailwright list -s standard           Show the template catalog`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		var handled *handledError
		if !stderrors.As(err, &handled) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .mailwright.yml, can also use MAILWRIGHT_CONFIG_FILE env var)")
	flags.VarP(&structureFlag, "structure-type", "s", "template family: standard or responsive")
	flags.VarP(&envFlag, "env", "e", "dev or prod (prod optimizes images)")
	flags.String("root", "", "project root containing src/ and build/")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")

	bindFlag("build.structure_type", flags.Lookup("structure-type"))
	bindFlag("build.env", flags.Lookup("env"))
	bindFlag("build.root", flags.Lookup("root"))
	bindFlag("log.level", flags.Lookup("log-level"))
	bindFlag("log.format", flags.Lookup("log-format"))
}

// initConfig wires the global viper instance to its sources. Errors are kept
// until a command loads the configuration.
func initConfig() {
	used, err := config.Init(viper.GetViper(), cfgFile)
	if err != nil {
		initErr = fmt.Errorf("failed to read config file: %w", err)
		return
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}
