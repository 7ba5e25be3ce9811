package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailwright/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the mailwright version, commit, build time, Go version and platform.

Examples:
  mailwright version              # Detailed text
  mailwright version --short      # One line
  mailwright version -o json      # JSON`,
	RunE: runVersion,
}

var (
	versionFormat string
	versionShort  bool
)

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "output", "o", "text", "output format (text, json, yaml)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "show the short version only")
}

func runVersion(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	switch versionFormat {
	case "text":
		if versionShort {
			fmt.Fprintln(out, version.GetShortVersion())
			return nil
		}
		fmt.Fprintln(out, version.GetDetailedVersion())
		return nil
	case "json", "yaml":
		return writeStructured(out, versionFormat, version.GetBuildInfo())
	default:
		return fmt.Errorf("unsupported format %q (supported: text, json, yaml)", versionFormat)
	}
}
