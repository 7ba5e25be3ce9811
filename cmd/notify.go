package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/mailwright/internal/errors"
	"github.com/conneroisu/mailwright/internal/notify"
)

var notifyCmd = &cobra.Command{
	Use:     "notify [folder]",
	Aliases: []string{"send"},
	Short:   "Mail a built template to the test inbox",
	Long: `Send build/html/<folder>/index.html to the configured test recipient. The
transport is verified first; nothing is sent if verification fails.

Transports: smtp (SMTP_HOST, SMTP_PORT, SMTP_USERNAME, SMTP_PASSWORD),
mailgun (MAILGUN_DOMAIN, MAILGUN_API_KEY), postmark (POSTMARK_SERVER_TOKEN),
dev (writes to notify.outbox_dir).

Examples:
  mailwright notify -s standard --folder welcome
  mailwright notify -s standard welcome --transport dev`,
	Args: cobra.MaximumNArgs(1),
	RunE: withApp(runNotify),
}

func init() {
	rootCmd.AddCommand(notifyCmd)

	notifyCmd.Flags().StringP("folder", "f", "", "template directory under build/html")
	notifyCmd.Flags().String("transport", "", "smtp, mailgun, postmark or dev")
	notifyCmd.Flags().String("to", "", "recipient address")

	bindFlag("build.folder", notifyCmd.Flags().Lookup("folder"))
	bindFlag("notify.transport", notifyCmd.Flags().Lookup("transport"))
	bindFlag("notify.to", notifyCmd.Flags().Lookup("to"))
}

func runNotify(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
	folder := a.cfg.Build.Folder
	if len(args) == 1 {
		folder = args[0]
	}
	if folder == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"a template folder is required (--folder or argument)").WithPath("build.folder")
	}

	transport, err := notify.NewTransport(a.cfg.Notify, a.secrets)
	if err != nil {
		return err
	}

	n := notify.NewNotifier(transport, notify.OptionsFrom(a.cfg.Notify, a.paths.BuildOutput), a.logger)
	if err := n.Notify(ctx, folder); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Sent %s to %s via %s\n", folder, a.cfg.Notify.To, transport.Name())
	return nil
}
