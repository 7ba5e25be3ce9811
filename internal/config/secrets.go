package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Secrets holds credentials that never live in the config file.
type Secrets struct {
	SMTPHost     string `env:"SMTP_HOST" envDefault:"sandbox.smtp.mailtrap.io"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"2525"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	MailgunDomain  string `env:"MAILGUN_DOMAIN"`
	MailgunAPIKey  string `env:"MAILGUN_API_KEY"`
	MailgunAPIBase string `env:"MAILGUN_API_BASE"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`

	SentryDSN string `env:"SENTRY_DSN"`
}

// LoadSecrets loads the given dotenv files (default .env) into the process
// environment and parses Secrets from it. Missing dotenv files are ignored.
func LoadSecrets(envFiles ...string) (Secrets, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Secrets{}, fmt.Errorf("failed to load env file: %w", err)
	}

	var s Secrets
	if err := env.Parse(&s); err != nil {
		return Secrets{}, fmt.Errorf("failed to parse secrets from environment: %w", err)
	}
	return s, nil
}
