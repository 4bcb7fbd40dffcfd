package main

import (
	"context"
	"fmt"

	"github.com/kalabox/email"
	"github.com/kalabox/email/awsses"
	"github.com/kalabox/email/config"
	"github.com/kalabox/email/gmail"
	"github.com/kalabox/email/mailgun"
	"github.com/kalabox/email/noop"
	"github.com/kalabox/email/smtp"
)

// buildProvider returns the provider selected by cfg and a close func for any
// resources it holds.
func buildProvider(ctx context.Context, cfg config.Config) (email.Provider, func() error, error) {
	switch cfg.Provider {
	case config.ProviderMailgun, "":
		s, err := mailgun.New(cfg.Mailgun.Credentials, mailgun.Options{APIBase: cfg.Mailgun.BaseURL})
		if err != nil {
			return nil, nil, err
		}
		return s, closeNothing, nil
	case config.ProviderSES:
		s, err := awsses.NewFromConfig(ctx, cfg.SES.Region)
		if err != nil {
			return nil, nil, err
		}
		return s, closeNothing, nil
	case config.ProviderGmail:
		s, err := gmail.NewGmailSenderFromFile(ctx, cfg.Gmail.CredentialsFile, cfg.Gmail.User)
		if err != nil {
			return nil, nil, err
		}
		return s, closeNothing, nil
	case config.ProviderSMTP:
		s, err := smtp.NewSender(cfg.SMTP)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case config.ProviderNoop:
		return noop.NewSender(), closeNothing, nil
	default:
		return nil, nil, email.NewConfigError(fmt.Sprintf("unknown email provider %q", cfg.Provider), nil)
	}
}

func closeNothing() error { return nil }
