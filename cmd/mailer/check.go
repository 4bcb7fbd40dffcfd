package main

import (
	"fmt"
	"io"

	"github.com/gookit/color"
	"github.com/kalabox/email/config"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the mailer configuration",
	Long: `Load the config file and environment, print the settings the selected
provider uses (secrets masked) and report whether they are complete.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, cfg, err := readConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Config file: %s\n", env.ConfigPath)
		printSettings(out, cfg)
		fmt.Fprintln(out)

		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(out, color.Red.Sprint("✗ ")+err.Error())
			return err
		}

		fmt.Fprintln(out, color.Green.Sprint("✓ configuration is complete"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func printSettings(w io.Writer, cfg config.Config) {
	fmt.Fprintf(w, "Provider:    %s\n", providerLabel(cfg.Provider))

	switch cfg.Provider {
	case config.ProviderMailgun, "":
		fmt.Fprintf(w, "  apiKey:    %s\n", maskPassword(cfg.Mailgun.APIKey))
		fmt.Fprintf(w, "  domain:    %s\n", maskIfEmpty(cfg.Mailgun.Domain))
		if cfg.Mailgun.BaseURL != "" {
			fmt.Fprintf(w, "  baseURL:   %s\n", cfg.Mailgun.BaseURL)
		}
	case config.ProviderSES:
		fmt.Fprintf(w, "  region:    %s\n", maskIfEmpty(cfg.SES.Region))
	case config.ProviderGmail:
		fmt.Fprintf(w, "  credentialsFile: %s\n", maskIfEmpty(cfg.Gmail.CredentialsFile))
		fmt.Fprintf(w, "  user:      %s\n", maskIfEmpty(cfg.Gmail.User))
	case config.ProviderSMTP:
		fmt.Fprintf(w, "  host:      %s\n", maskIfEmpty(cfg.SMTP.Host))
		fmt.Fprintf(w, "  port:      %d\n", cfg.SMTP.Port)
		fmt.Fprintf(w, "  username:  %s\n", maskIfEmpty(cfg.SMTP.Username))
		fmt.Fprintf(w, "  password:  %s\n", maskPassword(cfg.SMTP.Password))
		fmt.Fprintf(w, "  tls:       %t\n", cfg.SMTP.TLS)
	}

	fmt.Fprintf(w, "Lists:       %d\n", len(cfg.Lists))
}

// maskIfEmpty returns s or "(not set)".
func maskIfEmpty(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// maskPassword keeps the first and last two characters of a secret.
func maskPassword(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
