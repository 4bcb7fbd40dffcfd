package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kalabox/email"
	"github.com/kalabox/email/config"
	"github.com/kalabox/email/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type sendFlags struct {
	from     string
	to       []string
	subject  string
	text     string
	extra    []string
	jsonPath string
	dryRun   bool
}

var sendOpts sendFlags

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message",
	Long: `Send a message built from flags or read as JSON from a file (or - for stdin).
Recipients starting with @ are expanded from the configured lists.`,
	Example: `  mailer send --from drew@carey.com --to @test --subject hi --text hello
  mailer send --json message.json
  echo '{"from":"a@x","to":"@team","subject":"s","text":"t"}' | mailer send --json -`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		msg, err := sendOpts.message(cmd.InOrStdin())
		if err != nil {
			return err
		}

		if sendOpts.dryRun {
			providerName = string(config.ProviderNoop)
		}

		cfg, l, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := logger.NewContext(cmd.Context(), l)

		provider, closeProvider, err := buildProvider(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() {
			if err := closeProvider(); err != nil {
				logger.FromContextWithErr(ctx, err).Warn("failed to close provider")
			}
		}()

		mailer, err := email.NewMailer(provider, cfg.Directory(), email.WithLogger(l))
		if err != nil {
			return err
		}

		if err := mailer.Send(ctx, msg); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Sent %q via %s\n", msg.Subject, providerLabel(cfg.Provider))
		return nil
	},
}

func init() {
	f := sendCmd.Flags()
	f.StringVar(&sendOpts.from, "from", "", "sender address")
	f.StringArrayVar(&sendOpts.to, "to", nil, "recipient address or @list (repeatable)")
	f.StringVar(&sendOpts.subject, "subject", "", "message subject")
	f.StringVar(&sendOpts.text, "text", "", "plain text body")
	f.StringArrayVar(&sendOpts.extra, "extra", nil, "provider option as key=value, e.g. html=<b>hi</b> or o:tag=news (repeatable)")
	f.StringVar(&sendOpts.jsonPath, "json", "", "read the message as JSON from a file, - for stdin")
	f.BoolVar(&sendOpts.dryRun, "dry-run", false, "resolve and log the message without sending it")

	sendCmd.MarkFlagsMutuallyExclusive("json", "from")
	sendCmd.MarkFlagsMutuallyExclusive("json", "to")

	rootCmd.AddCommand(sendCmd)
}

// message builds the message from --json when given, from the other flags
// otherwise.
func (f sendFlags) message(stdin io.Reader) (email.Message, error) {
	if f.jsonPath != "" {
		data, err := readInput(f.jsonPath, stdin)
		if err != nil {
			return email.Message{}, err
		}
		return email.ParseMessage(data)
	}

	extra, err := parseExtras(f.extra)
	if err != nil {
		return email.Message{}, err
	}

	return email.Message{
		From:    f.from,
		To:      email.To(f.to...),
		Subject: f.subject,
		Text:    f.text,
		Extra:   extra,
	}, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		return data, errors.Wrap(err, "read stdin")
	}
	data, err := os.ReadFile(path)
	return data, errors.Wrapf(err, "read %s", path)
}

// parseExtras turns key=value pairs into the message's extra fields.
func parseExtras(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	extra := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --extra %q, want key=value", p)
		}
		extra[k] = v
	}
	return extra, nil
}

func providerLabel(p config.Provider) string {
	if p == "" {
		return string(config.ProviderMailgun)
	}
	return string(p)
}
