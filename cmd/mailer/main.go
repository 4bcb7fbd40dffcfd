package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kalabox/email/config"
	"github.com/kalabox/email/logger"
	"github.com/spf13/cobra"
)

var (
	configPath   string
	providerName string
)

var rootCmd = &cobra.Command{
	Use:   "mailer",
	Short: "Send email through the configured provider",
	Long: `mailer validates an outbound message, expands @list recipients from the
configured lists and hands the result to the configured email provider
(mailgun, ses, gmail, smtp or noop).`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $MAILER_CONFIG or config.json)")
	rootCmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "", "override the configured provider")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readConfig loads env and file settings without validating them.
func readConfig() (config.Env, config.Config, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return config.Env{}, config.Config{}, err
	}
	if configPath != "" {
		env.ConfigPath = configPath
	}
	if providerName != "" {
		env.Provider = config.Provider(providerName)
	}

	cfg, err := config.Load(env.ConfigPath)
	if err != nil {
		return env, config.Config{}, err
	}
	cfg.ApplyEnv(env)

	return env, cfg, nil
}

// loadConfig is readConfig plus validation and the process logger.
func loadConfig() (config.Config, *slog.Logger, error) {
	env, cfg, err := readConfig()
	if err != nil {
		return config.Config{}, nil, err
	}

	l := logger.InitDefault(env.Log)

	if err := cfg.Validate(); err != nil {
		return config.Config{}, l, err
	}

	return cfg, l, nil
}
