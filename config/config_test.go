package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kalabox/email"
	"github.com/kalabox/email/logger"
	"github.com/kalabox/email/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"mailgun": {"apiKey": "key-123", "domain": "mg.example.com"},
		"lists": {"test": ["bob@barker.com", "drew@carey.com"], "empty": []}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderMailgun, cfg.Provider)
	assert.Equal(t, "key-123", cfg.Mailgun.APIKey)
	assert.Equal(t, "mg.example.com", cfg.Mailgun.Domain)
	require.NoError(t, cfg.Validate())

	dir := cfg.Directory()
	addrs, ok := dir.Lookup("test")
	require.True(t, ok)
	assert.Equal(t, []string{"bob@barker.com", "drew@carey.com"}, addrs)

	addrs, ok = dir.Lookup("empty")
	assert.True(t, ok)
	assert.Empty(t, addrs)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
provider: smtp
smtp:
  host: smtp.example.com
  username: mailer
lists:
  ops:
    - ops@example.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderSMTP, cfg.Provider)
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.TLS)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"ops"}, cfg.Directory().Names())
}

func TestLoad_ListNamesKeepCase(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{name: "json", file: "config.json", content: `{"provider":"noop","lists":{"DevTeam":["a@x","b@x"]}}`},
		{name: "yaml", file: "config.yaml", content: "provider: noop\nlists:\n  DevTeam:\n    - a@x\n    - b@x\n"},
		{name: "toml", file: "config.toml", content: "provider = \"noop\"\n[lists]\nDevTeam = [\"a@x\", \"b@x\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, []string{"DevTeam"}, cfg.Directory().Names())

			provider := noop.NewSender()
			mailer, err := email.NewMailer(provider, cfg.Directory(), email.WithLogger(logger.NewNoop()))
			require.NoError(t, err)

			err = mailer.Send(context.Background(), email.Message{
				From:    "f@x",
				To:      email.To("@DevTeam"),
				Subject: "s",
				Text:    "t",
			})
			require.NoError(t, err)

			sent := provider.Sent()
			require.Len(t, sent, 1)
			assert.Equal(t, "a@x, b@x", sent[0].To)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.True(t, email.IsReason(err, email.REASON_CONFIG_ERROR))
}

func TestLoad_Malformed(t *testing.T) {
	path := writeFile(t, "config.json", `{"mailgun": `)

	_, err := Load(path)
	assert.True(t, email.IsReason(err, email.REASON_CONFIG_ERROR))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "mailgun missing api key", cfg: Config{Provider: ProviderMailgun, Mailgun: MailgunConfig{Credentials: email.Credentials{Domain: "d"}}}, wantErr: true},
		{name: "mailgun missing domain", cfg: Config{Provider: ProviderMailgun, Mailgun: MailgunConfig{Credentials: email.Credentials{APIKey: "k"}}}, wantErr: true},
		{name: "default provider is mailgun", cfg: Config{}, wantErr: true},
		{name: "mailgun ok", cfg: Config{Provider: ProviderMailgun, Mailgun: MailgunConfig{Credentials: email.Credentials{APIKey: "k", Domain: "d"}}}},
		{name: "ses missing region", cfg: Config{Provider: ProviderSES}, wantErr: true},
		{name: "ses ok", cfg: Config{Provider: ProviderSES, SES: SESConfig{Region: "us-east-1"}}},
		{name: "gmail missing file", cfg: Config{Provider: ProviderGmail, Gmail: GmailConfig{User: "u@x"}}, wantErr: true},
		{name: "gmail missing user", cfg: Config{Provider: ProviderGmail, Gmail: GmailConfig{CredentialsFile: "c.json"}}, wantErr: true},
		{name: "smtp missing host", cfg: Config{Provider: ProviderSMTP}, wantErr: true},
		{name: "noop", cfg: Config{Provider: ProviderNoop}},
		{name: "unknown provider", cfg: Config{Provider: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.True(t, email.IsReason(err, email.REASON_CONFIG_ERROR), "got %v", err)
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	path := writeFile(t, "config.json", `{"mailgun": {"domain": "mg.example.com"}}`)

	_, err := LoadFromEnv(Env{ConfigPath: path})
	assert.True(t, email.IsReason(err, email.REASON_CONFIG_ERROR))

	cfg, err := LoadFromEnv(Env{ConfigPath: path, APIKey: "from-env"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Mailgun.APIKey)

	cfg, err = LoadFromEnv(Env{ConfigPath: path, Provider: ProviderNoop})
	require.NoError(t, err)
	assert.Equal(t, ProviderNoop, cfg.Provider)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("MAILER_CONFIG", "/etc/mailer.yaml")
	t.Setenv("MAILER_PROVIDER", "ses")
	t.Setenv("LOG_LEVEL", "debug")

	env, err := LoadEnv()
	require.NoError(t, err)

	assert.Equal(t, "/etc/mailer.yaml", env.ConfigPath)
	assert.Equal(t, ProviderSES, env.Provider)
	assert.Equal(t, "debug", string(env.Log.Level))
	assert.Equal(t, "std_json", string(env.Log.Provider))
}
