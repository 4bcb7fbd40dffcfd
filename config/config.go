// Package config loads the mailer configuration: provider credentials and
// the recipient list directory, from a config file overlaid with environment
// variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kalabox/email"
	"github.com/kalabox/email/logger"
	"github.com/kalabox/email/smtp"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

const DefaultEnvFile = ".env"

type Provider string

const (
	ProviderMailgun Provider = "mailgun"
	ProviderSES     Provider = "ses"
	ProviderGmail   Provider = "gmail"
	ProviderSMTP    Provider = "smtp"
	ProviderNoop    Provider = "noop"
)

// Env holds the process level settings.
type Env struct {
	ConfigPath string   `envconfig:"MAILER_CONFIG" default:"config.json"`
	Provider   Provider `envconfig:"MAILER_PROVIDER"`
	APIKey     string   `envconfig:"MAILGUN_API_KEY"`
	Domain     string   `envconfig:"MAILGUN_DOMAIN"`
	Log        logger.Config
}

type MailgunConfig struct {
	email.Credentials `mapstructure:",squash"`
	BaseURL           string `mapstructure:"baseURL"`
}

type SESConfig struct {
	Region string `mapstructure:"region"`
}

type GmailConfig struct {
	CredentialsFile string `mapstructure:"credentialsFile"`
	User            string `mapstructure:"user"`
}

type Config struct {
	Provider Provider            `mapstructure:"provider"`
	Mailgun  MailgunConfig       `mapstructure:"mailgun"`
	SES      SESConfig           `mapstructure:"ses"`
	Gmail    GmailConfig         `mapstructure:"gmail"`
	SMTP     smtp.Config         `mapstructure:"smtp"`
	Lists    map[string][]string `mapstructure:"lists"`
}

// LoadEnv reads the optional .env file and the process environment.
func LoadEnv() (Env, error) {
	// .env is optional
	_ = godotenv.Load(DefaultEnvFile)

	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Env{}, email.NewConfigError("invalid environment", errors.Wrap(err, "failed to envconfig.Process"))
	}

	return env, nil
}

// Load reads the config file at path; the format follows the extension.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format == "" {
		format = "json"
		v.SetConfigType(format)
	}

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return Config{}, email.NewConfigError(fmt.Sprintf("config file %s not found", path), err)
		}
		return Config{}, email.NewConfigError("failed to read config", errors.Wrapf(err, "read %s", path))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, email.NewConfigError("failed to decode config", errors.Wrap(err, "viper.Unmarshal"))
	}

	// viper folds keys to lower case; list names are looked up verbatim.
	lists, err := readLists(path, format)
	if err != nil {
		return Config{}, email.NewConfigError("failed to decode lists", err)
	}
	if lists != nil {
		cfg.Lists = lists
	}

	return cfg, nil
}

// readLists decodes the lists section of the file at path with its key case
// intact. It returns nil for formats it does not know.
func readLists(path, format string) (map[string][]string, error) {
	var unmarshal func([]byte, any) error
	switch format {
	case "json":
		unmarshal = json.Unmarshal
	case "yaml", "yml":
		unmarshal = yaml.Unmarshal
	case "toml":
		unmarshal = toml.Unmarshal
	default:
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	var doc struct {
		Lists map[string][]string `json:"lists" yaml:"lists" toml:"lists"`
	}
	if err := unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(err, "decode lists in %s", path)
	}

	return doc.Lists, nil
}

// LoadFromEnv loads the file named by env and applies the env overrides,
// then validates the result.
func LoadFromEnv(env Env) (Config, error) {
	cfg, err := Load(env.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.ApplyEnv(env)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) ApplyEnv(env Env) {
	if env.Provider != "" {
		c.Provider = env.Provider
	}
	if env.APIKey != "" {
		c.Mailgun.APIKey = env.APIKey
	}
	if env.Domain != "" {
		c.Mailgun.Domain = env.Domain
	}
}

// Validate checks that the selected provider has what it needs.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderMailgun, "":
		return c.Mailgun.Credentials.Validate()
	case ProviderSES:
		if c.SES.Region == "" {
			return email.NewConfigError("email config is missing ses region value", nil)
		}
	case ProviderGmail:
		if c.Gmail.CredentialsFile == "" {
			return email.NewConfigError("email config is missing gmail credentialsFile value", nil)
		}
		if c.Gmail.User == "" {
			return email.NewConfigError("email config is missing gmail user value", nil)
		}
	case ProviderSMTP:
		if c.SMTP.Host == "" {
			return email.NewConfigError("email config is missing smtp host value", nil)
		}
	case ProviderNoop:
	default:
		return email.NewConfigError(fmt.Sprintf("unknown email provider %q", c.Provider), nil)
	}
	return nil
}

// Directory builds the list directory.
func (c Config) Directory() email.Directory {
	return email.NewDirectory(c.Lists)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", string(ProviderMailgun))
	v.SetDefault("smtp.port", smtp.DefaultPort)
	v.SetDefault("smtp.tls", true)
}
