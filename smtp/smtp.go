package smtp

// Config contains SMTP connection parameters.
type Config struct {
	Host     string `mapstructure:"host"`     // smtp.gmail.com
	Port     int    `mapstructure:"port"`     // 587 for STARTTLS
	Username string `mapstructure:"username"` // username or email
	Password string `mapstructure:"password"` // password or app password
	TLS      bool   `mapstructure:"tls"`      // enable STARTTLS
	Insecure bool   `mapstructure:"insecure"` // skip certificate verification
}

const DefaultPort = 587
