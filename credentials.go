package email

// Credentials identify the account used with an API based provider.
type Credentials struct {
	APIKey string `json:"apiKey" mapstructure:"apiKey"`
	Domain string `json:"domain" mapstructure:"domain"`
}

func (c Credentials) Validate() error {
	if c.APIKey == "" {
		return NewConfigError("email config is missing mailgun apiKey value", nil)
	}
	if c.Domain == "" {
		return NewConfigError("email config is missing mailgun domain value", nil)
	}
	return nil
}
