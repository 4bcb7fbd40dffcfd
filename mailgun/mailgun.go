package mailgun

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/kalabox/email"
	"github.com/mailgun/mailgun-go/v4"
)

var _ email.Provider = &MailgunSender{}

// Client is the subset of *mailgun.MailgunImpl the sender uses.
type Client interface {
	NewMessage(from, subject, text string, to ...string) *mailgun.Message
	Send(ctx context.Context, m *mailgun.Message) (string, string, error)
}

type MailgunSender struct {
	client Client
}

type Options struct {
	// APIBase overrides the API endpoint, e.g. mailgun.APIBaseEU.
	APIBase string
}

// New builds a sender for the account in creds. Missing credentials are a
// config error.
func New(creds email.Credentials, opts Options) (*MailgunSender, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	mg := mailgun.NewMailgun(creds.Domain, creds.APIKey)
	if opts.APIBase != "" {
		mg.SetAPIBase(opts.APIBase)
	}

	return NewMailgunSender(mg), nil
}

func NewMailgunSender(client Client) *MailgunSender {
	return &MailgunSender{
		client: client,
	}
}

func (s *MailgunSender) SendRaw(ctx context.Context, m email.Outgoing) error {
	msg, err := s.buildMessage(m)
	if err != nil {
		return email.NewValidationError("failed to build mailgun message", err)
	}

	if _, _, err := s.client.Send(ctx, msg); err != nil {
		return categorizeMailgunError(err)
	}

	return nil
}

func (s *MailgunSender) buildMessage(m email.Outgoing) (*mailgun.Message, error) {
	msg := s.client.NewMessage(m.From, m.Subject, m.Text, m.Recipients...)

	for _, cc := range m.Cc() {
		msg.AddCC(cc)
	}
	for _, bcc := range m.Bcc() {
		msg.AddBCC(bcc)
	}
	if html := m.HTML(); html != "" {
		msg.SetHtml(html)
	}

	headers := m.Headers()
	for _, name := range m.HeaderNames() {
		msg.AddHeader(name, headers[name])
	}

	if tags := m.Tags(); len(tags) > 0 {
		if err := msg.AddTag(tags...); err != nil {
			return nil, err
		}
	}

	vars := m.Variables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := msg.AddVariable(name, vars[name]); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

func categorizeMailgunError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return email.NewServiceError("mailgun request timeout", err)
	}

	var respErr *mailgun.UnexpectedResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.Actual; {
		case code == http.StatusBadRequest:
			return email.NewValidationError("mailgun rejected the request parameters", err)
		case code == http.StatusUnauthorized:
			return email.NewAuthError("mailgun authentication failed - check apiKey", err)
		case code == http.StatusForbidden, code == http.StatusNotFound:
			return email.NewUnverifiedDomainError("sending domain not allowed", err)
		case code == http.StatusRequestEntityTooLarge:
			return email.NewValidationError("message too large", err)
		case code == http.StatusTooManyRequests:
			return email.NewRateLimitedError("mailgun rate limit exceeded", err)
		case code >= http.StatusInternalServerError:
			return email.NewServiceError(fmt.Sprintf("mailgun service error (HTTP %d)", code), err)
		}
	}

	return email.NewUnknownError("failed to send email", err)
}
