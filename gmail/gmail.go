package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kalabox/email"
)

var _ email.Provider = &GmailSender{}

const boundary = "boundary123456789"

// sendFunc delivers an encoded message for userID.
type sendFunc func(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error)

type GmailSender struct {
	send   sendFunc
	userID string
}

func NewGmailSender(ctx context.Context, credentialsJSON []byte, userEmail string) (*GmailSender, error) {
	if userEmail == "" {
		return nil, email.NewConfigError("email config is missing gmail user value", nil)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, email.NewConfigError("unable to parse service account file", err)
	}

	config.Subject = userEmail

	service, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, email.NewConfigError("unable to retrieve Gmail client", err)
	}

	return newGmailSender(func(ctx context.Context, userID string, message *gmail.Message) (*gmail.Message, error) {
		return service.Users.Messages.Send(userID, message).Context(ctx).Do()
	}), nil
}

// NewGmailSenderFromFile reads service account credentials from path.
func NewGmailSenderFromFile(ctx context.Context, path, userEmail string) (*GmailSender, error) {
	if path == "" {
		return nil, email.NewConfigError("email config is missing gmail credentialsFile value", nil)
	}

	credentialsJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, email.NewConfigError(fmt.Sprintf("unable to read service account file %s", path), err)
	}

	return NewGmailSender(ctx, credentialsJSON, userEmail)
}

func newGmailSender(send sendFunc) *GmailSender {
	return &GmailSender{
		send:   send,
		userID: "me",
	}
}

func (g *GmailSender) SendRaw(ctx context.Context, m email.Outgoing) error {
	if err := validateAddresses(m); err != nil {
		return err
	}

	_, err := g.send(ctx, g.userID, createMessage(m))
	if err != nil {
		return mapGmailError(err)
	}

	return nil
}

func createMessage(m email.Outgoing) *gmail.Message {
	headers := []string{
		fmt.Sprintf("From: %s", m.From),
		fmt.Sprintf("To: %s", m.To),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", m.Subject)),
		"MIME-Version: 1.0",
	}

	if cc := m.Cc(); len(cc) > 0 {
		headers = append(headers, fmt.Sprintf("Cc: %s", strings.Join(cc, ", ")))
	}

	if bcc := m.Bcc(); len(bcc) > 0 {
		headers = append(headers, fmt.Sprintf("Bcc: %s", strings.Join(bcc, ", ")))
	}

	custom := m.Headers()
	for _, name := range m.HeaderNames() {
		headers = append(headers, fmt.Sprintf("%s: %s", name, custom[name]))
	}

	var body string
	if html := m.HTML(); html != "" {
		headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%s", boundary))

		body = fmt.Sprintf(`
--%s
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: 8bit

%s

--%s
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: 8bit

%s

--%s--`, boundary, m.Text, boundary, html, boundary)
	} else {
		headers = append(headers, "Content-Type: text/plain; charset=utf-8")
		headers = append(headers, "Content-Transfer-Encoding: 8bit")
		body = m.Text
	}

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	return &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
}

func validateAddresses(m email.Outgoing) error {
	if _, err := mail.ParseAddress(m.From); err != nil {
		return email.NewInvalidEmailError("Invalid from address format", err)
	}

	allRecipients := append(append(append([]string{}, m.Recipients...), m.Cc()...), m.Bcc()...)
	for _, addr := range allRecipients {
		if _, err := mail.ParseAddress(addr); err != nil {
			return email.NewInvalidEmailError(fmt.Sprintf("Invalid recipient address format: %s", addr), err)
		}
	}

	return nil
}

func mapGmailError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		switch apiErr.Code {
		case 400:
			if strings.Contains(msg, "invalid") {
				if strings.Contains(msg, "recipient") ||
					strings.Contains(msg, "email") ||
					strings.Contains(msg, "address") {
					return email.NewInvalidEmailError("Invalid email address", err)
				}
			}
			if strings.Contains(msg, "malformed") || strings.Contains(msg, "encoding") {
				return email.NewValidationError("Invalid message format", err)
			}
			if strings.Contains(msg, "too large") || strings.Contains(msg, "size") {
				return email.NewValidationError("Message too large", err)
			}
			return email.NewValidationError("Invalid request parameters", err)

		case 401:
			return email.NewAuthError("Authentication failed - check service account credentials", err)

		case 403:
			if strings.Contains(msg, "scope") || strings.Contains(msg, "permission") {
				return email.NewUnverifiedDomainError("Insufficient permissions to send email", err)
			}
			if strings.Contains(msg, "domain") {
				return email.NewUnverifiedDomainError("Domain policy prevents sending", err)
			}
			if strings.Contains(msg, "blocked") {
				return email.NewMessageRejectedError("Sender blocked by recipient", err)
			}
			return email.NewUnverifiedDomainError("Permission denied", err)

		case 429:
			if strings.Contains(msg, "quota") {
				return email.NewRateLimitedError("Gmail API quota exceeded", err)
			}
			if strings.Contains(msg, "rate") {
				return email.NewRateLimitedError("Gmail API rate limit exceeded", err)
			}
			return email.NewRateLimitedError("Too many requests", err)

		case 500:
			return email.NewServiceError("Internal Gmail server error", err)

		case 503:
			return email.NewServiceError("Gmail service temporarily unavailable", err)

		case 504:
			return email.NewServiceError("Gmail API request timeout", err)

		default:
			return email.NewServiceError(fmt.Sprintf("Gmail API error (HTTP %d)", apiErr.Code), err)
		}
	}

	lower := strings.ToLower(err.Error())
	if errors.Is(err, context.DeadlineExceeded) ||
		(strings.Contains(lower, "context") && strings.Contains(lower, "deadline")) {
		return email.NewServiceError("Request timeout", err)
	}

	if strings.Contains(lower, "connection") || strings.Contains(lower, "network") {
		return email.NewServiceError("Network error", err)
	}

	return email.NewUnknownError("Gmail API error", err)
}
