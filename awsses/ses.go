package awsses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
	"github.com/kalabox/email"
)

var _ email.Provider = &AWSSESSender{}

type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type AWSSESSender struct {
	sesClient SESClient
}

func NewAWSSESSender(client SESClient) *AWSSESSender {
	return &AWSSESSender{
		sesClient: client,
	}
}

// NewFromConfig builds a sender using the default AWS credential chain.
func NewFromConfig(ctx context.Context, region string) (*AWSSESSender, error) {
	if region == "" {
		return nil, email.NewConfigError("email config is missing ses region value", nil)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, email.NewConfigError("unable to load AWS config", err)
	}

	return NewAWSSESSender(sesv2.NewFromConfig(cfg)), nil
}

func (a *AWSSESSender) SendRaw(ctx context.Context, m email.Outgoing) error {
	if err := validateAddresses(m); err != nil {
		return err
	}

	_, err := a.sesClient.SendEmail(ctx, &sesv2.SendEmailInput{
		Content: &types.EmailContent{
			Simple: &types.Message{
				Body: &types.Body{
					Html: htmlContent(m),
					Text: utf8Content(m.Text),
				},
				Subject: utf8Content(m.Subject),
				Headers: headersToAWS(m),
			},
		},
		Destination: &types.Destination{
			ToAddresses:  m.Recipients,
			CcAddresses:  m.Cc(),
			BccAddresses: m.Bcc(),
		},
		FromEmailAddress: aws.String(m.From),
		ReplyToAddresses: replyTo(m),
	})

	if err != nil {
		return categorizeAWSError(err)
	}

	return nil
}

func htmlContent(m email.Outgoing) *types.Content {
	if m.HTML() == "" {
		return nil
	}

	return utf8Content(m.HTML())
}

func utf8Content(s string) *types.Content {
	return &types.Content{
		Data:    aws.String(s),
		Charset: aws.String("UTF-8"),
	}
}

// replyTo comes from the Reply-To header extra; SES takes it as a field
// rather than a raw header.
func replyTo(m email.Outgoing) []string {
	for name, value := range m.Headers() {
		if strings.EqualFold(name, "Reply-To") {
			return []string{value}
		}
	}
	return nil
}

func headersToAWS(m email.Outgoing) []types.MessageHeader {
	headers := m.Headers()
	var out []types.MessageHeader
	for _, name := range m.HeaderNames() {
		if strings.EqualFold(name, "Reply-To") {
			continue
		}
		out = append(out, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(headers[name]),
		})
	}
	return out
}

func validateAddresses(m email.Outgoing) error {
	if !isValidEmailAddress(m.From) {
		return email.NewInvalidEmailError("invalid from address format", nil)
	}

	allAddresses := append(append(append([]string{}, m.Recipients...), m.Cc()...), m.Bcc()...)
	for _, addr := range allAddresses {
		if !isValidEmailAddress(addr) {
			return email.NewInvalidEmailError(fmt.Sprintf("invalid recipient address: %s", addr), nil)
		}
	}

	return nil
}

func categorizeAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException", "LimitExceededException":
			return email.NewRateLimitedError("sending rate limit exceeded", err)
		case "MessageRejected":
			return email.NewMessageRejectedError("message rejected by SES", err)
		case "MailFromDomainNotVerifiedException":
			return email.NewUnverifiedDomainError("sender domain not verified", err)
		case "InvalidParameterValueException", "BadRequestException":
			return email.NewInvalidEmailError("invalid email parameter", err)
		case "AccountSuspendedException", "SendingPausedException":
			return email.NewMessageRejectedError("SES sending is disabled for this account", err)
		case "ServiceUnavailableException", "InternalServiceErrorException":
			return email.NewServiceError("AWS SES service error", err)
		}
	}

	return email.NewUnknownError("failed to send email", err)
}

func isValidEmailAddress(email string) bool {
	return strings.Contains(email, "@") && strings.Contains(email, ".")
}
