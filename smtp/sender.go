package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/kalabox/email"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var _ email.Provider = (*Sender)(nil)

var tracer = otel.Tracer("github.com/kalabox/email/smtp")

var (
	errClosed          = errors.New("sender is closed")
	errHeaderInjection = errors.New("header contains a line break")
)

// Sender relays messages through an SMTP server using net/smtp.
type Sender struct {
	mx     sync.Mutex
	cfg    Config
	closed bool
	now    func() time.Time
}

// NewSender creates a new SMTP Sender. A missing host is a config error.
func NewSender(cfg Config) (*Sender, error) {
	if cfg.Host == "" {
		return nil, email.NewConfigError("email config is missing smtp host value", nil)
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}

	return &Sender{
		cfg: cfg,
		now: time.Now,
	}, nil
}

func (s *Sender) SendRaw(ctx context.Context, m email.Outgoing) error {
	ctx, span := tracer.Start(ctx, "SMTP.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("smtp.from", m.From),
		attribute.Int("smtp.to_count", len(m.Recipients)),
		attribute.String("smtp.host", s.cfg.Host),
		attribute.Int("smtp.port", s.cfg.Port),
		attribute.Bool("smtp.tls", s.cfg.TLS),
	)

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.closed {
		span.SetStatus(codes.Error, "sender is closed")
		return email.NewServiceError("smtp sender is closed", errClosed)
	}

	// Bcc recipients get the envelope but no header.
	recipients := append(append(append([]string{}, m.Recipients...), m.Cc()...), m.Bcc()...)
	if len(recipients) == 0 {
		return email.NewValidationError("no recipients specified", nil)
	}

	msg, err := s.buildMessage(m)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if s.cfg.TLS {
		err = s.sendWithTLS(ctx, addr, auth, m.From, recipients, msg)
	} else {
		err = smtp.SendMail(addr, auth, m.From, recipients, msg)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return categorizeSMTPError(pkgerrors.Wrap(err, "failed to send email"))
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// sendWithTLS sends email using STARTTLS when the server offers it.
func (s *Sender) sendWithTLS(ctx context.Context, addr string, auth smtp.Auth, from string, recipients []string, msg []byte) error {
	_, span := tracer.Start(ctx, "SMTP.SendWithTLS")
	defer span.End()

	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, "context canceled")
		return err
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		span.RecordError(err)
		return pkgerrors.Wrap(err, "failed to connect to SMTP server")
	}
	defer func() {
		_ = client.Close()
	}()

	if ok, _ := client.Extension("STARTTLS"); ok {
		span.SetAttributes(attribute.Bool("smtp.starttls", true))

		tlsConfig := &tls.Config{
			ServerName:         s.cfg.Host,
			InsecureSkipVerify: s.cfg.Insecure, // #nosec G402 -- controlled by config
		}
		if err := client.StartTLS(tlsConfig); err != nil {
			span.RecordError(err)
			return pkgerrors.Wrap(err, "failed to start TLS")
		}
	}

	if auth != nil {
		if err := client.Auth(auth); err != nil {
			span.RecordError(err)
			return pkgerrors.Wrap(err, "failed to authenticate")
		}
	}

	if err := client.Mail(from); err != nil {
		return pkgerrors.Wrap(err, "failed to set sender")
	}

	for _, rcpt := range recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return pkgerrors.Wrapf(err, "failed to set recipient: %s", rcpt)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return pkgerrors.Wrap(err, "failed to get data writer")
	}

	if _, err := writer.Write(msg); err != nil {
		return pkgerrors.Wrap(err, "failed to write message")
	}

	if err := writer.Close(); err != nil {
		return pkgerrors.Wrap(err, "failed to finish message")
	}

	return client.Quit()
}

// buildMessage builds the raw RFC 5322 message. Header values containing
// line breaks are rejected.
func (s *Sender) buildMessage(m email.Outgoing) ([]byte, error) {
	headers := m.Headers()
	cc := strings.Join(m.Cc(), ", ")

	for name, value := range map[string]string{"From": m.From, "To": m.To, "Cc": cc, "Subject": m.Subject} {
		if err := checkHeader(name, value); err != nil {
			return nil, err
		}
	}
	for name, value := range headers {
		if err := checkHeader(name, value); err != nil {
			return nil, err
		}
	}

	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("From: %s\r\n", m.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", m.To))

	if cc != "" {
		msg.WriteString(fmt.Sprintf("Cc: %s\r\n", cc))
	}

	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", mime.QEncoding.Encode("utf-8", m.Subject)))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Date: %s\r\n", s.now().Format(time.RFC1123Z)))

	for _, name := range m.HeaderNames() {
		msg.WriteString(fmt.Sprintf("%s: %s\r\n", name, headers[name]))
	}

	if html := m.HTML(); html != "" {
		boundary := fmt.Sprintf("boundary_%d", s.now().UnixNano())
		msg.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=%s\r\n", boundary))
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(m.Text)
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
		msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		msg.WriteString(html)
		msg.WriteString("\r\n")

		msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	} else {
		msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		msg.WriteString(m.Text)
		msg.WriteString("\r\n")
	}

	return []byte(msg.String()), nil
}

func checkHeader(name, value string) error {
	if strings.ContainsAny(name, "\r\n:") || strings.ContainsAny(value, "\r\n") {
		return email.NewValidationError(fmt.Sprintf("invalid %s header", name), errHeaderInjection)
	}
	return nil
}

func categorizeSMTPError(err error) error {
	var protoErr *textproto.Error
	if errors.As(err, &protoErr) {
		switch {
		case protoErr.Code == 421:
			return email.NewServiceError("smtp service not available", err)
		case protoErr.Code == 450 || protoErr.Code == 451 || protoErr.Code == 452:
			return email.NewRateLimitedError("smtp server deferred the message", err)
		case protoErr.Code == 530 || protoErr.Code == 534 || protoErr.Code == 535:
			return email.NewAuthError("smtp authentication failed", err)
		case protoErr.Code == 553 || protoErr.Code == 501:
			return email.NewInvalidEmailError("smtp server rejected an address", err)
		case protoErr.Code >= 550 && protoErr.Code <= 554:
			return email.NewMessageRejectedError("message rejected by smtp server", err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return email.NewServiceError("smtp connection error", err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return email.NewServiceError("smtp connection error", err)
	}

	return email.NewUnknownError("failed to send email", err)
}

// Close closes the sender. Further sends fail.
func (s *Sender) Close() error {
	s.mx.Lock()
	defer s.mx.Unlock()

	s.closed = true
	return nil
}
