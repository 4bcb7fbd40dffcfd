package email

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kalabox/email/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/kalabox/email"

var _ Sender = &Mailer{}

// Mailer validates messages, expands recipient lists and hands the result
// to a Provider.
type Mailer struct {
	provider  Provider
	directory Directory
	logger    *slog.Logger
	tracer    trace.Tracer
	sent      metric.Int64Counter
	failed    metric.Int64Counter
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	tp     trace.TracerProvider
	mp     metric.MeterProvider
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

func NewMailer(provider Provider, directory Directory, opts ...Option) (*Mailer, error) {
	if provider == nil {
		return nil, NewConfigError("email provider is required", nil)
	}

	o := options{
		tp: otel.GetTracerProvider(),
		mp: otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	meter := o.mp.Meter(instrumentationName)
	sent, err := meter.Int64Counter("email.sent", metric.WithDescription("Messages accepted by the provider"))
	if err != nil {
		sent, _ = metricnoop.Meter{}.Int64Counter("email.sent")
	}
	failed, err := meter.Int64Counter("email.failed", metric.WithDescription("Messages that could not be sent"))
	if err != nil {
		failed, _ = metricnoop.Meter{}.Int64Counter("email.failed")
	}

	return &Mailer{
		provider:  provider,
		directory: directory,
		logger:    o.logger,
		tracer:    o.tp.Tracer(instrumentationName),
		sent:      sent,
		failed:    failed,
	}, nil
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	ctx, span := m.tracer.Start(ctx, "Mailer.Send", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	msg = msg.clone()
	l := m.log(ctx).With("subject", msg.Subject)

	err := m.send(ctx, span, l, msg)
	if err != nil {
		reason := REASON_UNKNOWN
		var e *Error
		if errors.As(err, &e) {
			reason = e.Reason
		}
		m.failed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(reason))
		logger.AppendErr(l, err).Error("failed to send email")
		return err
	}

	m.sent.Add(ctx, 1)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (m *Mailer) send(ctx context.Context, span trace.Span, l *slog.Logger, msg Message) error {
	if err := Validate(msg); err != nil {
		return err
	}

	out, err := m.directory.Expand(msg)
	if err != nil {
		return err
	}

	span.SetAttributes(
		attribute.Int("email.to_entries", len(msg.To)),
		attribute.Int("email.recipients", len(out.Recipients)),
	)

	if len(out.Recipients) == 0 {
		return NewInvalidMessageError("to", msg.String())
	}

	l.Debug("sending email", "to", out.To)

	if err := m.provider.SendRaw(ctx, out); err != nil {
		return NewProviderError(out.String(), err)
	}

	l.Info("email sent", "recipients", len(out.Recipients))
	return nil
}

func (m *Mailer) log(ctx context.Context) *slog.Logger {
	if m.logger != nil && !logger.HasContext(ctx) {
		return m.logger
	}
	return logger.FromContext(ctx)
}
