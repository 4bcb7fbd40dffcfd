//go:generate go run go.uber.org/mock/mockgen -source=email.go -destination=mocks/mock_email.go -package=mocks
package email

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"strings"
)

// Message is an outbound email as supplied by the caller. To entries are
// literal addresses or @list references.
type Message struct {
	From    string     `json:"from" validate:"required"`
	To      Recipients `json:"to" validate:"required,min=1,dive,required"`
	Subject string     `json:"subject" validate:"required"`
	Text    string     `json:"text" validate:"required"`
	// Extra carries provider pass-through fields such as "cc", "html",
	// "h:Reply-To" or "o:tag". It is never validated.
	Extra map[string]string `json:"-"`
}

// Outgoing is a Message after list expansion, ready for a Provider.
type Outgoing struct {
	From string `json:"from"`
	// To is the ", " joined form of Recipients.
	To         string            `json:"to"`
	Recipients []string          `json:"-"`
	Subject    string            `json:"subject"`
	Text       string            `json:"text"`
	Extra      map[string]string `json:"-"`
}

// Provider is the transport that actually delivers a resolved message.
type Provider interface {
	SendRaw(ctx context.Context, m Outgoing) error
}

type Sender interface {
	Send(ctx context.Context, m Message) error
}

func (m Message) clone() Message {
	m.To = append(Recipients(nil), m.To...)
	m.Extra = maps.Clone(m.Extra)
	return m
}

func (m Message) String() string {
	fields := map[string]any{}
	for k, v := range m.Extra {
		fields[k] = v
	}
	fields["from"] = m.From
	fields["subject"] = m.Subject
	fields["text"] = m.Text
	if len(m.To) == 1 {
		fields["to"] = m.To[0]
	} else {
		fields["to"] = []string(m.To)
	}
	return dump(fields)
}

func (o Outgoing) String() string {
	fields := map[string]any{}
	for k, v := range o.Extra {
		fields[k] = v
	}
	fields["from"] = o.From
	fields["to"] = o.To
	fields["subject"] = o.Subject
	fields["text"] = o.Text
	return dump(fields)
}

func (o Outgoing) Cc() []string {
	return splitList(o.Extra["cc"])
}

func (o Outgoing) Bcc() []string {
	return splitList(o.Extra["bcc"])
}

func (o Outgoing) HTML() string {
	return o.Extra["html"]
}

func (o Outgoing) Tags() []string {
	return splitList(o.Extra["o:tag"])
}

// Headers returns the custom headers given as "h:<Name>" extras.
func (o Outgoing) Headers() map[string]string {
	return prefixed(o.Extra, "h:")
}

// Variables returns the custom variables given as "v:<name>" extras.
func (o Outgoing) Variables() map[string]string {
	return prefixed(o.Extra, "v:")
}

// HeaderNames returns the custom header names in a stable order.
func (o Outgoing) HeaderNames() []string {
	h := o.Headers()
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func prefixed(extra map[string]string, prefix string) map[string]string {
	out := map[string]string{}
	for k, v := range extra {
		if name, ok := strings.CutPrefix(k, prefix); ok && name != "" {
			out[name] = v
		}
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func dump(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "<unprintable>"
	}
	return string(b)
}
