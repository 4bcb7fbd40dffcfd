package noop

import (
	"context"
	"sync"

	"github.com/kalabox/email"
	"github.com/kalabox/email/logger"
)

var _ email.Provider = (*Sender)(nil)

// Sender logs and discards messages. Used for dry runs.
type Sender struct {
	mx   sync.Mutex
	sent []email.Outgoing
}

func NewSender() *Sender {
	return &Sender{}
}

func (n *Sender) SendRaw(ctx context.Context, m email.Outgoing) error {
	logger.FromContext(ctx).Info("dry run, message discarded",
		"from", m.From,
		"to", m.To,
		"subject", m.Subject,
	)

	n.mx.Lock()
	defer n.mx.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

// Sent returns the messages received so far.
func (n *Sender) Sent() []email.Outgoing {
	n.mx.Lock()
	defer n.mx.Unlock()
	return append([]email.Outgoing(nil), n.sent...)
}
