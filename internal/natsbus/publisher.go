package natsbus

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

// Publisher is a stack observer publishing applied operations to the
// document's subject. Volatile commands are not published.
type Publisher struct {
	conn   Conn
	docID  string
	origin string
	logger *slog.Logger
	muted  atomic.Bool
	now    func() time.Time
}

// NewPublisher returns a publisher for docID. origin identifies this peer
// so it can ignore its own messages.
func NewPublisher(conn Conn, docID, origin string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		conn:   conn,
		docID:  docID,
		origin: origin,
		logger: logger,
		now:    time.Now,
	}
}

func (p *Publisher) Origin() string { return p.origin }

// Applied implements command.Observer. Publish failures are logged.
func (p *Publisher) Applied(op command.Op, cmd command.Command) {
	if cmd == nil || cmd.IsVolatile() || p.muted.Load() {
		return
	}
	env := Envelope{
		DocumentID: p.docID,
		Origin:     p.origin,
		Op:         op,
		Type:       cmd.TypeName(),
		SentAt:     p.now().UTC(),
	}
	if op == command.OpExecute {
		env.Payload = cmd.ToObject()
	}
	if err := p.Publish(env); err != nil {
		p.logger.Warn("publish failed",
			slog.String("document", p.docID),
			slog.String("op", string(op)),
			slog.String("type", env.Type),
			slog.String("error", err.Error()))
	}
}

// Publish sends env to its document's subject.
func (p *Publisher) Publish(env Envelope) error {
	if p.conn == nil {
		return ErrNoConn
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}
	return p.conn.Publish(Subject(env.DocumentID), data)
}

// mute suppresses publishing while fn runs.
func (p *Publisher) mute(fn func()) {
	p.muted.Store(true)
	defer p.muted.Store(false)
	fn()
}

var _ command.Observer = (*Publisher)(nil)
