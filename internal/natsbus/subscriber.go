package natsbus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/mesh-intelligence/docmodel/pkg/command"
)

// SubscriberConfig configures a Subscriber.
type SubscriberConfig struct {
	Conn       Conn
	DocumentID string
	// Origin is this peer's id; envelopes it sent are ignored.
	Origin  string
	Stack   *command.Stack
	Context command.Context
	// Registry defaults to command.DefaultRegistry().
	Registry *command.Registry
	// Publisher, when set, is muted while remote operations are applied so
	// they are not published again.
	Publisher *Publisher
	Logger    *slog.Logger
}

// Subscriber applies operations published by other peers to a local stack.
// Remote operations are serialized with local writes made through Do.
type Subscriber struct {
	cfg     SubscriberConfig
	mu      sync.Mutex
	sub     Subscription
	history *command.History
}

// NewSubscriber returns a stopped subscriber. It tracks the stack's history
// from here on, so remote undo and redo of commands that could not be
// applied locally leave the stack alone.
func NewSubscriber(cfg SubscriberConfig) *Subscriber {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Registry == nil {
		cfg.Registry = command.DefaultRegistry()
	}
	s := &Subscriber{cfg: cfg}
	if cfg.Stack != nil {
		s.history = command.NewHistory(cfg.Stack)
	}
	return s
}

// Start subscribes to the document's subject.
func (s *Subscriber) Start() error {
	if s.cfg.Conn == nil {
		return ErrNoConn
	}
	sub, err := s.cfg.Conn.Subscribe(Subject(s.cfg.DocumentID), func(m *nats.Msg) {
		s.Handle(m.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", Subject(s.cfg.DocumentID), err)
	}
	s.sub = sub
	return nil
}

// Stop unsubscribes.
func (s *Subscriber) Stop() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Unsubscribe()
	s.sub = nil
	return err
}

// Do runs fn holding the lock remote operations are applied under.
func (s *Subscriber) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Handle decodes and applies one message body. It reports whether the
// operation was applied.
func (s *Subscriber) Handle(data []byte) bool {
	log := s.cfg.Logger
	env, err := DecodeEnvelope(data)
	if err != nil {
		log.Warn("dropping malformed envelope", slog.String("error", err.Error()))
		return false
	}
	if env.Origin != "" && env.Origin == s.cfg.Origin {
		return false
	}
	if env.DocumentID != s.cfg.DocumentID {
		return false
	}

	applied := false
	s.Do(func() {
		var cmd command.Command
		if env.Op == command.OpExecute {
			c, ok := s.cfg.Registry.Decode(env.Payload, s.cfg.Context)
			if !ok {
				log.Debug("skipping undecodable command",
					slog.String("document", env.DocumentID),
					slog.String("type", env.Type))
			}
			cmd = c
		}
		run := func() {
			if s.history == nil {
				return
			}
			ok, err := s.history.Apply(env.Op, cmd)
			if err != nil {
				log.Warn("remote command failed",
					slog.String("document", env.DocumentID),
					slog.String("origin", env.Origin),
					slog.String("op", string(env.Op)),
					slog.String("type", env.Type),
					slog.String("error", err.Error()))
				return
			}
			applied = ok
		}
		if s.cfg.Publisher != nil {
			s.cfg.Publisher.mute(run)
		} else {
			run()
		}
	})
	return applied
}

// Tap subscribes to subject and passes every decodable envelope to fn.
func Tap(conn Conn, subject string, fn func(Envelope)) (Subscription, error) {
	if conn == nil {
		return nil, ErrNoConn
	}
	return conn.Subscribe(subject, func(m *nats.Msg) {
		env, err := DecodeEnvelope(m.Data)
		if err != nil {
			return
		}
		if env.DocumentID == "" {
			env.DocumentID, _ = DocumentID(m.Subject)
		}
		fn(env)
	})
}
