// Package bridge relays questions between a chat session and the answer
// service. The bridge owns the connection lifecycle and reconnects with
// backoff; message delivery is at most once, nothing is buffered across an
// outage.
package bridge

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/caroline-springs-cc/pitchbot/internal/answer"
	"github.com/caroline-springs-cc/pitchbot/internal/resilience"
)

// ErrSessionClosed is returned by Recv when the underlying connection is
// gone. The bridge reacts by reconnecting, never by failing.
var ErrSessionClosed = eris.New("bridge: session closed")

// Message is one inbound or outbound chat message.
type Message struct {
	ID       string
	ChatID   string
	AuthorID string
	Text     string
}

// Session is the chat-platform connection. Implementations wrap whatever
// transport the platform speaks; the bridge only needs these four calls.
type Session interface {
	// Connect establishes the connection. Called again after any drop.
	Connect(ctx context.Context) error

	// Recv blocks for the next message. Returns ErrSessionClosed (or any
	// other error) when the connection is gone.
	Recv(ctx context.Context) (Message, error)

	// Send posts a reply into the originating chat.
	Send(ctx context.Context, chatID, text string) error

	Close() error
}

// ConnState is the bridge's connection state.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

// Asker answers one question. Satisfied by answer.Service.
type Asker interface {
	Ask(ctx context.Context, text string) answer.Envelope
}

// Config tunes the bridge.
type Config struct {
	// BotID is the bridge's own author identity. Messages it authored are
	// discarded before any ask, so the bot can never converse with itself.
	BotID string

	// CommandPrefix addresses the bot explicitly, e.g. "!csc".
	CommandPrefix string

	// Mention also addresses the bot, e.g. "@pitchbot". Optional.
	Mention string

	// Workers is the number of concurrent ask handlers.
	Workers int

	// InboundBuffer bounds the queue between Recv and the workers.
	InboundBuffer int

	// Reconnect backoff bounds.
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// Bridge pumps messages between a Session and the Asker.
type Bridge struct {
	session Session
	asker   Asker
	cfg     Config

	mu    sync.RWMutex
	state ConnState
}

// New builds a bridge; Run starts it.
func New(session Session, asker Asker, cfg Config) *Bridge {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.InboundBuffer <= 0 {
		cfg.InboundBuffer = 32
	}
	if cfg.ReconnectInitial <= 0 {
		cfg.ReconnectInitial = time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = time.Minute
	}
	return &Bridge{
		session: session,
		asker:   asker,
		cfg:     cfg,
		state:   StateDisconnected,
	}
}

// State returns the current connection state.
func (b *Bridge) State() ConnState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *Bridge) setState(s ConnState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Run connects, pumps messages, and reconnects on drops until ctx is done.
func (b *Bridge) Run(ctx context.Context) error {
	inbound := make(chan Message, b.cfg.InboundBuffer)

	var wg sync.WaitGroup
	for i := 0; i < b.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.worker(ctx, inbound)
		}()
	}
	defer func() {
		close(inbound)
		wg.Wait()
	}()

	retry := resilience.RetryConfig{
		// Effectively unbounded: the bridge keeps reconnecting until the
		// context ends.
		MaxAttempts:    math.MaxInt32,
		InitialBackoff: b.cfg.ReconnectInitial,
		MaxBackoff:     b.cfg.ReconnectMax,
		Multiplier:     2.0,
		JitterFraction: 0.25,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger("chat", "connect"),
	}

	for {
		b.setState(StateConnecting)
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return b.session.Connect(ctx)
		})
		if err != nil {
			b.setState(StateDisconnected)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		b.setState(StateConnected)
		zap.L().Info("bridge connected")

		if err := b.pump(ctx, inbound); err != nil && ctx.Err() != nil {
			b.setState(StateDisconnected)
			return ctx.Err()
		}
		b.setState(StateDisconnected)
		zap.L().Info("bridge disconnected")
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// pump moves accepted messages onto the inbound channel until the session
// drops or ctx is done.
func (b *Bridge) pump(ctx context.Context, inbound chan<- Message) error {
	for {
		msg, err := b.session.Recv(ctx)
		if err != nil {
			return err
		}
		if !b.accept(msg) {
			continue
		}
		select {
		case inbound <- msg:
		case <-ctx.Done():
			return ctx.Err()
		default:
			// Bounded queue full: drop rather than stall the session.
			zap.L().Warn("inbound queue full, dropping message",
				zap.String("message_id", msg.ID))
		}
	}
}

// accept decides whether a message is addressed to the bot. The bot's own
// messages are rejected first, before any prefix check, so a reply that
// happens to carry the prefix can never loop back into an ask.
func (b *Bridge) accept(msg Message) bool {
	if msg.AuthorID == b.cfg.BotID {
		return false
	}
	text := strings.TrimSpace(msg.Text)
	if b.cfg.CommandPrefix != "" && strings.HasPrefix(text, b.cfg.CommandPrefix) {
		return true
	}
	if b.cfg.Mention != "" && strings.Contains(text, b.cfg.Mention) {
		return true
	}
	return false
}

// strip removes the addressing prefix or mention from the question text.
func (b *Bridge) strip(text string) string {
	text = strings.TrimSpace(text)
	if b.cfg.CommandPrefix != "" {
		text = strings.TrimPrefix(text, b.cfg.CommandPrefix)
	}
	if b.cfg.Mention != "" {
		text = strings.ReplaceAll(text, b.cfg.Mention, "")
	}
	return strings.TrimSpace(text)
}

func (b *Bridge) worker(ctx context.Context, inbound <-chan Message) {
	for msg := range inbound {
		question := b.strip(msg.Text)
		if question == "" {
			continue
		}
		env := b.asker.Ask(ctx, question)
		if err := b.session.Send(ctx, msg.ChatID, env.Answer); err != nil {
			// At most once: a failed send is logged and dropped, never
			// retried into a duplicate reply.
			zap.L().Warn("bridge send failed",
				zap.String("chat_id", msg.ChatID),
				zap.Error(err))
		}
	}
}
