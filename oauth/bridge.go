package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

var (
	// ErrOriginMismatch rejects messages from a foreign origin.
	ErrOriginMismatch = errors.New("oauth message origin mismatch")
	// ErrUnexpectedMessage rejects messages of another type or without a token.
	ErrUnexpectedMessage = errors.New("unexpected oauth message")
	// ErrBridgeFull is returned when the bridge queue cannot take another message.
	ErrBridgeFull = errors.New("oauth bridge queue full")
)

// Envelope is one message received by the opener, with the sender's origin as
// reported by the runtime.
type Envelope struct {
	Origin string
	Data   []byte
}

// Result reports the handling of one envelope.
type Result struct {
	Envelope Envelope
	Message  Message
	State    goAuthClient.State
	Err      error
}

// WithOnResult registers fn for every handled envelope.
func WithOnResult(fn func(Result)) Option {
	return func(o *options) { o.onResult = fn }
}

// WithBuffer sets how many envelopes may wait for the session to become ready.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// Bridge is the opener-side listener of the popup flow. Messages delivered before
// the session context is ready are queued and handled once it is.
type Bridge struct {
	sessions    Sessions
	origin      string
	messageType string
	queue       chan Envelope
	logger      *slog.Logger
	metrics     *goAuthClient.Metrics
	auditor     Auditor
	onResult    func(Result)
}

// NewBridge creates a bridge accepting messages from origin only.
func NewBridge(sessions Sessions, origin string, opts ...Option) (*Bridge, error) {
	if sessions == nil {
		return nil, errors.New("oauth bridge requires sessions")
	}
	normalized, err := goAuthClient.NormalizeOrigin(origin)
	if err != nil {
		return nil, fmt.Errorf("oauth bridge origin: %w", err)
	}
	o := buildOptions(opts)
	if o.buffer <= 0 {
		o.buffer = goAuthClient.DefaultConfig().OAuth.BridgeBuffer
	}
	return &Bridge{
		sessions:    sessions,
		origin:      normalized,
		messageType: DefaultMessageType,
		queue:       make(chan Envelope, o.buffer),
		logger:      o.logger,
		metrics:     o.metrics,
		auditor:     o.auditor,
		onResult:    o.onResult,
	}, nil
}

// NewBridgeFromClient wires a bridge to client's session and configuration.
func NewBridgeFromClient(client *goAuthClient.Client, opts ...Option) (*Bridge, error) {
	cfg := client.Config()
	base := []Option{
		WithLogger(client.Logger()),
		WithMetrics(client.Metrics()),
		WithAuditor(client),
		WithBuffer(cfg.OAuth.BridgeBuffer),
	}
	b, err := NewBridge(client.Session(), cfg.OAuth.Origin, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	b.messageType = cfg.OAuth.MessageType
	return b, nil
}

// Origin returns the normalized application origin.
func (b *Bridge) Origin() string {
	return b.origin
}

// Deliver enqueues env without blocking. It reports false when the queue is full.
func (b *Bridge) Deliver(env Envelope) bool {
	select {
	case b.queue <- env:
		return true
	default:
		b.metrics.Inc(goAuthClient.MetricBridgeRejected)
		b.logger.Warn("oauth bridge queue full; message dropped", "origin", env.Origin)
		return false
	}
}

// Run handles queued envelopes until ctx ends. Nothing is handled before the
// session context is ready.
func (b *Bridge) Run(ctx context.Context) error {
	select {
	case <-b.sessions.Ready():
	case <-ctx.Done():
		return ctx.Err()
	}

	for {
		select {
		case env := <-b.queue:
			b.handle(ctx, env)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (b *Bridge) handle(ctx context.Context, env Envelope) {
	result := Result{Envelope: env}
	result.Message, result.Err = b.accept(env)
	if result.Err == nil {
		result.State, result.Err = b.sessions.Login(ctx, result.Message.Token, nil)
	}

	if result.Err != nil {
		b.metrics.Inc(goAuthClient.MetricBridgeRejected)
		b.logger.Warn("oauth bridge message rejected", "origin", env.Origin, "error", result.Err)
		if b.auditor != nil {
			b.auditor.EmitAudit(ctx, goAuthClient.AuditEvent{
				EventType: goAuthClient.AuditBridgeRejected,
				Error:     result.Err.Error(),
				Metadata:  map[string]string{"origin": env.Origin},
			})
		}
	} else {
		b.metrics.Inc(goAuthClient.MetricBridgeAccepted)
	}

	if b.onResult != nil {
		b.onResult(result)
	}
}

func (b *Bridge) accept(env Envelope) (Message, error) {
	origin, err := goAuthClient.NormalizeOrigin(env.Origin)
	if err != nil || origin != b.origin {
		return Message{}, fmt.Errorf("%w: %q", ErrOriginMismatch, env.Origin)
	}
	msg, err := DecodeMessage(env.Data)
	if err != nil {
		return Message{}, err
	}
	if msg.Type != b.messageType {
		return msg, fmt.Errorf("%w: type %q", ErrUnexpectedMessage, msg.Type)
	}
	if msg.Token == "" {
		return msg, fmt.Errorf("%w: empty token", ErrUnexpectedMessage)
	}
	return msg, nil
}

// Opener returns an in-process opener for a popup running at senderOrigin. Messages
// addressed to any origin other than the bridge's are dropped, as a browser would.
func (b *Bridge) Opener(senderOrigin string) Opener {
	return &bridgeOpener{bridge: b, sender: senderOrigin}
}

type bridgeOpener struct {
	bridge *Bridge
	sender string
}

func (o *bridgeOpener) PostMessage(msg Message, targetOrigin string) error {
	target, err := goAuthClient.NormalizeOrigin(targetOrigin)
	if err != nil || target != o.bridge.origin {
		o.bridge.logger.Debug("oauth message dropped; target origin mismatch", "target", targetOrigin)
		return nil
	}
	data, err := EncodeMessage(msg)
	if err != nil {
		return err
	}
	if !o.bridge.Deliver(Envelope{Origin: o.sender, Data: data}) {
		return ErrBridgeFull
	}
	return nil
}
