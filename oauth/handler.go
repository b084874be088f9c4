package oauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// ErrNoWindow is returned when Complete is called without a window.
var ErrNoWindow = errors.New("oauth completion requires a window")

// Sessions is the part of the session context used by completion.
type Sessions interface {
	Login(ctx context.Context, raw string, profile *goAuthClient.Profile) (goAuthClient.State, error)
	Ready() <-chan struct{}
}

// Auditor receives completion audit events.
type Auditor interface {
	EmitAudit(ctx context.Context, event goAuthClient.AuditEvent)
}

// Opener is the window that started the popup flow.
type Opener interface {
	// PostMessage delivers msg when targetOrigin matches the opener's origin.
	PostMessage(msg Message, targetOrigin string) error
}

// Window is the browsing context the callback URL loaded in.
type Window interface {
	Opener() (Opener, bool)
	Close()
	Navigate(path string)
}

// Config controls a [Handler].
type Config struct {
	// Origin is the application origin that popup messages are addressed to.
	Origin       string
	MessageType  string
	LoginPath    string
	HomePath     string
	FailureDelay time.Duration
}

// ConfigFrom extracts the completion settings from a client configuration.
func ConfigFrom(cfg goAuthClient.Config) Config {
	return Config{
		Origin:       cfg.OAuth.Origin,
		MessageType:  cfg.OAuth.MessageType,
		LoginPath:    cfg.Routes.LoginPath,
		HomePath:     cfg.Routes.HomePath,
		FailureDelay: cfg.OAuth.FailureRedirectDelay,
	}
}

// Outcome classifies a completion.
type Outcome uint8

const (
	// OutcomeLoggedIn means the token was accepted in redirect mode.
	OutcomeLoggedIn Outcome = iota + 1
	// OutcomeRelayed means the token was posted to the opener and the popup closed.
	OutcomeRelayed
	// OutcomeFailed means the flow failed and a redirect to login is scheduled.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoggedIn:
		return "logged_in"
	case OutcomeRelayed:
		return "relayed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Completion is the result of one callback. A failed completion owns a pending
// redirect until it fires or Teardown is called.
type Completion struct {
	Outcome  Outcome
	Err      error
	// Message is the user-visible failure text, already URL-decoded.
	Message  string
	Provider string
	State    goAuthClient.State

	mu       sync.Mutex
	task     goAuthClient.Task
	torn     bool
	redirect bool
}

// Teardown cancels the pending redirect. It is safe to call more than once and on
// successful completions.
func (c *Completion) Teardown() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.torn = true
	if c.task != nil {
		c.task.Stop()
		c.task = nil
	}
}

// RedirectPending reports whether a delayed redirect is still scheduled.
func (c *Completion) RedirectPending() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.task != nil && !c.torn && !c.redirect
}

// Handler completes callback URLs.
type Handler struct {
	sessions  Sessions
	cfg       Config
	origin    string
	scheduler goAuthClient.Scheduler
	logger    *slog.Logger
	metrics   *goAuthClient.Metrics
	auditor   Auditor
}

// Option configures a [Handler] or a [Bridge].
type Option func(*options)

type options struct {
	scheduler goAuthClient.Scheduler
	logger    *slog.Logger
	metrics   *goAuthClient.Metrics
	auditor   Auditor
	onResult  func(Result)
	buffer    int
}

// WithScheduler sets the scheduler used for delayed redirects.
func WithScheduler(s goAuthClient.Scheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records completion and bridge counters into m.
func WithMetrics(m *goAuthClient.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithAuditor forwards completion events to a.
func WithAuditor(a Auditor) Option {
	return func(o *options) { o.auditor = a }
}

func buildOptions(opts []Option) options {
	o := options{
		scheduler: goAuthClient.SystemScheduler{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = goAuthClient.SystemScheduler{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	o.logger = o.logger.With("component", "goAuthClient/oauth")
	return o
}

// NewHandler creates a completion handler. cfg.Origin is required for popup mode.
func NewHandler(sessions Sessions, cfg Config, opts ...Option) (*Handler, error) {
	if sessions == nil {
		return nil, errors.New("oauth handler requires sessions")
	}
	if cfg.MessageType == "" {
		cfg.MessageType = DefaultMessageType
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	if cfg.FailureDelay < 0 {
		cfg.FailureDelay = 0
	}
	var origin string
	if cfg.Origin != "" {
		normalized, err := goAuthClient.NormalizeOrigin(cfg.Origin)
		if err != nil {
			return nil, fmt.Errorf("oauth origin: %w", err)
		}
		origin = normalized
	}

	o := buildOptions(opts)
	return &Handler{
		sessions:  sessions,
		cfg:       cfg,
		origin:    origin,
		scheduler: o.scheduler,
		logger:    o.logger,
		metrics:   o.metrics,
		auditor:   o.auditor,
	}, nil
}

// NewHandlerFromClient wires a handler to client's session, configuration,
// scheduler, logger, metrics and audit.
func NewHandlerFromClient(client *goAuthClient.Client, opts ...Option) (*Handler, error) {
	base := []Option{
		WithScheduler(client.Scheduler()),
		WithLogger(client.Logger()),
		WithMetrics(client.Metrics()),
		WithAuditor(client),
	}
	return NewHandler(client.Session(), ConfigFrom(client.Config()), append(base, opts...)...)
}

/*
====================================
COMPLETION
====================================
*/

// Complete processes callbackURL loaded in win. In redirect mode it waits for the
// session context to become ready, bounded by ctx.
func (h *Handler) Complete(ctx context.Context, win Window, callbackURL string) *Completion {
	if win == nil {
		return &Completion{Outcome: OutcomeFailed, Err: ErrNoWindow, Message: ErrNoWindow.Error()}
	}

	u, err := url.Parse(callbackURL)
	if err != nil {
		return h.fail(ctx, win, "", fmt.Errorf("%w: %v", goAuthClient.ErrMissingToken, err), "invalid callback URL")
	}
	query := u.Query()
	provider := query.Get("provider")

	if providerErr := query.Get("error"); providerErr != "" {
		h.metrics.Inc(goAuthClient.MetricOAuthProviderError)
		message := providerErr
		if description := query.Get("error_description"); description != "" {
			message = providerErr + ": " + description
		}
		return h.fail(ctx, win, provider, fmt.Errorf("%w: %s", goAuthClient.ErrProviderError, providerErr), message)
	}

	raw := query.Get("token")
	if raw == "" {
		h.metrics.Inc(goAuthClient.MetricOAuthMissingToken)
		return h.fail(ctx, win, provider, goAuthClient.ErrMissingToken, "no token received")
	}

	if opener, ok := win.Opener(); ok {
		return h.relay(ctx, win, opener, raw, provider)
	}
	return h.login(ctx, win, raw, provider)
}

func (h *Handler) relay(ctx context.Context, win Window, opener Opener, raw, provider string) *Completion {
	if h.origin == "" {
		return h.fail(ctx, win, provider, errors.New("popup completion requires an application origin"), "popup sign-in is not configured")
	}
	msg := Message{Type: h.cfg.MessageType, Token: raw, Provider: provider}
	if err := opener.PostMessage(msg, h.origin); err != nil {
		return h.fail(ctx, win, provider, fmt.Errorf("post to opener: %w", err), "could not reach the original window")
	}
	h.metrics.Inc(goAuthClient.MetricOAuthPopupRelay)
	h.audit(ctx, goAuthClient.AuditOAuthCompleted, provider, "relayed", nil)
	win.Close()
	return &Completion{Outcome: OutcomeRelayed, Provider: provider}
}

func (h *Handler) login(ctx context.Context, win Window, raw, provider string) *Completion {
	select {
	case <-h.sessions.Ready():
	case <-ctx.Done():
		return h.fail(ctx, win, provider, ctx.Err(), "sign-in timed out")
	}

	state, err := h.sessions.Login(ctx, raw, nil)
	if err != nil {
		return h.fail(ctx, win, provider, err, "sign-in failed: the received token is not usable")
	}
	h.metrics.Inc(goAuthClient.MetricOAuthRedirectSuccess)
	h.audit(ctx, goAuthClient.AuditOAuthCompleted, provider, "redirect", nil)
	win.Navigate(h.cfg.HomePath)
	return &Completion{Outcome: OutcomeLoggedIn, Provider: provider, State: state}
}

// fail builds a failed completion and schedules the redirect to login.
func (h *Handler) fail(ctx context.Context, win Window, provider string, err error, message string) *Completion {
	h.logger.Warn("oauth completion failed", "provider", provider, "error", err)
	h.audit(ctx, goAuthClient.AuditOAuthFailed, provider, "", err)

	c := &Completion{
		Outcome:  OutcomeFailed,
		Err:      err,
		Message:  message,
		Provider: provider,
	}
	loginPath := h.cfg.LoginPath

	c.mu.Lock()
	c.task = h.scheduler.AfterFunc(h.cfg.FailureDelay, func() {
		c.mu.Lock()
		if c.torn {
			c.mu.Unlock()
			return
		}
		c.redirect = true
		c.mu.Unlock()
		win.Navigate(loginPath)
	})
	c.mu.Unlock()
	return c
}

func (h *Handler) audit(ctx context.Context, eventType, provider, mode string, err error) {
	if h.auditor == nil {
		return
	}
	event := goAuthClient.AuditEvent{
		EventType: eventType,
		Success:   err == nil,
		Metadata:  map[string]string{"provider": provider},
	}
	if mode != "" {
		event.Metadata["mode"] = mode
	}
	if err != nil {
		event.Error = err.Error()
	}
	h.auditor.EmitAudit(ctx, event)
}
