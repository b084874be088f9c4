package goAuthClient

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/google/uuid"
)

// SessionContext is the process-wide view of the session. It owns the in-memory state,
// serializes every mutation with its persistence and broadcast, and is the only path
// through which other components log in or out.
//
// Subscribers run synchronously on the goroutine that caused the transition, while
// the operation lock is held. They must not call Login or Logout.
type SessionContext struct {
	store       *SessionStore
	logger      *slog.Logger
	metrics     *Metrics
	audit       *internalaudit.Dispatcher
	scheduler   Scheduler
	watchExpiry bool
	leeway      time.Duration

	initOnce sync.Once
	ready    chan struct{}

	// opMu orders mutation, persistence and broadcast. stateMu guards snapshots.
	opMu    sync.Mutex
	stateMu sync.RWMutex
	state   State
	expiry  Task

	subsMu sync.Mutex
	subs   map[uuid.UUID]func(Transition)
}

// SessionOption configures a [SessionContext].
type SessionOption func(*SessionContext)

// WithSessionLogger sets the structured logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *SessionContext) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionScheduler sets the scheduler used by the expiry watch.
func WithSessionScheduler(scheduler Scheduler) SessionOption {
	return func(s *SessionContext) {
		if scheduler != nil {
			s.scheduler = scheduler
		}
	}
}

// WithExpiryWatch toggles the automatic logout at the token's exp.
func WithExpiryWatch(enabled bool) SessionOption {
	return func(s *SessionContext) {
		s.watchExpiry = enabled
	}
}

// WithSessionMetrics records session counters into m.
func WithSessionMetrics(m *Metrics) SessionOption {
	return func(s *SessionContext) {
		s.metrics = m
	}
}

func withSessionAudit(d *internalaudit.Dispatcher) SessionOption {
	return func(s *SessionContext) {
		s.audit = d
	}
}

// NewSessionContext creates an uninitialized context over store.
func NewSessionContext(store *SessionStore, opts ...SessionOption) *SessionContext {
	if store == nil {
		store = NewSessionStore(nil, DefaultConfig().Storage)
	}
	s := &SessionContext{
		store:       store,
		logger:      slog.Default(),
		scheduler:   SystemScheduler{},
		watchExpiry: true,
		leeway:      store.leeway,
		ready:       make(chan struct{}),
		state:       uninitializedState,
		subs:        make(map[uuid.UUID]func(Transition)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "goAuthClient")
	return s
}

/*
====================================
SNAPSHOTS
====================================
*/

// State returns the current snapshot.
func (s *SessionContext) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Initialized reports whether Init has completed.
func (s *SessionContext) Initialized() bool {
	return s.State().Initialized()
}

// Ready is closed once Init has completed.
func (s *SessionContext) Ready() <-chan struct{} {
	return s.ready
}

// Store returns the backing store.
func (s *SessionContext) Store() *SessionStore {
	return s.store
}

/*
====================================
LIFECYCLE
====================================
*/

// Init loads the persisted record exactly once. Later calls return the current state.
// Load failures never surface as errors: they resolve to the anonymous state and the
// reason is logged and audited.
func (s *SessionContext) Init(ctx context.Context) State {
	s.initOnce.Do(func() {
		s.opMu.Lock()
		defer s.opMu.Unlock()
		defer close(s.ready)

		next, err := s.store.Load(ctx)
		reason := loadReason(next, err)

		switch {
		case next.Authenticated():
			s.metrics.Inc(MetricSessionRestored)
			s.logger.Info("session restored", "subject", next.Subject(), "expires_at", next.ExpiresAt())
		case err != nil:
			s.metrics.Inc(MetricSessionDiscarded)
			s.logger.Warn("persisted session discarded", "reason", reason, "error", err)
		default:
			s.logger.Debug("no persisted session")
		}

		eventType := internalaudit.EventSessionRestored
		if !next.Authenticated() {
			eventType = internalaudit.EventSessionDiscarded
		}
		t := s.commitLocked(next, reason)
		s.emitAudit(ctx, eventType, t, next, err)
	})
	return s.State()
}

// Login persists raw with profile and moves to the authenticated state. A rejected
// token leaves both the persisted record and the current state unchanged.
func (s *SessionContext) Login(ctx context.Context, raw string, profile *Profile) (State, error) {
	if !s.Initialized() {
		return s.State(), ErrSessionNotInitialized
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	next, err := s.store.Save(ctx, raw, profile)
	if err != nil {
		s.metrics.Inc(MetricLoginRejected)
		s.logger.Warn("login rejected", "error", err)
		s.emitAudit(ctx, internalaudit.EventLoginRejected, Transition{
			ID:     uuid.New(),
			From:   s.State().Status,
			To:     s.State(),
			Reason: ReasonLogin,
			At:     s.store.Now(),
		}, s.State(), err)
		return s.State(), err
	}

	s.metrics.Inc(MetricLoginSuccess)
	t := s.commitLocked(next, ReasonLogin)
	s.emitAudit(ctx, internalaudit.EventLogin, t, next, nil)
	return next, nil
}

// Logout clears the persisted record and moves to the anonymous state. It reports
// true only for the call that performed the transition; concurrent or repeated
// logouts still clear storage but broadcast nothing.
func (s *SessionContext) Logout(ctx context.Context, reason string) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.logoutLocked(ctx, reason)
}

// LogoutIfCurrent logs out only while raw is still the current session token. A
// failure observed for a replaced token leaves the newer session and its storage
// untouched and returns false.
func (s *SessionContext) LogoutIfCurrent(ctx context.Context, raw, reason string) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if raw == "" || s.State().Token != raw {
		return false
	}
	return s.logoutLocked(ctx, reason)
}

func (s *SessionContext) logoutLocked(ctx context.Context, reason string) bool {
	if reason == "" {
		reason = ReasonUserLogout
	}
	clearErr := s.store.Clear(ctx)
	if clearErr != nil {
		s.logger.Error("failed to clear persisted session", "reason", reason, "error", clearErr)
	}

	prev := s.State()
	if !prev.Authenticated() {
		return false
	}

	s.metrics.Inc(MetricLogout)
	switch reason {
	case ReasonBackendUnauthenticated:
		s.metrics.Inc(MetricForcedLogout)
		s.logger.Warn("forced logout", "reason", reason)
	case ReasonTokenExpired:
		s.metrics.Inc(MetricExpiryLogout)
		s.logger.Info("session expired")
	}

	t := s.commitLocked(anonymousState, reason)
	s.emitAudit(ctx, internalaudit.EventLogout, t, prev, clearErr)
	return true
}

// Subscribe registers fn for every transition. The returned function unregisters it
// and is safe to call more than once.
func (s *SessionContext) Subscribe(fn func(Transition)) func() {
	if fn == nil {
		return func() {}
	}
	id := uuid.New()
	s.subsMu.Lock()
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// Close cancels the expiry watch.
func (s *SessionContext) Close() {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.stopExpiryLocked()
}

/*
====================================
INTERNALS
====================================
*/

// commitLocked swaps the state, re-arms the expiry watch, and broadcasts. Caller holds opMu.
func (s *SessionContext) commitLocked(next State, reason string) Transition {
	s.stateMu.Lock()
	prev := s.state
	s.state = next
	s.stateMu.Unlock()

	s.stopExpiryLocked()
	if next.Authenticated() {
		s.armExpiryLocked(next.Token, next.ExpiresAt())
	}

	t := Transition{
		ID:     uuid.New(),
		From:   prev.Status,
		To:     next,
		Reason: reason,
		At:     s.store.Now(),
	}
	s.broadcast(t)
	return t
}

func (s *SessionContext) broadcast(t Transition) {
	s.subsMu.Lock()
	subs := make([]func(Transition), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		s.notify(fn, t)
	}
}

func (s *SessionContext) notify(fn func(Transition), t Transition) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session subscriber panicked", "transition", t.ID.String(), "panic", r)
		}
	}()
	fn(t)
}

func (s *SessionContext) armExpiryLocked(raw string, exp time.Time) {
	if !s.watchExpiry || exp.IsZero() {
		return
	}
	delay := exp.Add(s.leeway).Sub(s.store.Now()) + time.Millisecond
	if delay < 0 {
		delay = 0
	}
	s.expiry = s.scheduler.AfterFunc(delay, func() {
		s.expire(raw, exp)
	})
}

func (s *SessionContext) stopExpiryLocked() {
	if s.expiry != nil {
		s.expiry.Stop()
		s.expiry = nil
	}
}

func (s *SessionContext) expire(raw string, exp time.Time) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	// A newer session replaced the one this task was armed for.
	if s.State().Token != raw {
		return
	}
	if !s.store.IsExpired(raw) {
		s.stopExpiryLocked()
		s.armExpiryLocked(raw, exp)
		return
	}
	s.logoutLocked(context.Background(), ReasonTokenExpired)
}

// emitAudit records t. subject is the state whose identity the event is about, which
// for a logout is the state being left.
func (s *SessionContext) emitAudit(ctx context.Context, eventType string, t Transition, subject State, err error) {
	if s.audit == nil {
		return
	}
	event := internalaudit.Event{
		EventType:    eventType,
		TransitionID: t.ID.String(),
		Subject:      subject.Subject(),
		Role:         subject.Role(),
		Reason:       t.Reason,
		Success:      err == nil,
		Metadata: map[string]string{
			"from": t.From.String(),
			"to":   t.To.Status.String(),
		},
	}
	if err != nil {
		event.Error = err.Error()
	}
	s.audit.Emit(ctx, event)
}

func loadReason(state State, err error) string {
	switch {
	case state.Authenticated():
		return ReasonRestored
	case errors.Is(err, ErrInvalidTokenFormat):
		return ReasonInvalidToken
	case errors.Is(err, ErrTokenExpired):
		return ReasonTokenExpired
	case errors.Is(err, ErrStorageUnavailable):
		return ReasonStorageUnavailable
	default:
		return ReasonNoSession
	}
}
