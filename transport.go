package goAuthClient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Pipeline stage names, in execution order for the outbound request.
const (
	StageAttachCredential  = "attach-credential"
	StageDetectAuthFailure = "detect-auth-failure"
)

// Stage is one named step of the request pipeline.
type Stage struct {
	Name string
	wrap func(next http.RoundTripper) http.RoundTripper
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Authenticator attaches the session credential to outbound requests and forces a
// logout when the backend reports the session as unauthenticated. It never mutates
// session state itself; every change goes through [SessionContext].
type Authenticator struct {
	session *SessionContext
	cfg     TransportConfig
	logger  *slog.Logger
	metrics *Metrics
	stages  []Stage
}

// AuthenticatorOption configures an [Authenticator].
type AuthenticatorOption func(*Authenticator)

// WithAuthenticatorLogger sets the structured logger.
func WithAuthenticatorLogger(logger *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithAuthenticatorMetrics records credential counters and latency into m.
func WithAuthenticatorMetrics(m *Metrics) AuthenticatorOption {
	return func(a *Authenticator) {
		a.metrics = m
	}
}

// NewAuthenticator builds the two-stage pipeline for session.
func NewAuthenticator(session *SessionContext, cfg TransportConfig, opts ...AuthenticatorOption) *Authenticator {
	defaults := DefaultConfig().Transport
	if cfg.HeaderName == "" {
		cfg.HeaderName = defaults.HeaderName
	}
	if cfg.Scheme == "" {
		cfg.Scheme = defaults.Scheme
	}
	if len(cfg.FailureStatuses) == 0 {
		cfg.FailureStatuses = defaults.FailureStatuses
	}

	a := &Authenticator{
		session: session,
		cfg:     cfg,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "goAuthClient")
	a.stages = []Stage{
		{Name: StageAttachCredential, wrap: a.attachCredential},
		{Name: StageDetectAuthFailure, wrap: a.detectAuthFailure},
	}
	return a
}

// Stages returns the stage names in request order.
func (a *Authenticator) Stages() []string {
	names := make([]string, 0, len(a.stages))
	for _, stage := range a.stages {
		names = append(names, stage.Name)
	}
	return names
}

/*
====================================
INSTALLATION
====================================
*/

// pipeline is the installed unit. base is the transport it displaced.
type pipeline struct {
	owner *Authenticator
	base  http.RoundTripper
	rt    http.RoundTripper
}

func (p *pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	return p.rt.RoundTrip(req)
}

var installMu sync.Mutex

// Install places the pipeline on client, displacing any pipeline already installed
// there so stages never stack. The returned function restores the displaced base
// transport if this pipeline is still the one installed; it is idempotent.
//
// Install mutates client.Transport and must not race with requests on client.
func (a *Authenticator) Install(client *http.Client) (uninstall func()) {
	installMu.Lock()
	defer installMu.Unlock()

	p := a.newPipeline(client.Transport)
	client.Transport = p

	var once sync.Once
	return func() {
		once.Do(func() {
			installMu.Lock()
			defer installMu.Unlock()
			if current, ok := client.Transport.(*pipeline); ok && current == p {
				client.Transport = p.base
			}
		})
	}
}

// Wrap returns base wrapped in the pipeline. A pipeline passed as base is unwrapped
// first.
func (a *Authenticator) Wrap(base http.RoundTripper) http.RoundTripper {
	return a.newPipeline(base)
}

func (a *Authenticator) newPipeline(base http.RoundTripper) *pipeline {
	if existing, ok := base.(*pipeline); ok {
		base = existing.base
	}
	rt := base
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(a.stages) - 1; i >= 0; i-- {
		rt = a.stages[i].wrap(rt)
	}
	return &pipeline{owner: a, base: base, rt: rt}
}

/*
====================================
STAGES
====================================
*/

func (a *Authenticator) attachCredential(next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		ctx := req.Context()

		var raw string
		if !skipAuthFromContext(ctx) && a.hostAllowed(req.URL) {
			state := a.session.State()
			if state.Authenticated() {
				if a.session.Store().IsExpired(state.Token) {
					a.session.LogoutIfCurrent(context.WithoutCancel(ctx), state.Token, ReasonTokenExpired)
				} else {
					raw = state.Token
				}
			}
		}

		if raw == "" {
			out := req.Clone(ctx)
			out.Header.Del(a.cfg.HeaderName)
			a.metrics.Inc(MetricCredentialOmitted)
			return next.RoundTrip(out)
		}

		out := req.Clone(withAttachedToken(ctx, raw))
		out.Header.Set(a.cfg.HeaderName, a.cfg.Scheme+" "+raw)
		a.metrics.Inc(MetricCredentialAttached)
		start := time.Now()
		resp, err := next.RoundTrip(out)
		a.metrics.Observe(MetricRequestLatency, time.Since(start))
		return resp, err
	})
}

// detectAuthFailure only acts on requests that carried a credential, and only
// against the session that credential belonged to.
func (a *Authenticator) detectAuthFailure(next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(req)
		if err != nil || resp == nil {
			return resp, err
		}
		if !a.isFailureStatus(resp.StatusCode) {
			return resp, nil
		}

		raw := attachedTokenFromContext(req.Context())
		if raw == "" {
			return resp, nil
		}
		path := req.URL.Path
		if a.isAuthPath(path) || a.isExempt(path) || bestEffortFromContext(req.Context()) {
			return resp, nil
		}

		// The caller may cancel as soon as the response is read; the logout must still finish.
		if a.session.LogoutIfCurrent(context.WithoutCancel(req.Context()), raw, ReasonBackendUnauthenticated) {
			a.logger.Warn("backend rejected session",
				"error", fmt.Errorf("%w: status %d", ErrUnauthenticated, resp.StatusCode),
				"method", req.Method,
				"path", path,
			)
		}
		return resp, nil
	})
}

func (a *Authenticator) isFailureStatus(status int) bool {
	for _, candidate := range a.cfg.FailureStatuses {
		if candidate == status {
			return true
		}
	}
	return false
}

func (a *Authenticator) isAuthPath(path string) bool {
	for _, prefix := range a.cfg.AuthPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// isExempt matches exact paths; an entry ending in "/" matches its subtree.
func (a *Authenticator) isExempt(path string) bool {
	for _, entry := range a.cfg.ExemptPaths {
		if strings.HasSuffix(entry, "/") {
			if strings.HasPrefix(path, entry) {
				return true
			}
			continue
		}
		if path == entry {
			return true
		}
	}
	return false
}

// hostAllowed matches entries against host:port first, then the bare host name.
func (a *Authenticator) hostAllowed(u *url.URL) bool {
	if len(a.cfg.AllowedHosts) == 0 {
		return true
	}
	for _, allowed := range a.cfg.AllowedHosts {
		if strings.EqualFold(allowed, u.Host) || strings.EqualFold(allowed, u.Hostname()) {
			return true
		}
	}
	return false
}
