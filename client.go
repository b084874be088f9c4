package goAuthClient

import (
	"context"
	"errors"
	"log/slog"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
	"github.com/MrEthical07/goAuthClient/storage"
)

// Client bundles the session components built by [Builder].
type Client struct {
	config        Config
	backend       storage.Backend
	store         *SessionStore
	session       *SessionContext
	authenticator *Authenticator
	gate          AccessGate
	metrics       *Metrics
	audit         *internalaudit.Dispatcher
	logger        *slog.Logger
	scheduler     Scheduler
}

// Store returns the persisted-record owner.
func (c *Client) Store() *SessionStore { return c.store }

// Session returns the process-wide session state.
func (c *Client) Session() *SessionContext { return c.session }

// Authenticator returns the outbound request pipeline.
func (c *Client) Authenticator() *Authenticator { return c.authenticator }

// Gate returns the route access gate.
func (c *Client) Gate() AccessGate { return c.gate }

// Metrics returns the counter set shared by every component.
func (c *Client) Metrics() *Metrics { return c.metrics }

// Logger returns the structured logger components log through.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Scheduler returns the scheduler driving expiry and redirect timers.
func (c *Client) Scheduler() Scheduler { return c.scheduler }

// Config returns a copy of the validated configuration.
func (c *Client) Config() Config {
	return cloneConfig(c.config)
}

// AuditDropped returns the number of audit events lost to backpressure.
func (c *Client) AuditDropped() uint64 {
	if c == nil {
		return 0
	}
	return c.audit.Dropped()
}

// MetricsSnapshot returns a copy of every counter.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// Close stops the expiry watch, drains the audit queue and closes the backend.
func (c *Client) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	c.session.Close()
	return errors.Join(
		c.audit.Close(ctx),
		c.backend.Close(),
	)
}

// EmitAudit queues event on the audit dispatcher. It is a no-op when audit is disabled.
func (c *Client) EmitAudit(ctx context.Context, event AuditEvent) {
	if c == nil {
		return
	}
	c.audit.Emit(ctx, event)
}
