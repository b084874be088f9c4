package goAuthClient

import (
	"io"

	internalaudit "github.com/MrEthical07/goAuthClient/internal/audit"
)

// AuditEvent is one structured audit record. It never carries the raw token.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the asynchronous dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink buffers events in a channel for the caller to drain.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON document per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// Audit event types.
const (
	AuditSessionRestored  = internalaudit.EventSessionRestored
	AuditSessionDiscarded = internalaudit.EventSessionDiscarded
	AuditLogin            = internalaudit.EventLogin
	AuditLoginRejected    = internalaudit.EventLoginRejected
	AuditLogout           = internalaudit.EventLogout
	AuditOAuthCompleted   = internalaudit.EventOAuthCompleted
	AuditOAuthFailed      = internalaudit.EventOAuthFailed
	AuditBridgeRejected   = internalaudit.EventBridgeRejected
)

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *internalaudit.Dispatcher {
	return internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}
