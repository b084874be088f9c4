package goAuthClient

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type captureSink struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (s *captureSink) Emit(_ context.Context, event AuditEvent) {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
}

func (s *captureSink) snapshot() []AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEvent(nil), s.events...)
}

type gateSink struct {
	gate chan struct{}
}

func (s *gateSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}

func buildAuditTestClient(t *testing.T, cfg AuditConfig, sink AuditSink) (*Client, *testClock) {
	t.Helper()
	clock := newTestClock()
	all := DefaultConfig()
	all.Audit = cfg
	client, err := New().
		WithConfig(all).
		WithClock(clock.Now).
		WithScheduler(&manualScheduler{}).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	return client, clock
}

func TestAuditRecordsSessionLifecycle(t *testing.T) {
	sink := &captureSink{}
	client, clock := buildAuditTestClient(t, AuditConfig{Enabled: true, BufferSize: 16}, sink)
	ctx := context.Background()

	client.Session().Init(ctx)
	raw := mintToken(t, "u1", "artist", clock.Now().Add(time.Hour))
	if _, err := client.Session().Login(ctx, raw, nil); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	_, _ = client.Session().Login(ctx, "bad", nil)
	client.Session().Logout(ctx, ReasonBackendUnauthenticated)

	if err := client.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	events := sink.snapshot()
	want := []string{AuditSessionDiscarded, AuditLogin, AuditLoginRejected, AuditLogout}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, event := range events {
		if event.EventType != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], event.EventType)
		}
		if event.TransitionID == "" {
			t.Fatalf("event %d: missing transition id", i)
		}
		if strings.Contains(event.Error, raw) {
			t.Fatalf("event %d leaked the token", i)
		}
	}

	logout := events[3]
	if logout.Subject != "u1" || logout.Role != "artist" || logout.Reason != ReasonBackendUnauthenticated {
		t.Fatalf("logout must describe the session being left: %+v", logout)
	}
	if events[2].Success {
		t.Fatal("rejected login must not be marked successful")
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	sink := &captureSink{}
	client, _ := buildAuditTestClient(t, AuditConfig{Enabled: false}, sink)
	client.Session().Init(context.Background())
	_ = client.Close(context.Background())

	if n := len(sink.snapshot()); n != 0 {
		t.Fatalf("expected no events, got %d", n)
	}
}

func TestAuditDropIfFullCountsDrops(t *testing.T) {
	sink := &gateSink{gate: make(chan struct{})}
	client, _ := buildAuditTestClient(t, AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)
	ctx := context.Background()
	client.Session().Init(ctx)

	for i := 0; i < 20; i++ {
		client.EmitAudit(ctx, AuditEvent{EventType: AuditOAuthFailed})
	}

	deadline := time.Now().Add(time.Second)
	for client.AuditDropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if client.AuditDropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}

	close(sink.gate)
	if err := client.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}
