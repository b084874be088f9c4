package oauth

import (
	"context"
	"errors"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

func runBridge(t *testing.T, b *Bridge) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitResult(t *testing.T, results <-chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for bridge result")
		return Result{}
	}
}

func newTestBridge(t *testing.T, session Sessions, opts ...Option) (*Bridge, chan Result) {
	t.Helper()
	results := make(chan Result, 8)
	b, err := NewBridge(session, testOrigin, append([]Option{WithOnResult(func(r Result) { results <- r })}, opts...)...)
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}
	return b, results
}

func encode(t *testing.T, msg Message) []byte {
	t.Helper()
	data, err := EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func TestBridgeAcceptsSameOriginMessage(t *testing.T) {
	session := newTestSession(t, true)
	metrics := goAuthClient.NewMetrics(goAuthClient.MetricsConfig{Enabled: true})
	b, results := newTestBridge(t, session, WithMetrics(metrics))
	runBridge(t, b)
	raw := mintToken(t, "u1", "artist", time.Hour)

	b.Deliver(Envelope{Origin: testOrigin, Data: encode(t, Message{Type: "oauth-callback", Token: raw, Provider: "google"})})
	r := waitResult(t, results)
	if r.Err != nil {
		t.Fatalf("expected acceptance, got %v", r.Err)
	}
	if session.State().Token != raw {
		t.Fatal("expected login through the session context")
	}
	if metrics.Value(goAuthClient.MetricBridgeAccepted) != 1 {
		t.Fatal("expected accepted metric")
	}
}

func TestBridgeQueuesUntilSessionReady(t *testing.T) {
	session := newTestSession(t, false)
	b, results := newTestBridge(t, session)
	raw := mintToken(t, "u1", "artist", time.Hour)

	// The popup answers before the opener has finished its initial load.
	if !b.Deliver(Envelope{Origin: testOrigin, Data: encode(t, Message{Type: "oauth-callback", Token: raw})}) {
		t.Fatal("expected message to be queued")
	}
	runBridge(t, b)

	select {
	case <-results:
		t.Fatal("no message may be handled before init")
	case <-time.After(20 * time.Millisecond):
	}

	session.Init(context.Background())
	if r := waitResult(t, results); r.Err != nil {
		t.Fatalf("expected queued message accepted after init, got %v", r.Err)
	}
	if !session.State().Authenticated() {
		t.Fatal("expected authenticated session")
	}
}

func TestBridgeRejects(t *testing.T) {
	raw := "a.b.c"
	tests := []struct {
		name string
		env  Envelope
		want error
	}{
		{name: "foreign origin", env: Envelope{Origin: "https://evil.example", Data: []byte(`{"type":"oauth-callback","token":"a.b.c"}`)}, want: ErrOriginMismatch},
		{name: "wrong type", env: Envelope{Origin: testOrigin, Data: []byte(`{"type":"chat","token":"` + raw + `"}`)}, want: ErrUnexpectedMessage},
		{name: "empty token", env: Envelope{Origin: testOrigin, Data: []byte(`{"type":"oauth-callback"}`)}, want: ErrUnexpectedMessage},
		{name: "not json", env: Envelope{Origin: testOrigin, Data: []byte(`oauth-callback`)}, want: ErrMalformedMessage},
		{name: "bad token", env: Envelope{Origin: testOrigin, Data: []byte(`{"type":"oauth-callback","token":"nope"}`)}, want: goAuthClient.ErrInvalidTokenFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := newTestSession(t, true)
			auditor := &captureAuditor{}
			b, results := newTestBridge(t, session, WithAuditor(auditor))
			runBridge(t, b)

			b.Deliver(tt.env)
			r := waitResult(t, results)
			if !errors.Is(r.Err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, r.Err)
			}
			if session.State().Authenticated() {
				t.Fatal("rejected message must not log in")
			}
			if types := auditor.types(); len(types) != 1 || types[0] != goAuthClient.AuditBridgeRejected {
				t.Fatalf("unexpected audit events %v", types)
			}
		})
	}
}

func TestBridgeDeliverNeverBlocks(t *testing.T) {
	b, _ := newTestBridge(t, newTestSession(t, false), WithBuffer(1))
	if !b.Deliver(Envelope{Origin: testOrigin}) {
		t.Fatal("first delivery must fit")
	}
	if b.Deliver(Envelope{Origin: testOrigin}) {
		t.Fatal("second delivery must be refused")
	}
}

func TestBridgeOpenerDropsMismatchedTarget(t *testing.T) {
	session := newTestSession(t, true)
	b, results := newTestBridge(t, session)
	runBridge(t, b)
	raw := mintToken(t, "u1", "artist", time.Hour)

	opener := b.Opener(testOrigin)
	if err := opener.PostMessage(Message{Type: "oauth-callback", Token: raw}, "https://other.example"); err != nil {
		t.Fatalf("mismatched target must be dropped silently, got %v", err)
	}
	select {
	case r := <-results:
		t.Fatalf("dropped message reached the bridge: %+v", r)
	case <-time.After(20 * time.Millisecond):
	}

	if err := opener.PostMessage(Message{Type: "oauth-callback", Token: raw}, testOrigin+"/"); err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if r := waitResult(t, results); r.Err != nil {
		t.Fatalf("expected acceptance, got %v", r.Err)
	}
}

func TestPopupToOpenerEndToEnd(t *testing.T) {
	opener := newTestSession(t, true)
	popup := newTestSession(t, true)
	b, results := newTestBridge(t, opener)
	runBridge(t, b)
	h, _ := newTestHandler(t, popup)
	raw := mintToken(t, "u9", "admin", time.Hour)
	win := &fakeWindow{opener: b.Opener(testOrigin)}

	c := h.Complete(context.Background(), win, callbackURL(map[string][]string{"token": {raw}, "provider": {"github"}}))
	if c.Outcome != OutcomeRelayed {
		t.Fatalf("expected relay, got %v (%v)", c.Outcome, c.Err)
	}
	if r := waitResult(t, results); r.Err != nil || r.Message.Provider != "github" {
		t.Fatalf("unexpected result %+v", r)
	}
	if opener.State().Role() != "admin" || popup.State().Authenticated() {
		t.Fatal("only the opener may hold the session")
	}
}

func TestMessageRoundTrip(t *testing.T) {
	data := encode(t, Message{Type: "oauth-callback", Token: "a.b.c"})
	if string(data) != `{"type":"oauth-callback","token":"a.b.c"}` {
		t.Fatalf("unexpected wire form %s", data)
	}
	msg, err := DecodeMessage(data)
	if err != nil || msg.Token != "a.b.c" {
		t.Fatalf("decode failed: %+v %v", msg, err)
	}
}
