package oauth

import (
	"context"
	"sync"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/token"
	"github.com/golang-jwt/jwt/v5"
)

const testOrigin = "https://shop.example"

func mintToken(t *testing.T, subject, role string, ttl time.Duration) string {
	t.Helper()
	claims := token.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("oauth-test"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return raw
}

func newTestSession(t *testing.T, initialized bool) *goAuthClient.SessionContext {
	t.Helper()
	store := goAuthClient.NewSessionStore(nil, goAuthClient.DefaultConfig().Storage)
	session := goAuthClient.NewSessionContext(store, goAuthClient.WithExpiryWatch(false))
	if initialized {
		session.Init(context.Background())
	}
	return session
}

type fakeWindow struct {
	mu       sync.Mutex
	opener   Opener
	closed   bool
	navigate []string
}

func (w *fakeWindow) Opener() (Opener, bool) {
	return w.opener, w.opener != nil
}

func (w *fakeWindow) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
}

func (w *fakeWindow) Navigate(path string) {
	w.mu.Lock()
	w.navigate = append(w.navigate, path)
	w.mu.Unlock()
}

func (w *fakeWindow) navigations() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.navigate...)
}

type recordingOpener struct {
	mu       sync.Mutex
	messages []Message
	targets  []string
	err      error
}

func (o *recordingOpener) PostMessage(msg Message, targetOrigin string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.messages = append(o.messages, msg)
	o.targets = append(o.targets, targetOrigin)
	return nil
}

type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	delay   time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) goAuthClient.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{delay: d, fn: f}
	s.tasks = append(s.tasks, task)
	return task
}

func (t *manualTask) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (s *manualScheduler) fireAll() int {
	s.mu.Lock()
	tasks := append([]*manualTask(nil), s.tasks...)
	s.mu.Unlock()
	fired := 0
	for _, task := range tasks {
		if task.stopped || task.fired {
			continue
		}
		task.fired = true
		task.fn()
		fired++
	}
	return fired
}

func (s *manualScheduler) last() *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tasks) == 0 {
		return nil
	}
	return s.tasks[len(s.tasks)-1]
}

type captureAuditor struct {
	mu     sync.Mutex
	events []goAuthClient.AuditEvent
}

func (a *captureAuditor) EmitAudit(_ context.Context, event goAuthClient.AuditEvent) {
	a.mu.Lock()
	a.events = append(a.events, event)
	a.mu.Unlock()
}

func (a *captureAuditor) types() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.events))
	for _, event := range a.events {
		out = append(out, event.EventType)
	}
	return out
}
