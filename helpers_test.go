package goAuthClient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/MrEthical07/goAuthClient/token"
	"github.com/golang-jwt/jwt/v5"
)

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mintToken(t testing.TB, subject, role string, exp time.Time) string {
	t.Helper()
	claims := token.Claims{
		Role: role,
		Name: "Test " + subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return raw
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: testEpoch}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// manualScheduler records tasks and fires them only when told to.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

type manualTask struct {
	delay   time.Duration
	fn      func()
	mu      sync.Mutex
	stopped bool
	fired   bool
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Task {
	task := &manualTask{delay: d, fn: f}
	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()
	return task
}

func (t *manualTask) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTask) fire() bool {
	t.mu.Lock()
	if t.stopped || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()
	t.fn()
	return true
}

func (s *manualScheduler) pending() []*manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*manualTask
	for _, task := range s.tasks {
		task.mu.Lock()
		live := !task.stopped && !task.fired
		task.mu.Unlock()
		if live {
			out = append(out, task)
		}
	}
	return out
}

// FireAll runs every live task and returns how many ran.
func (s *manualScheduler) FireAll() int {
	fired := 0
	for _, task := range s.pending() {
		if task.fire() {
			fired++
		}
	}
	return fired
}

type failingBackend struct {
	storage.Backend
	failGet    bool
	failPut    bool
	failDelete bool
}

var errBackendDown = errors.New("backend down")

func (f *failingBackend) Get(ctx context.Context, key string) (string, bool, error) {
	if f.failGet {
		return "", false, errBackendDown
	}
	return f.Backend.Get(ctx, key)
}

func (f *failingBackend) Put(ctx context.Context, entries map[string]string, ttl time.Duration) error {
	if f.failPut {
		return errBackendDown
	}
	return f.Backend.Put(ctx, entries, ttl)
}

func (f *failingBackend) Delete(ctx context.Context, keys ...string) error {
	if f.failDelete {
		return errBackendDown
	}
	return f.Backend.Delete(ctx, keys...)
}
