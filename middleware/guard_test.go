package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/token"
	"github.com/golang-jwt/jwt/v5"
)

type staticState goAuthClient.State

func (s staticState) State() goAuthClient.State { return goAuthClient.State(s) }

func authenticated(role string) staticState {
	return staticState(goAuthClient.State{
		Status: goAuthClient.StatusAuthenticated,
		Token:  "a.b.c",
		Claims: &token.Claims{
			Role: role,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "u1",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		},
	})
}

func serve(t *testing.T, mw func(http.Handler) http.Handler) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		state, ok := StateFromContext(r.Context())
		if !ok || !state.Authenticated() {
			t.Fatal("expected state in request context")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	return rec, reached
}

func TestGateResponses(t *testing.T) {
	gate := goAuthClient.AccessGate{LoginPath: "/login", NotAuthorizedPath: "/"}

	tests := []struct {
		name     string
		session  StateProvider
		role     string
		status   int
		location string
		reached  bool
	}{
		{name: "initializing", session: staticState(goAuthClient.State{}), role: "admin", status: http.StatusServiceUnavailable},
		{name: "anonymous", session: staticState(goAuthClient.State{Status: goAuthClient.StatusAnonymous}), status: http.StatusFound, location: "/login"},
		{name: "artist on admin route", session: authenticated("artist"), role: "admin", status: http.StatusFound, location: "/"},
		{name: "admin on admin route", session: authenticated("admin"), role: "admin", status: http.StatusNoContent, reached: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, reached := serve(t, RequireRole(tt.session, gate, tt.role))
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			if reached != tt.reached {
				t.Fatalf("expected reached=%v", tt.reached)
			}
			if got := rec.Header().Get("Location"); got != tt.location {
				t.Fatalf("expected location %q, got %q", tt.location, got)
			}
		})
	}
}

func TestGatePendingSetsRetryAfter(t *testing.T) {
	rec, _ := serve(t, RequireAuth(staticState(goAuthClient.State{}), goAuthClient.AccessGate{}))
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatal("expected Retry-After header while initializing")
	}
}

func TestGateWithoutSession(t *testing.T) {
	rec, reached := serve(t, RequireAuth(nil, goAuthClient.AccessGate{}))
	if reached || rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a session, got %d", rec.Code)
	}
}
