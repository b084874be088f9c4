package middleware

import (
	"context"
	"net/http"

	goAuthClient "github.com/MrEthical07/goAuthClient"
)

type stateContextKey struct{}

// StateProvider yields the current session snapshot.
type StateProvider interface {
	State() goAuthClient.State
}

// StateFromContext returns the session state stored by [Gate] for a rendered request.
func StateFromContext(ctx context.Context) (goAuthClient.State, bool) {
	state, ok := ctx.Value(stateContextKey{}).(goAuthClient.State)
	return state, ok
}

// Gate evaluates gate against the session on every request.
func Gate(session StateProvider, gate goAuthClient.AccessGate, requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session == nil {
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}

			state := session.State()
			decision := gate.Evaluate(state, requiredRole)

			switch decision.Kind {
			case goAuthClient.DecisionRender:
				ctx := context.WithValue(r.Context(), stateContextKey{}, state)
				next.ServeHTTP(w, r.WithContext(ctx))
			case goAuthClient.DecisionRedirect:
				http.Redirect(w, r, decision.Target, http.StatusFound)
			default:
				w.Header().Set("Retry-After", "1")
				http.Error(w, "session initializing", http.StatusServiceUnavailable)
			}
		})
	}
}

// RequireAuth admits any authenticated session.
func RequireAuth(session StateProvider, gate goAuthClient.AccessGate) func(http.Handler) http.Handler {
	return Gate(session, gate, "")
}

// RequireRole admits sessions whose token carries role.
func RequireRole(session StateProvider, gate goAuthClient.AccessGate, role string) func(http.Handler) http.Handler {
	return Gate(session, gate, role)
}
