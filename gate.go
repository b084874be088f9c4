package goAuthClient

// DecisionKind is the outcome class of an access evaluation.
type DecisionKind uint8

const (
	// DecisionPending means the session has not finished initializing; render nothing
	// and evaluate again once it has.
	DecisionPending DecisionKind = iota
	// DecisionRender means the protected content may be shown.
	DecisionRender
	// DecisionRedirect means navigation must move to Decision.Target.
	DecisionRedirect
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionPending:
		return "pending"
	case DecisionRender:
		return "render"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the result of [AccessGate.Evaluate].
type Decision struct {
	Kind   DecisionKind
	Target string
	// Reason is "anonymous" or "role_mismatch" for redirects.
	Reason string
}

// AccessGate decides whether protected content may render for a session state.
// It holds no state of its own and never caches a decision.
type AccessGate struct {
	LoginPath         string
	NotAuthorizedPath string
	metrics           *Metrics
}

// NewAccessGate builds a gate from the route configuration.
func NewAccessGate(routes RouteConfig, metrics *Metrics) AccessGate {
	return AccessGate{
		LoginPath:         routes.LoginPath,
		NotAuthorizedPath: routes.NotAuthorizedPath,
		metrics:           metrics,
	}
}

// Evaluate applies, in order: not initialized is pending; anonymous redirects to the
// login path; a required role that differs from the token's role claim redirects to
// the not-authorized path; otherwise content renders. An empty requiredRole accepts
// any authenticated session.
func (g AccessGate) Evaluate(state State, requiredRole string) Decision {
	if !state.Initialized() {
		g.metrics.Inc(MetricGatePending)
		return Decision{Kind: DecisionPending}
	}
	if !state.Authenticated() {
		g.metrics.Inc(MetricGateRedirectLogin)
		return Decision{Kind: DecisionRedirect, Target: orDefault(g.LoginPath, "/login"), Reason: "anonymous"}
	}
	if requiredRole != "" && state.Role() != requiredRole {
		g.metrics.Inc(MetricGateRedirectNotAuthorized)
		return Decision{Kind: DecisionRedirect, Target: orDefault(g.NotAuthorizedPath, "/"), Reason: "role_mismatch"}
	}
	g.metrics.Inc(MetricGateRender)
	return Decision{Kind: DecisionRender}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
