package internaldefs

import (
	goAuthClient "github.com/MrEthical07/goAuthClient"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goAuthClient.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter of audit events lost to backpressure.
const AuditDroppedName = "goauthclient_audit_dropped_total"

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goAuthClient.MetricLoginSuccess, Name: "goauthclient_login_success_total", Help: "Logins that persisted a session."},
	{ID: goAuthClient.MetricLoginRejected, Name: "goauthclient_login_rejected_total", Help: "Logins refused for an invalid or expired token."},
	{ID: goAuthClient.MetricSessionRestored, Name: "goauthclient_session_restored_total", Help: "Startups that restored a persisted session."},
	{ID: goAuthClient.MetricSessionDiscarded, Name: "goauthclient_session_discarded_total", Help: "Startups that discarded a persisted record."},
	{ID: goAuthClient.MetricLogout, Name: "goauthclient_logout_total", Help: "Logout transitions of any cause."},
	{ID: goAuthClient.MetricForcedLogout, Name: "goauthclient_forced_logout_total", Help: "Logouts caused by a backend authentication failure."},
	{ID: goAuthClient.MetricExpiryLogout, Name: "goauthclient_expiry_logout_total", Help: "Logouts caused by token expiry."},
	{ID: goAuthClient.MetricCredentialAttached, Name: "goauthclient_credential_attached_total", Help: "Outbound requests that carried the credential."},
	{ID: goAuthClient.MetricCredentialOmitted, Name: "goauthclient_credential_omitted_total", Help: "Outbound requests sent without a credential."},
	{ID: goAuthClient.MetricOAuthRedirectSuccess, Name: "goauthclient_oauth_redirect_success_total", Help: "Redirect-mode OAuth completions that logged in."},
	{ID: goAuthClient.MetricOAuthPopupRelay, Name: "goauthclient_oauth_popup_relay_total", Help: "Popup-mode OAuth completions relayed to the opener."},
	{ID: goAuthClient.MetricOAuthProviderError, Name: "goauthclient_oauth_provider_error_total", Help: "OAuth completions carrying a provider error."},
	{ID: goAuthClient.MetricOAuthMissingToken, Name: "goauthclient_oauth_missing_token_total", Help: "OAuth completions with neither token nor error."},
	{ID: goAuthClient.MetricBridgeAccepted, Name: "goauthclient_bridge_accepted_total", Help: "Popup messages accepted by the opener."},
	{ID: goAuthClient.MetricBridgeRejected, Name: "goauthclient_bridge_rejected_total", Help: "Popup messages rejected or dropped by the opener."},
	{ID: goAuthClient.MetricGateRender, Name: "goauthclient_gate_render_total", Help: "Gate evaluations that rendered content."},
	{ID: goAuthClient.MetricGateRedirectLogin, Name: "goauthclient_gate_redirect_login_total", Help: "Gate redirects to the login path."},
	{ID: goAuthClient.MetricGateRedirectNotAuthorized, Name: "goauthclient_gate_redirect_not_authorized_total", Help: "Gate redirects caused by a role mismatch."},
	{ID: goAuthClient.MetricGatePending, Name: "goauthclient_gate_pending_total", Help: "Gate evaluations made before initialization."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goAuthClient.MetricRequestLatency, Name: "goauthclient_request_latency_seconds", Help: "Latency of round trips that carried the credential."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket is +Inf.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, +Inf included, for flat gauge export.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
