package goAuthClient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// EnvPrefix is prepended to every environment variable read by [LoadConfigFromEnv].
const EnvPrefix = "GOAUTHCLIENT_"

// Config holds every tunable of the session subsystem. Obtain one from
// [DefaultConfig], adjust it, and pass it to [Builder.WithConfig].
type Config struct {
	Storage   StorageConfig   `envPrefix:"STORAGE_" yaml:"storage"`
	Token     TokenConfig     `envPrefix:"TOKEN_" yaml:"token"`
	Transport TransportConfig `envPrefix:"TRANSPORT_" yaml:"transport"`
	Routes    RouteConfig     `envPrefix:"ROUTES_" yaml:"routes"`
	OAuth     OAuthConfig     `envPrefix:"OAUTH_" yaml:"oauth"`
	Audit     AuditConfig     `envPrefix:"AUDIT_" yaml:"audit"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_" yaml:"metrics"`
}

/*
====================================
STORAGE CONFIG
====================================
*/

// StorageConfig names the two independent persisted entries.
type StorageConfig struct {
	TokenKey string `env:"TOKEN_KEY" yaml:"token_key"`
	UserKey  string `env:"USER_KEY" yaml:"user_key"`
	// ExpireWithToken gives both entries a backend TTL equal to the token lifetime.
	ExpireWithToken bool `env:"EXPIRE_WITH_TOKEN" yaml:"expire_with_token"`
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls client-side expiry evaluation.
type TokenConfig struct {
	// Leeway tolerates clock skew against the issuer. Capped at two minutes.
	Leeway time.Duration `env:"LEEWAY" yaml:"leeway"`
	// WatchExpiry schedules an automatic logout at the exp claim.
	WatchExpiry bool `env:"WATCH_EXPIRY" yaml:"watch_expiry"`
}

/*
====================================
TRANSPORT CONFIG
====================================
*/

// TransportConfig controls the request pipeline installed by [Authenticator].
type TransportConfig struct {
	HeaderName string `env:"HEADER_NAME" yaml:"header_name"`
	Scheme     string `env:"SCHEME" yaml:"scheme"`
	// AuthPathPrefixes identify authentication endpoints; failures there never force
	// a logout.
	AuthPathPrefixes []string `env:"AUTH_PATH_PREFIXES" envSeparator:"," yaml:"auth_path_prefixes"`
	// ExemptPaths are best-effort endpoints whose failures never force a logout.
	ExemptPaths []string `env:"EXEMPT_PATHS" envSeparator:"," yaml:"exempt_paths"`
	// FailureStatuses are the response codes treated as an authentication failure.
	FailureStatuses []int `env:"FAILURE_STATUSES" envSeparator:"," yaml:"failure_statuses"`
	// AllowedHosts restricts credential attachment; empty means every host.
	AllowedHosts []string `env:"ALLOWED_HOSTS" envSeparator:"," yaml:"allowed_hosts"`
}

/*
====================================
ROUTE + OAUTH CONFIG
====================================
*/

// RouteConfig names the navigation targets used by the gate and OAuth completion.
type RouteConfig struct {
	LoginPath         string `env:"LOGIN_PATH" yaml:"login_path"`
	HomePath          string `env:"HOME_PATH" yaml:"home_path"`
	NotAuthorizedPath string `env:"NOT_AUTHORIZED_PATH" yaml:"not_authorized_path"`
}

// OAuthConfig controls identity-provider completion.
type OAuthConfig struct {
	// Origin is the application's own origin (scheme://host[:port]). Popup messages
	// are only sent to and accepted from it.
	Origin               string        `env:"ORIGIN" yaml:"origin"`
	MessageType          string        `env:"MESSAGE_TYPE" yaml:"message_type"`
	FailureRedirectDelay time.Duration `env:"FAILURE_REDIRECT_DELAY" yaml:"failure_redirect_delay"`
	BridgeBuffer         int           `env:"BRIDGE_BUFFER" yaml:"bridge_buffer"`
}

/*
====================================
AUDIT + METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `env:"ENABLED" yaml:"enabled"`
	BufferSize int  `env:"BUFFER_SIZE" yaml:"buffer_size"`
	DropIfFull bool `env:"DROP_IF_FULL" yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `env:"ENABLED" yaml:"enabled"`
	EnableLatencyHistograms bool `env:"ENABLE_LATENCY_HISTOGRAMS" yaml:"enable_latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the configuration used when none is supplied.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			TokenKey: "token",
			UserKey:  "user",
		},
		Token: TokenConfig{
			Leeway:      0,
			WatchExpiry: true,
		},
		Transport: TransportConfig{
			HeaderName:       "Authorization",
			Scheme:           "Bearer",
			AuthPathPrefixes: []string{"/auth/"},
			FailureStatuses:  []int{http.StatusUnauthorized},
		},
		Routes: RouteConfig{
			LoginPath:         "/login",
			HomePath:          "/",
			NotAuthorizedPath: "/",
		},
		OAuth: OAuthConfig{
			MessageType:          "oauth-callback",
			FailureRedirectDelay: 3 * time.Second,
			BridgeBuffer:         8,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

// LoadConfigFromEnv overlays GOAUTHCLIENT_* environment variables on
// [DefaultConfig] and validates the result.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Transport.AuthPathPrefixes = cloneStrings(cfg.Transport.AuthPathPrefixes)
	out.Transport.ExemptPaths = cloneStrings(cfg.Transport.ExemptPaths)
	out.Transport.AllowedHosts = cloneStrings(cfg.Transport.AllowedHosts)
	if cfg.Transport.FailureStatuses != nil {
		out.Transport.FailureStatuses = append([]int(nil), cfg.Transport.FailureStatuses...)
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	// Storage
	if strings.TrimSpace(c.Storage.TokenKey) == "" {
		return errors.New("Storage TokenKey must be set")
	}
	if strings.TrimSpace(c.Storage.UserKey) == "" {
		return errors.New("Storage UserKey must be set")
	}
	if c.Storage.TokenKey == c.Storage.UserKey {
		return errors.New("Storage TokenKey and UserKey must differ")
	}

	// Token
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("Token Leeway must be within [0, 2m]")
	}

	// Transport
	if strings.TrimSpace(c.Transport.HeaderName) == "" {
		return errors.New("Transport HeaderName must be set")
	}
	if strings.TrimSpace(c.Transport.Scheme) == "" {
		return errors.New("Transport Scheme must be set")
	}
	if len(c.Transport.FailureStatuses) == 0 {
		return errors.New("Transport FailureStatuses must not be empty")
	}
	for _, status := range c.Transport.FailureStatuses {
		if status < 400 || status > 599 {
			return fmt.Errorf("Transport FailureStatuses contains non-error status %d", status)
		}
	}
	for _, prefix := range c.Transport.AuthPathPrefixes {
		if !strings.HasPrefix(prefix, "/") {
			return fmt.Errorf("Transport AuthPathPrefixes entry %q must start with /", prefix)
		}
	}
	for _, path := range c.Transport.ExemptPaths {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("Transport ExemptPaths entry %q must start with /", path)
		}
	}

	// Routes
	for name, path := range map[string]string{
		"LoginPath":         c.Routes.LoginPath,
		"HomePath":          c.Routes.HomePath,
		"NotAuthorizedPath": c.Routes.NotAuthorizedPath,
	} {
		if !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
			return fmt.Errorf("Routes %s must be an absolute same-origin path", name)
		}
	}

	// OAuth
	if c.OAuth.Origin != "" {
		if _, err := NormalizeOrigin(c.OAuth.Origin); err != nil {
			return fmt.Errorf("OAuth Origin: %w", err)
		}
	}
	if strings.TrimSpace(c.OAuth.MessageType) == "" {
		return errors.New("OAuth MessageType must be set")
	}
	if c.OAuth.FailureRedirectDelay < 0 {
		return errors.New("OAuth FailureRedirectDelay must be >= 0")
	}
	if c.OAuth.BridgeBuffer <= 0 {
		return errors.New("OAuth BridgeBuffer must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

// NormalizeOrigin returns origin as lower-case scheme://host[:port]. Paths, queries
// and fragments are rejected.
func NormalizeOrigin(origin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported origin scheme %q", u.Scheme)
	}
	if u.Host == "" || u.User != nil {
		return "", errors.New("origin must carry a host and no userinfo")
	}
	if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" {
		return "", errors.New("origin must not carry a path, query or fragment")
	}
	return strings.ToLower(u.Scheme + "://" + u.Host), nil
}
