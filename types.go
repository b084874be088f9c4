package goAuthClient

import (
	"time"

	"github.com/MrEthical07/goAuthClient/token"
	"github.com/google/uuid"
)

// Status is the coarse session state.
type Status uint8

const (
	// StatusUninitialized means the persisted record has not been read yet.
	StatusUninitialized Status = iota
	// StatusAnonymous means no valid session is present.
	StatusAnonymous
	// StatusAuthenticated means a structurally valid, unexpired token is present.
	StatusAuthenticated
)

func (s Status) String() string {
	switch s {
	case StatusUninitialized:
		return "uninitialized"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Profile is the cached user snapshot stored next to the token. It is a display
// hint only: authorization reads the token claims.
type Profile struct {
	ID        string `json:"id" yaml:"id"`
	Role      string `json:"role,omitempty" yaml:"role,omitempty"`
	Name      string `json:"name,omitempty" yaml:"name,omitempty"`
	Email     string `json:"email,omitempty" yaml:"email,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

func (p *Profile) clone() *Profile {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}

// ProfileFromClaims builds the fallback profile used when no cached profile is
// stored or the stored one cannot be decoded.
func ProfileFromClaims(claims *token.Claims) *Profile {
	if claims == nil {
		return nil
	}
	return &Profile{
		ID:    claims.Subject,
		Role:  claims.Role,
		Name:  claims.Name,
		Email: claims.Email,
	}
}

// State is an immutable snapshot of the session. Token is empty unless Status is
// StatusAuthenticated.
type State struct {
	Status Status
	Token  string
	User   *Profile
	Claims *token.Claims
}

var (
	uninitializedState = State{Status: StatusUninitialized}
	anonymousState     = State{Status: StatusAnonymous}
)

// Initialized reports whether the persisted record has been read.
func (s State) Initialized() bool {
	return s.Status != StatusUninitialized
}

// Authenticated reports whether the state carries a session.
func (s State) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != ""
}

// Role returns the role claim of the token. The cached profile is never consulted.
func (s State) Role() string {
	if !s.Authenticated() || s.Claims == nil {
		return ""
	}
	return s.Claims.Role
}

// Subject returns the sub claim of the token.
func (s State) Subject() string {
	if !s.Authenticated() || s.Claims == nil {
		return ""
	}
	return s.Claims.Subject
}

// ExpiresAt returns the exp claim; zero for non-authenticated states.
func (s State) ExpiresAt() time.Time {
	if !s.Authenticated() {
		return time.Time{}
	}
	return s.Claims.ExpiresAtTime()
}

// String renders the state without the token.
func (s State) String() string {
	if !s.Authenticated() {
		return s.Status.String()
	}
	return s.Status.String() + "(" + s.Subject() + ")"
}

// Transition describes one broadcast state change.
type Transition struct {
	ID     uuid.UUID
	From   Status
	To     State
	Reason string
	At     time.Time
}

// Logout reasons tagged on transitions and audit events.
const (
	ReasonUserLogout             = "user_logout"
	ReasonBackendUnauthenticated = "backend_unauthenticated"
	ReasonTokenExpired           = "token_expired"
	ReasonInvalidToken           = "invalid_token"
	ReasonLogin                  = "login"
	ReasonRestored               = "restored"
	ReasonNoSession              = "no_session"
	ReasonStorageUnavailable     = "storage_unavailable"
)
