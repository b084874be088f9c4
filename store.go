package goAuthClient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/MrEthical07/goAuthClient/token"
)

// SessionStore reads and writes the persisted record: the raw token under
// StorageConfig.TokenKey and the cached profile under StorageConfig.UserKey. It is the
// only component that touches the backend.
type SessionStore struct {
	backend storage.Backend
	cfg     StorageConfig
	leeway  time.Duration
	now     func() time.Time
}

// StoreOption configures a [SessionStore].
type StoreOption func(*SessionStore)

// WithStoreClock overrides the time source used for expiry checks.
func WithStoreClock(now func() time.Time) StoreOption {
	return func(s *SessionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreLeeway tolerates clock skew when evaluating exp.
func WithStoreLeeway(leeway time.Duration) StoreOption {
	return func(s *SessionStore) {
		if leeway > 0 {
			s.leeway = leeway
		}
	}
}

// NewSessionStore creates a store over backend. A nil backend selects an in-memory one.
func NewSessionStore(backend storage.Backend, cfg StorageConfig, opts ...StoreOption) *SessionStore {
	if backend == nil {
		backend = storage.NewMemoryBackend()
	}
	if cfg.TokenKey == "" {
		cfg.TokenKey = DefaultConfig().Storage.TokenKey
	}
	if cfg.UserKey == "" {
		cfg.UserKey = DefaultConfig().Storage.UserKey
	}
	s := &SessionStore{
		backend: backend,
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load restores the persisted record. A missing token yields the anonymous state and
// a nil error. An invalid or expired token is cleared and reported with
// ErrInvalidTokenFormat or ErrTokenExpired; the returned state is anonymous in both
// cases. Backend failures also yield anonymous with an error wrapping
// ErrStorageUnavailable.
func (s *SessionStore) Load(ctx context.Context) (State, error) {
	raw, found, err := s.backend.Get(ctx, s.cfg.TokenKey)
	if err != nil {
		return anonymousState, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !found || raw == "" {
		return anonymousState, nil
	}

	claims, verr := s.validate(raw)
	if verr != nil {
		if err := s.Clear(ctx); err != nil {
			return anonymousState, errors.Join(verr, err)
		}
		return anonymousState, verr
	}

	// The profile never decides validity; any problem falls back to the claims.
	profile := ProfileFromClaims(claims)
	if encoded, ok, err := s.backend.Get(ctx, s.cfg.UserKey); err == nil && ok {
		if decoded, derr := decodeProfile(encoded); derr == nil {
			profile = decoded
		}
	}

	return State{
		Status: StatusAuthenticated,
		Token:  raw,
		User:   profile,
		Claims: claims,
	}, nil
}

// Save validates raw and persists it together with profile. A nil profile is derived
// from the claims. On a validation error nothing is written.
func (s *SessionStore) Save(ctx context.Context, raw string, profile *Profile) (State, error) {
	claims, err := s.validate(raw)
	if err != nil {
		return anonymousState, err
	}
	if profile == nil {
		profile = ProfileFromClaims(claims)
	} else {
		profile = profile.clone()
	}

	encoded, err := json.Marshal(profile)
	if err != nil {
		return anonymousState, fmt.Errorf("encode profile: %w", err)
	}

	var ttl time.Duration
	if s.cfg.ExpireWithToken {
		ttl = claims.ExpiresAtTime().Add(s.leeway).Sub(s.now())
		if ttl < time.Second {
			ttl = time.Second
		}
	}

	if err := s.backend.Put(ctx, map[string]string{
		s.cfg.TokenKey: raw,
		s.cfg.UserKey:  string(encoded),
	}, ttl); err != nil {
		return anonymousState, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	return State{
		Status: StatusAuthenticated,
		Token:  raw,
		User:   profile,
		Claims: claims,
	}, nil
}

// Clear removes both keys. Clearing an empty store succeeds.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.cfg.TokenKey, s.cfg.UserKey); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// IsExpired reports whether raw is unusable at the store's current time. Unparsable
// tokens count as expired.
func (s *SessionStore) IsExpired(raw string) bool {
	return token.IsExpired(raw, s.now(), s.leeway)
}

// Now returns the store clock reading.
func (s *SessionStore) Now() time.Time {
	return s.now()
}

func (s *SessionStore) validate(raw string) (*token.Claims, error) {
	claims, err := token.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTokenFormat, err)
	}
	if claims.Expired(s.now(), s.leeway) {
		return nil, ErrTokenExpired
	}
	return claims, nil
}

func decodeProfile(encoded string) (*Profile, error) {
	var p Profile
	if err := json.Unmarshal([]byte(encoded), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
