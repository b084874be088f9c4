package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goAuthClient/token"
	"github.com/golang-jwt/jwt/v5"
)

func mintToken(t *testing.T, role string, ttl time.Duration) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, token.Claims{
		Role: role,
		Name: "Ada",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}).SignedString([]byte("cli-test"))
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return raw
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func TestLoginStatusLogoutWithFileBackend(t *testing.T) {
	file := filepath.Join(t.TempDir(), "session.json")
	raw := mintToken(t, "artist", time.Hour)

	out, err := runCLI(t, "--file", file, "--avatar-url", "https://cdn/ada.png", "login", raw)
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, `"status": "authenticated"`) {
		t.Fatalf("unexpected login output:\n%s", out)
	}

	out, err = runCLI(t, "--file", file, "status")
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if !strings.Contains(out, `"role": "artist"`) || !strings.Contains(out, "https://cdn/ada.png") {
		t.Fatalf("expected persisted session, got:\n%s", out)
	}
	if strings.Contains(out, raw) {
		t.Fatal("status must not print the token")
	}

	out, err = runCLI(t, "--file", file, "logout")
	if err != nil || !strings.Contains(out, "logged out") {
		t.Fatalf("logout failed: %v %q", err, out)
	}
	out, _ = runCLI(t, "--file", file, "status")
	if !strings.Contains(out, `"status": "anonymous"`) {
		t.Fatalf("expected anonymous after logout, got:\n%s", out)
	}
}

func TestLoginRejectsExpiredToken(t *testing.T) {
	file := filepath.Join(t.TempDir(), "session.json")
	if _, err := runCLI(t, "--file", file, "login", mintToken(t, "", -time.Minute)); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestDecode(t *testing.T) {
	out, err := runCLI(t, "decode", mintToken(t, "admin", time.Hour))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !strings.Contains(out, `"role": "admin"`) || !strings.Contains(out, `"sub": "u1"`) {
		t.Fatalf("unexpected decode output:\n%s", out)
	}
	if _, err := runCLI(t, "decode", "garbage"); err == nil {
		t.Fatal("expected decode error for garbage")
	}
}

func TestRedisBackendWithMiniredis(t *testing.T) {
	out, err := runCLI(t, "--backend", "redis", "login", mintToken(t, "artist", time.Hour))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if !strings.Contains(out, "authenticated") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessionctl.yaml")
	doc := `
backend: memory
session:
  storage:
    token_key: shop_token
    user_key: shop_user
  oauth:
    failure_redirect_delay: 5s
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Backend != "memory" || cfg.Session.Storage.TokenKey != "shop_token" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Session.OAuth.FailureRedirectDelay != 5*time.Second {
		t.Fatalf("unexpected delay %v", cfg.Session.OAuth.FailureRedirectDelay)
	}
	if cfg.Session.Transport.HeaderName != "Authorization" {
		t.Fatal("unset fields must keep defaults")
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := runCLI(t, "--backend", "memory", "frobnicate"); err == nil {
		t.Fatal("expected unknown command error")
	}
}
