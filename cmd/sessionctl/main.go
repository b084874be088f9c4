// sessionctl inspects and manipulates a persisted client session from the command
// line.
//
//	sessionctl decode <token>          print the claims of a token
//	sessionctl status                  load the persisted session and print its state
//	sessionctl login <token>           validate and persist a token
//	sessionctl logout                  clear the persisted session
//
// The session lives in a JSON file by default (--backend=file) so it survives
// between invocations. --backend=redis stores it in Redis; without --redis-addr an
// in-process miniredis is started, which only lives for one command.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	goAuthClient "github.com/MrEthical07/goAuthClient"
	"github.com/MrEthical07/goAuthClient/storage"
	"github.com/MrEthical07/goAuthClient/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

type options struct {
	configPath  string
	backend     string
	file        string
	redisAddr   string
	redisPrefix string
	logLevel    string
	name        string
	email       string
	avatarURL   string
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	var opts options
	flagSet := pflag.NewFlagSet("sessionctl", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	flagSet.StringVar(&opts.backend, "backend", "", "storage backend: file, redis or memory")
	flagSet.StringVar(&opts.file, "file", "", "session file for --backend=file")
	flagSet.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; empty starts an in-process miniredis")
	flagSet.StringVar(&opts.redisPrefix, "redis-prefix", "", "redis key prefix")
	flagSet.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	flagSet.StringVar(&opts.name, "name", "", "profile display name for login")
	flagSet.StringVar(&opts.email, "email", "", "profile email for login")
	flagSet.StringVar(&opts.avatarURL, "avatar-url", "", "profile avatar URL for login")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		flagSet.Usage()
		return errors.New("missing command")
	}

	command, commandArgs := rest[0], rest[1:]
	if command == "decode" {
		return decodeCommand(stdout, commandArgs)
	}

	cfg, err := loadFileConfig(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(&cfg, opts)

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: parseLevel(opts.logLevel)}))
	backend, cleanup, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	// A CLI process never outlives the token, so the expiry watch stays off.
	cfg.Session.Token.WatchExpiry = false
	client, err := goAuthClient.New().
		WithConfig(cfg.Session).
		WithBackend(backend).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = client.Close(closeCtx)
	}()

	state := client.Session().Init(ctx)

	switch command {
	case "status":
		return printState(stdout, state)
	case "login":
		if len(commandArgs) != 1 {
			return errors.New("login requires exactly one token argument")
		}
		profile := profileFromFlags(commandArgs[0], opts)
		next, err := client.Session().Login(ctx, commandArgs[0], profile)
		if err != nil {
			return err
		}
		return printState(stdout, next)
	case "logout":
		if client.Session().Logout(ctx, goAuthClient.ReasonUserLogout) {
			fmt.Fprintln(stdout, "logged out")
		} else {
			fmt.Fprintln(stdout, "no active session")
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func applyFlags(cfg *fileConfig, opts options) {
	if opts.backend != "" {
		cfg.Backend = opts.backend
	}
	if opts.file != "" {
		cfg.File = opts.file
	}
	if opts.redisAddr != "" {
		cfg.Redis.Addr = opts.redisAddr
	}
	if opts.redisPrefix != "" {
		cfg.Redis.Prefix = opts.redisPrefix
	}
}

func openBackend(cfg fileConfig, logger *slog.Logger) (storage.Backend, func(), error) {
	switch cfg.Backend {
	case "file":
		return storage.NewFileBackend(cfg.File), func() {}, nil
	case "memory":
		return storage.NewMemoryBackend(), func() {}, nil
	case "redis":
		addr := cfg.Redis.Addr
		var mr *miniredis.Miniredis
		if addr == "" {
			var err error
			mr, err = miniredis.Run()
			if err != nil {
				return nil, nil, fmt.Errorf("start miniredis: %w", err)
			}
			addr = mr.Addr()
			logger.Warn("using ephemeral miniredis", "addr", addr)
		}
		rdb := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup := func() {
			_ = rdb.Close()
			if mr != nil {
				mr.Close()
			}
		}
		return storage.NewRedisBackend(rdb, storage.WithRedisPrefix(cfg.Redis.Prefix)), cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func profileFromFlags(raw string, opts options) *goAuthClient.Profile {
	if opts.name == "" && opts.email == "" && opts.avatarURL == "" {
		return nil
	}
	claims, err := token.Parse(raw)
	if err != nil {
		// Login reports the parse error.
		return nil
	}
	profile := goAuthClient.ProfileFromClaims(claims)
	if opts.name != "" {
		profile.Name = opts.name
	}
	if opts.email != "" {
		profile.Email = opts.email
	}
	profile.AvatarURL = opts.avatarURL
	return profile
}

type stateView struct {
	Status    string                `json:"status"`
	Subject   string                `json:"subject,omitempty"`
	Role      string                `json:"role,omitempty"`
	ExpiresAt *time.Time            `json:"expires_at,omitempty"`
	User      *goAuthClient.Profile `json:"user,omitempty"`
}

func printState(w io.Writer, state goAuthClient.State) error {
	view := stateView{
		Status:  state.Status.String(),
		Subject: state.Subject(),
		Role:    state.Role(),
		User:    state.User,
	}
	if exp := state.ExpiresAt(); !exp.IsZero() {
		view.ExpiresAt = &exp
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(view)
}

func decodeCommand(w io.Writer, args []string) error {
	if len(args) != 1 {
		return errors.New("decode requires exactly one token argument")
	}
	claims, err := token.Parse(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(claims); err != nil {
		return err
	}
	if token.IsExpired(args[0], time.Now(), 0) {
		fmt.Fprintln(w, "expired")
	}
	return nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
