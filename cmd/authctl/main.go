package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-gateway/internal/api/dto"
	"github.com/spec-kit/auth-gateway/internal/config"
	"github.com/spec-kit/auth-gateway/internal/observability"
	"github.com/spec-kit/auth-gateway/internal/persistence"
	"github.com/spec-kit/auth-gateway/pkg/client"
)

const usage = `usage: authctl <command> [flags]

commands:
  register -email E -password P -name N [-role R]
  login    -email E -password P
  logout
  me
  query    -q QUERY [-vars JSON]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	rdb := persistence.NewRedis(cfg.Redis, logger)
	defer rdb.Close()

	store := tokenStore(cfg, rdb)
	api, err := client.New(client.Config{
		BaseURL:       cfg.Client.BaseURL,
		QueryEndpoint: cfg.Client.QueryEndpoint,
		Timeout:       cfg.Client.Timeout(),
	}, client.WithTokenStore(store), client.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to build client", zap.Error(err))
	}

	ctx := context.Background()
	if err := run(ctx, api, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", client.KindOf(err), err)
		os.Exit(1)
	}
}

// tokenStore keeps the token in Redis so it survives between invocations.
func tokenStore(cfg *config.Config, rdb *persistence.Redis) client.TokenStore {
	if !rdb.Configured() {
		return client.NewMemoryTokenStore()
	}
	return client.NewRedisTokenStore(rdb.Client, cfg.Client.TokenKey, cfg.Auth.TokenTTL())
}

func run(ctx context.Context, api *client.Client, command string, args []string) error {
	switch command {
	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		req := dto.RegisterRequest{}
		fs.StringVar(&req.Email, "email", "", "account email")
		fs.StringVar(&req.Password, "password", "", "account password")
		fs.StringVar(&req.Name, "name", "", "display name")
		fs.StringVar(&req.Role, "role", "", "admin or client")
		_ = fs.Parse(args)
		return authenticate(ctx, api, "/auth/register", req)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		req := dto.LoginRequest{}
		fs.StringVar(&req.Email, "email", "", "account email")
		fs.StringVar(&req.Password, "password", "", "account password")
		_ = fs.Parse(args)
		return authenticate(ctx, api, "/auth/login", req)

	case "logout":
		return api.Tokens().Clear(ctx)

	case "me":
		var profile dto.ProfileResponse
		if err := api.Get(ctx, "/auth/me", &profile); err != nil {
			return err
		}
		return printJSON(profile)

	case "query":
		fs := flag.NewFlagSet("query", flag.ExitOnError)
		query := fs.String("q", "", "query text")
		rawVars := fs.String("vars", "", "variables as a JSON object")
		_ = fs.Parse(args)

		var variables map[string]any
		if *rawVars != "" {
			if err := json.Unmarshal([]byte(*rawVars), &variables); err != nil {
				return fmt.Errorf("parse -vars: %w", err)
			}
		}
		var data json.RawMessage
		if err := api.Query(ctx, *query, variables, &data); err != nil {
			return err
		}
		return printJSON(data)

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func authenticate(ctx context.Context, api *client.Client, path string, body any) error {
	var resp dto.AuthResponse
	if err := api.Post(ctx, path, body, &resp); err != nil {
		return err
	}
	if err := api.Tokens().SetToken(ctx, resp.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	return printJSON(resp.User)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
