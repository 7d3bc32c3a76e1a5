package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/daypilot/pkg/ai"
	"github.com/harrisonrobin/daypilot/pkg/auth"
	"github.com/harrisonrobin/daypilot/pkg/config"
	"github.com/harrisonrobin/daypilot/pkg/gcal"
	"github.com/harrisonrobin/daypilot/pkg/rollover"
	"github.com/harrisonrobin/daypilot/pkg/server"
	"github.com/harrisonrobin/daypilot/pkg/state"
	"github.com/harrisonrobin/daypilot/pkg/store"
	daysync "github.com/harrisonrobin/daypilot/pkg/sync"
	"github.com/harrisonrobin/daypilot/pkg/timezone"
)

func main() {
	connectUser := flag.String("connect", "", "Connect a Google Calendar account for the given user ID and exit")
	syncUser := flag.String("sync-once", "", "Run one sync pass for the given user ID and exit")
	issueUser := flag.String("issue-token", "", "Print an API token for the given user ID and exit")
	flag.Parse()

	// .env values feed the config layer's environment overrides.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("could not load .env file", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}

	clock, err := timezone.New(cfg.Timezone)
	if err != nil {
		log.Fatal("invalid timezone in config", "timezone", cfg.Timezone, "err", err)
	}

	st := store.NewSQLiteStore(cfg.DatabasePath)
	if err := st.Init(); err != nil {
		log.Fatal("failed to open database", "path", cfg.DatabasePath, "err", err)
	}
	defer st.Close()

	kv, err := state.NewFileKV(cfg.StatePath)
	if err != nil {
		log.Fatal("failed to open state file", "path", cfg.StatePath, "err", err)
	}
	users := state.NewUsers(kv)

	ctx := context.Background()

	if *connectUser != "" {
		if err := runConnect(ctx, users, *connectUser); err != nil {
			log.Fatal("account connect failed", "err", err)
		}
		return
	}

	// The OAuth client config is optional at startup: without it, syncs for
	// connected accounts fail with a provider error, everything else works.
	var oauthCfg *oauth2.Config
	if dir, err := config.GetConfigDir(); err == nil {
		if loaded, err := auth.LoadOAuthConfig(dir); err == nil {
			oauthCfg = loaded
		} else {
			log.Warn("calendar client credentials unavailable", "err", err)
		}
	}

	source := gcal.NewClient(oauthCfg, clock)
	engine := daysync.NewEngine(st, users, clock, source)

	if *syncUser != "" {
		accounts, err := users.Accounts(*syncUser)
		if err != nil {
			log.Fatal("failed to load accounts", "err", err)
		}
		result := engine.SyncAllAccounts(ctx, *syncUser, accounts)
		fmt.Printf("Sync finished: %d created, %d failed\n", result.TotalCreated, result.TotalFailed)
		return
	}

	if cfg.JWTSecret == "" {
		log.Fatal("no JWT secret configured, set DAYPILOT_JWT_SECRET or jwtSecret in config.json")
	}
	tokens := auth.NewTokens(cfg.JWTSecret)

	if *issueUser != "" {
		tok, err := tokens.Issue(*issueUser)
		if err != nil {
			log.Fatal("failed to issue token", "err", err)
		}
		fmt.Println(tok)
		return
	}

	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set, note parsing and analyses will be unavailable")
	}
	aiSvc := ai.NewService(ai.NewClient(cfg.GeminiAPIKey), clock)

	sweeper := rollover.NewSweeper(st, clock)
	srv := server.NewServer(st, users, clock, engine, sweeper, aiSvc, tokens)

	log.Info("listening", "addr", cfg.ListenAddr, "timezone", cfg.Timezone)
	if err := srv.Run(cfg.ListenAddr); err != nil {
		log.Fatal("server stopped", "err", err)
	}
}

// runConnect walks the user through the browser OAuth flow and persists the
// resulting account.
func runConnect(ctx context.Context, users *state.Users, userID string) error {
	dir, err := config.GetConfigDir()
	if err != nil {
		return err
	}
	oauthCfg, err := auth.LoadOAuthConfig(dir)
	if err != nil {
		return err
	}

	account, err := auth.ConnectAccount(ctx, oauthCfg)
	if err != nil {
		return err
	}
	if err := users.AddAccount(userID, account); err != nil {
		return err
	}
	fmt.Printf("Connected %s for user %s\n", account.Email, userID)
	return nil
}
