// Package main provides the all-in-one charkeep server. It wires together
// configuration, the roster store, sheet templates, house-rule scripts, the
// Telnet acceptor, and the session handlers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/rwpulley/charkeep/internal/config"
	"github.com/rwpulley/charkeep/internal/frontend/handlers"
	"github.com/rwpulley/charkeep/internal/frontend/telnet"
	"github.com/rwpulley/charkeep/internal/game/dice"
	"github.com/rwpulley/charkeep/internal/game/roster"
	"github.com/rwpulley/charkeep/internal/game/ruleset"
	"github.com/rwpulley/charkeep/internal/observability"
	"github.com/rwpulley/charkeep/internal/scripting"
	"github.com/rwpulley/charkeep/internal/server"
	storagefile "github.com/rwpulley/charkeep/internal/storage/file"
	"github.com/rwpulley/charkeep/internal/storage/postgres"
)

// houseRulesID is the scripting VM key for the server-wide rule set.
const houseRulesID = "house"

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting charkeep server",
		zap.String("name", cfg.Server.Name),
		zap.String("backend", cfg.Storage.Backend),
	)

	// Load sheet templates.
	templates := ruleset.NewTemplateRegistry()
	loaded, err := ruleset.LoadTemplates(cfg.Rules.TemplatesDir)
	if err != nil {
		logger.Fatal("loading sheet templates", zap.Error(err))
	}
	for _, t := range loaded {
		templates.Register(t)
	}
	logger.Info("sheet templates loaded",
		zap.Int("count", len(loaded)),
		zap.String("dir", cfg.Rules.TemplatesDir),
	)

	roller := dice.NewLoggedRoller(dice.NewCryptoSource(), logger)

	// Load Lua house rules when configured.
	var scripts *scripting.Manager
	if cfg.Rules.HouseRulesDir != "" {
		scripts = scripting.NewManager(roller, logger)
		if err := scripts.LoadRules(houseRulesID, cfg.Rules.HouseRulesDir, cfg.Rules.InstructionLimit); err != nil {
			logger.Fatal("loading house rules", zap.Error(err))
		}
		logger.Info("house rules loaded", zap.String("dir", cfg.Rules.HouseRulesDir))
	}

	ctx := context.Background()
	lifecycle := server.NewLifecycle(logger)

	// Storage backend: a shared roster file in local mode, per-account
	// postgres rosters with authentication in hosted mode.
	var accounts handlers.AccountStore
	var openRoster handlers.RosterOpener
	switch cfg.Storage.Backend {
	case "file":
		store, err := storagefile.NewStore(cfg.Storage.Path)
		if err != nil {
			logger.Fatal("opening roster file", zap.Error(err))
		}
		openRoster = func(int64) roster.Store { return store }
		logger.Info("file store ready", zap.String("path", store.Path()))

	case "postgres":
		dbStart := time.Now()
		pool, err := postgres.NewPool(ctx, cfg.Storage.Database)
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		logger.Info("database connected",
			zap.String("host", cfg.Storage.Database.Host),
			zap.Int("port", cfg.Storage.Database.Port),
			zap.String("database", cfg.Storage.Database.Name),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
		accounts = postgres.NewAccountRepository(pool.DB())
		sheets := postgres.NewSheetRepository(pool.DB())
		openRoster = func(accountID int64) roster.Store { return sheets.AccountStore(accountID) }

		quit := make(chan struct{})
		lifecycle.Add("postgres", &server.FuncService{
			StartFn: func() error {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if err := pool.Health(ctx, 5*time.Second); err != nil {
							logger.Warn("database health check failed", zap.Error(err))
						}
					case <-quit:
						return nil
					}
				}
			},
			StopFn: func() {
				close(quit)
				pool.Close()
			},
		})

	default:
		logger.Fatal("unknown storage backend", zap.String("backend", cfg.Storage.Backend))
	}

	authHandler := handlers.NewAuthHandler(
		accounts, openRoster, templates, roller,
		scripts, houseRulesID, cfg.Rules.RollHistorySize,
		logger,
	)
	telnetAcceptor := telnet.NewAcceptor(cfg.Telnet, authHandler, logger)

	// Scripting is added before telnet so it stops after the sessions that
	// use it.
	if scripts != nil {
		quit := make(chan struct{})
		lifecycle.Add("scripting", &server.FuncService{
			StartFn: func() error {
				<-quit
				return nil
			},
			StopFn: func() {
				close(quit)
				scripts.Close()
			},
		})
	}

	lifecycle.Add("telnet", &server.FuncService{
		StartFn: func() error {
			return telnetAcceptor.ListenAndServe()
		},
		StopFn: func() {
			telnetAcceptor.Stop()
		},
	})

	logger.Info("server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", fmt.Sprintf("%s:%d", cfg.Telnet.Host, cfg.Telnet.Port)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
