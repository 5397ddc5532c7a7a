// Package main provides an offline roster archive tool. It exports a roster
// to a portable JSON archive and imports archives back, merging by character
// identity without needing a running server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/rwpulley/charkeep/internal/config"
	"github.com/rwpulley/charkeep/internal/exchange"
	"github.com/rwpulley/charkeep/internal/game/roster"
	storagefile "github.com/rwpulley/charkeep/internal/storage/file"
	"github.com/rwpulley/charkeep/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	mode := flag.String("mode", "", "export or import")
	file := flag.String("file", "", "archive file path")
	account := flag.Int64("account", 0, "account id (postgres backend only)")
	flag.Parse()

	if *mode != "export" && *mode != "import" {
		log.Fatal("-mode must be 'export' or 'import'")
	}
	if *file == "" {
		log.Fatal("-file is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx := context.Background()

	store, cleanup, err := openStore(ctx, cfg, *account)
	if err != nil {
		log.Fatalf("opening roster store: %v", err)
	}
	defer cleanup()

	switch *mode {
	case "export":
		if err := runExport(ctx, store, *file); err != nil {
			log.Fatalf("export failed: %v", err)
		}
	case "import":
		if err := runImport(ctx, store, *file); err != nil {
			log.Fatalf("import failed: %v", err)
		}
	}
}

func openStore(ctx context.Context, cfg config.Config, accountID int64) (roster.Store, func(), error) {
	switch cfg.Storage.Backend {
	case "file":
		store, err := storagefile.NewStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		if accountID == 0 {
			return nil, nil, fmt.Errorf("-account is required for the postgres backend")
		}
		pool, err := postgres.NewPool(ctx, cfg.Storage.Database)
		if err != nil {
			return nil, nil, err
		}
		sheets := postgres.NewSheetRepository(pool.DB())
		return sheets.AccountStore(accountID), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func runExport(ctx context.Context, store roster.Store, path string) error {
	characters, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	data, err := exchange.Export(characters, time.Now())
	if err != nil {
		return fmt.Errorf("building archive: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing archive: %w", err)
	}
	fmt.Printf("Exported %d character(s) to %s\n", len(characters), path)
	return nil
}

func runImport(ctx context.Context, store roster.Store, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading archive: %w", err)
	}
	incoming, err := exchange.Import(data)
	if err != nil {
		return fmt.Errorf("parsing archive: %w", err)
	}
	existing, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading roster: %w", err)
	}
	merged, result := exchange.Merge(existing, incoming)
	if err := store.Save(ctx, merged); err != nil {
		return fmt.Errorf("saving roster: %w", err)
	}
	fmt.Printf("Imported %s: %d added, %d updated\n", path, result.Added, result.Updated)
	return nil
}
