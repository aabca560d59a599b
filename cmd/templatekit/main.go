// ABOUTME: Entry point for the templatekit command line tool
// ABOUTME: Migrates the local library on startup and imports, previews and exports packs

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/templatekit/internal/config"
	"github.com/2389/templatekit/internal/importer"
	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/migrate"
	"github.com/2389/templatekit/internal/packs"
	"github.com/2389/templatekit/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

func usage() {
	fmt.Println("Usage: templatekit <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init                          Write a default config file")
	fmt.Println("  migrate                       Bring the library to the current schema")
	fmt.Println("  import <file>                 Import a category pack or ad pack")
	fmt.Println("      --strategy merge|replace  Conflict policy (default from config)")
	fmt.Println("      --overwrite               Update duplicate templates in place")
	fmt.Println("      --override-prebuilt       Allow importing into pre-built categories")
	fmt.Println("  preview <file>                Show what an import would do")
	fmt.Println("  export <category-id>          Export a category pack")
	fmt.Println("      -o FILE  --name NAME  --version V  --exclude-prebuilt  --keep-internal  --allow-empty")
	fmt.Println("  export-adpack <category-id>...  Export several categories as an ad pack")
	fmt.Println("      --id ID --name NAME --niche NICHE --author AUTHOR [--version V] [-o FILE]")
	fmt.Println("  use <template-id>             Record that a template was used")
	fmt.Println("  keyword <keyword> [--chosen]  Record a keyword match")
	fmt.Println("  stats                         Show library statistics")
	fmt.Println("  version                       Print the version")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "init":
		err = runInit()
	case "migrate":
		err = runMigrate(ctx)
	case "import":
		err = runImport(ctx, args)
	case "preview":
		err = runPreview(ctx, args)
	case "export":
		err = runExport(ctx, args)
	case "export-adpack":
		err = runExportAdPack(ctx, args)
	case "use":
		err = runUse(ctx, args)
	case "keyword":
		err = runKeyword(ctx, args)
	case "stats":
		err = runStats(ctx)
	case "version":
		fmt.Println(version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		color.New(color.FgRed).Fprint(os.Stderr, "Error: ")
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// app bundles what every library command needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  store.Store
	repo   *library.Repository
	report *migrate.Report
}

// openApp loads configuration, opens the store and migrates it. Migration
// completes before any other command touches the store.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadOrDefault(config.Path())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	report, err := migrate.NewRunner(s, library.DefaultSettings(), logger).Run(ctx)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("migrating store: %w", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  s,
		repo:   library.NewRepository(s, logger),
		report: report,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func (a *app) merger() *importer.Merger {
	return importer.NewMerger(a.repo, importer.Config{
		Concurrency:      a.cfg.Import.Concurrency,
		MaxPackTemplates: a.cfg.Import.MaxPackTemplates,
		MinMeanKeywords:  a.cfg.Import.MinMeanKeywords,
	}, a.logger)
}

func (a *app) exporter() *packs.Exporter {
	return packs.NewExporter(a.repo, a.logger)
}
