// ABOUTME: Subcommand implementations for templatekit
// ABOUTME: Each command opens the migrated library, runs one operation and prints a summary

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/2389/templatekit/internal/config"
	"github.com/2389/templatekit/internal/importer"
	"github.com/2389/templatekit/internal/library"
	"github.com/2389/templatekit/internal/packs"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed)
	cyan   = color.New(color.FgCyan)
	gray   = color.New(color.FgHiBlack)
)

func runInit() error {
	configPath := config.Path()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green.Print("✓ ")
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}

func runMigrate(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	r := a.report
	if !r.Migrated() {
		green.Print("✓ ")
		fmt.Printf("Library is at schema generation %d\n", r.To)
		return nil
	}
	green.Print("✓ ")
	fmt.Printf("Migrated generation %d → %d\n", r.From, r.To)
	gray.Printf("  %d categories, %d templates written, %d variants split\n",
		r.CategoriesWritten, r.TemplatesWritten, r.VariantsSplit)
	return nil
}

// importFlags parses the flags shared by import and preview.
func importFlags(defaultStrategy string, args []string) (string, importer.Options, error) {
	strategy := defaultStrategy
	var opts importer.Options
	f := flags{
		bools: map[string]*bool{
			"--overwrite":         &opts.OverwriteDuplicates,
			"--override-prebuilt": &opts.OverridePrebuilt,
		},
		strings: map[string]*string{"--strategy": &strategy},
	}
	pos, err := f.parse(args)
	if err != nil {
		return "", opts, err
	}
	if len(pos) != 1 {
		return "", opts, errors.New("expected exactly one pack file")
	}
	opts.Strategy, err = importer.ParseStrategy(strategy)
	if err != nil {
		return "", opts, err
	}
	return pos[0], opts, nil
}

func readPack(path string) (*library.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pack: %w", err)
	}
	return packs.Parse(data)
}

func runImport(ctx context.Context, args []string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	path, opts, err := importFlags(a.cfg.Import.Strategy, args)
	if err != nil {
		return err
	}
	doc, err := readPack(path)
	if err != nil {
		return err
	}

	res, err := a.merger().Import(ctx, doc, opts)
	if err != nil {
		if errors.Is(err, library.ErrConflict) {
			yellow.Fprintln(os.Stderr, "Nothing was imported. Re-run with --override-prebuilt to import into pre-built categories.")
		}
		return err
	}

	green.Print("✓ ")
	fmt.Printf("Imported %s (%s, %s)\n", path, doc.Kind, opts.Strategy)
	if res.TemplatesDeleted > 0 || res.CategoriesDeleted > 0 {
		fmt.Printf("  removed:    %d categories, %d templates\n", res.CategoriesDeleted, res.TemplatesDeleted)
	}
	fmt.Printf("  categories: %d created, %d reused\n", res.CategoriesCreated, res.CategoriesSkipped)
	fmt.Printf("  templates:  %d imported, %d updated, %d skipped\n", res.TemplatesImported, res.TemplatesUpdated, res.TemplatesSkipped)
	printNotes(res.Warnings, res.Errors)
	if len(res.Errors) > 0 {
		return fmt.Errorf("%d items failed to import", len(res.Errors))
	}
	return nil
}

func runPreview(ctx context.Context, args []string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	path, opts, err := importFlags(a.cfg.Import.Strategy, args)
	if err != nil {
		return err
	}
	doc, err := readPack(path)
	if err != nil {
		return err
	}

	pv, err := a.merger().Preview(ctx, doc, opts)
	if err != nil {
		return err
	}

	cyan.Printf("Preview of %s (%s, %s)\n", path, doc.Kind, opts.Strategy)
	if pv.PurgeTemplates > 0 || pv.PurgeCategories > 0 {
		red.Printf("  would remove %d categories and %d templates\n", pv.PurgeCategories, pv.PurgeTemplates)
	}
	for _, c := range pv.Categories {
		state := "new"
		if c.Exists {
			state = "existing"
		}
		if c.Prebuilt {
			state += ", pre-built"
		}
		fmt.Printf("  %-30s %s", c.Name, gray.Sprintf("(%s)", state))
		fmt.Printf("  %d new, %d duplicate\n", c.New, c.Duplicates)
	}
	fmt.Printf("  total: %d new, %d duplicate, %.1f keywords per template\n", pv.NewTemplates, pv.DuplicateTemplates, pv.MeanKeywords)
	printNotes(pv.Warnings, pv.Errors)
	return nil
}

func printNotes(warnings, errs []string) {
	for _, w := range warnings {
		yellow.Print("  ! ")
		fmt.Println(w)
	}
	for _, e := range errs {
		red.Print("  ✗ ")
		fmt.Println(e)
	}
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	green.Fprint(os.Stderr, "✓ ")
	fmt.Fprintf(os.Stderr, "Wrote %s\n", path)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		out          string
		keepInternal bool
		opts         = packs.ExportOptions{ExcludePrebuilt: a.cfg.Export.ExcludePrebuilt}
	)
	f := flags{
		bools: map[string]*bool{
			"--exclude-prebuilt": &opts.ExcludePrebuilt,
			"--keep-internal":    &keepInternal,
			"--allow-empty":      &opts.AllowEmpty,
		},
		strings: map[string]*string{
			"-o": &out, "--output": &out,
			"--name":    &opts.PackName,
			"--version": &opts.PackVersion,
		},
	}
	pos, err := f.parse(args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("expected exactly one category id")
	}
	opts.RemoveInternalFields = a.cfg.Export.RemoveInternalFields && !keepInternal

	p, err := a.exporter().ExportCategory(ctx, pos[0], opts)
	if err != nil {
		return err
	}
	data, err := packs.Encode(&library.Document{Kind: library.KindCategoryPack, CategoryPack: p})
	if err != nil {
		return err
	}
	return writeOutput(out, data)
}

func runExportAdPack(ctx context.Context, args []string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		out  string
		opts = packs.AdPackOptions{ExcludePrebuilt: a.cfg.Export.ExcludePrebuilt}
	)
	h := &opts.Header
	f := flags{
		bools: map[string]*bool{
			"--exclude-prebuilt": &opts.ExcludePrebuilt,
			"--allow-empty":      &opts.AllowEmpty,
		},
		strings: map[string]*string{
			"-o": &out, "--output": &out,
			"--id":          &h.ID,
			"--name":        &h.Name,
			"--niche":       &h.Niche,
			"--author":      &h.Author,
			"--version":     &h.Version,
			"--description": &h.Description,
		},
	}
	opts.CategoryIDs, err = f.parse(args)
	if err != nil {
		return err
	}

	p, err := a.exporter().ExportAdPack(ctx, opts)
	if err != nil {
		return err
	}
	data, err := packs.Encode(&library.Document{Kind: library.KindAdPack, AdPack: p})
	if err != nil {
		return err
	}
	return writeOutput(out, data)
}

func runUse(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one template id")
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.repo.RecordUsage(ctx, args[0])
	if err != nil {
		return err
	}
	green.Print("✓ ")
	fmt.Printf("%s used %d times\n", t.Label, t.UsageCount)
	return nil
}

func runKeyword(ctx context.Context, args []string) error {
	var chosen bool
	pos, err := flags{bools: map[string]*bool{"--chosen": &chosen}}.parse(args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errors.New("expected exactly one keyword")
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ks, err := a.repo.RecordKeyword(ctx, pos[0], chosen)
	if err != nil {
		return err
	}
	green.Print("✓ ")
	fmt.Printf("%q matched %d times, chosen %d times\n", ks.Keyword, ks.Matches, ks.Chosen)
	return nil
}

func runStats(ctx context.Context) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	gen, _, err := a.repo.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	categories, err := a.repo.ListCategories(ctx)
	if err != nil {
		return err
	}
	templates, err := a.repo.ListTemplates(ctx)
	if err != nil {
		return err
	}
	keywords, err := a.repo.ListKeywordStats(ctx)
	if err != nil {
		return err
	}
	adPacks, err := a.repo.ListAdPacks(ctx)
	if err != nil {
		return err
	}

	cyan.Println("Library")
	fmt.Printf("  database:   %s\n", a.cfg.Database.Path)
	fmt.Printf("  schema:     generation %d\n", gen)
	fmt.Printf("  templates:  %d\n", len(templates))
	fmt.Printf("  keywords:   %d tracked\n", len(keywords))
	fmt.Printf("  ad packs:   %d installed\n", len(adPacks))

	fmt.Println()
	cyan.Println("Categories")
	for _, c := range categories {
		fmt.Printf("  %-24s %-30s %4d", c.ID, c.Name, c.TemplateCount)
		if c.IsPrebuilt {
			gray.Print("  pre-built")
		}
		fmt.Println()
	}
	return nil
}
