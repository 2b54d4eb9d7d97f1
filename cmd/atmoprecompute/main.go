// Command atmoprecompute builds atmosphere lookup tables and writes them as
// loadable artifacts.
//
// Usage:
//
//	atmoprecompute -config sky.toml -out tables -previews
//
// Flags given on the command line override the config file.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gogpu/atmosphere"
	"github.com/gogpu/atmosphere/loader"
)

func main() {
	var (
		configPath = flag.String("config", "", "TOML job description")
		output     = flag.String("out", "", "output directory")
		backend    = flag.String("backend", "", "precompute backend (raster, nodegraph)")
		workers    = flag.Int("workers", 0, "worker goroutines, 0 for GOMAXPROCS")
		orders     = flag.Int("orders", 0, "scattering orders")
		half       = flag.Bool("half", false, "write binary16 tables")
		combined   = flag.Bool("combined", false, "pack single Mie scattering into the scattering alpha channel")
		previews   = flag.Bool("previews", false, "write TIFF previews next to the tables")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output = *output
		case "backend":
			cfg.Backend = *backend
		case "workers":
			cfg.Workers = *workers
		case "orders":
			cfg.Orders = *orders
		case "half":
			cfg.HalfFloat = *half
		case "combined":
			cfg.CombinedScattering = *combined
		case "previews":
			cfg.Previews = *previews
		}
	})

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	atmosphere.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, &cfg); err != nil {
		log.Fatalf("Precompute failed: %v", err)
	}
}

func run(ctx context.Context, cfg *Config) error {
	atm, err := atmosphere.New(cfg.Parameters, cfg.Options()...)
	if err != nil {
		return err
	}
	defer atm.Dispose()

	start := time.Now()
	set, err := atm.Precompute(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	names, err := loader.Export(cfg.Output, set, cfg.HalfFloat)
	if err != nil {
		return err
	}
	files := make([]string, len(names))
	for i, name := range names {
		files[i] = filepath.Join(cfg.Output, name)
	}
	if cfg.Previews {
		written, err := WritePreviews(filepath.Join(cfg.Output, "preview"), set)
		if err != nil {
			return err
		}
		files = append(files, written...)
	}

	p := message.NewPrinter(language.English)
	for _, f := range files {
		st, err := os.Stat(f)
		if err != nil {
			return err
		}
		p.Printf("%-48s %12d bytes\n", f, st.Size())
	}
	p.Printf("precomputed %d orders in %v, %d bytes of GPU memory\n",
		cfg.Orders, elapsed.Round(time.Millisecond), set.ByteSize())
	return nil
}
