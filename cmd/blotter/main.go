package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/blotter/config"
	"github.com/alejandrodnm/blotter/internal/adapters/csvfile"
	"github.com/alejandrodnm/blotter/internal/adapters/notify"
	"github.com/alejandrodnm/blotter/internal/adapters/storage"
	"github.com/alejandrodnm/blotter/internal/application/backtest"
	"github.com/alejandrodnm/blotter/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file (empty = defaults)")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	compact := flag.Bool("compact", false, "print one line per asset instead of tables")
	asset := flag.String("asset", "", "backtest only this asset (with -prices: any asset)")
	prices := flag.String("prices", "", "price CSV for -asset (overrides config)")
	alpha1 := flag.Float64("alpha1", 0, "entry offset over previous close (overrides config)")
	n1 := flag.Int("n1", 0, "entry order lifetime in sessions (overrides config)")
	alpha2 := flag.Float64("alpha2", 0, "exit target over entry price (overrides config)")
	n2 := flag.Int("n2", 0, "exit order lifetime in sessions (overrides config)")
	ledgerFrom := flag.String("ledger-from", "", "rebuild the ledger from an exported blotter CSV and exit")
	list := flag.Bool("list", false, "list stored runs (filtered by -asset) and exit")
	show := flag.String("show", "", "print a stored run by id and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *compact {
		cfg.Output.Table = false
	}
	setupLogger(cfg.Log)

	// Solo los flags presentes en la línea de comandos sobreescriben la estrategia.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "alpha1":
			cfg.Strategy.Alpha1 = *alpha1
		case "n1":
			cfg.Strategy.N1 = *n1
		case "alpha2":
			cfg.Strategy.Alpha2 = *alpha2
		case "n2":
			cfg.Strategy.N2 = *n2
		}
	})
	query := *list || *show != ""
	if !query {
		if err := selectAsset(cfg, *asset, *prices); err != nil {
			slog.Error("invalid asset selection", "err", err)
			os.Exit(1)
		}
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	notifier := notify.NewConsole(cfg.Output.MaxRows, cfg.Output.Table)

	if *ledgerFrom != "" {
		if err := runLedgerFrom(ctx, cfg, *ledgerFrom, notifier); err != nil {
			slog.Error("ledger rebuild failed", "err", err, "blotter", *ledgerFrom)
			os.Exit(1)
		}
		return
	}

	// ports.RunStorage nil = sin persistencia; nunca asignar un *SQLiteStorage nil.
	var store ports.RunStorage
	if cfg.Storage.DSN != "" {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			os.Exit(1)
		}
		defer db.Close()
		store = db

		if retention := cfg.Retention(); retention > 0 {
			if n, err := db.Prune(ctx, retention); err != nil {
				slog.Warn("prune failed", "err", err)
			} else if n > 0 {
				slog.Info("pruned old runs", "deleted", n, "retention", retention)
			}
		}
	}

	if query {
		if store == nil {
			slog.Error("storage disabled: set storage.dsn or BLOTTER_DSN")
			os.Exit(1)
		}
		if err := runQuery(ctx, store, notifier, *list, *asset, *show); err != nil {
			slog.Error("query failed", "err", err)
			os.Exit(1)
		}
		return
	}

	var exporter ports.Exporter
	if cfg.Output.WriteCSV {
		exp := csvfile.NewExporter(cfg.Output.Dir)
		if err := exp.Reserve(cfg.Symbols()); err != nil {
			slog.Error("invalid configuration", "err", err)
			os.Exit(1)
		}
		exporter = exp
	}

	slog.Info("blotter starting",
		"config", *configPath,
		"assets", cfg.Symbols(),
		"alpha1", cfg.Strategy.Alpha1,
		"n1", cfg.Strategy.N1,
		"alpha2", cfg.Strategy.Alpha2,
		"n2", cfg.Strategy.N2,
		"storage", cfg.Storage.DSN,
	)

	runner := backtest.New(
		backtest.Config{Strategy: cfg.Params(""), Workers: cfg.Runner.Workers},
		csvfile.NewPriceLoader(cfg.PricePaths()),
		store,
		exporter,
		notifier,
	)
	if _, err := runner.Run(ctx, cfg.Symbols()); err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
