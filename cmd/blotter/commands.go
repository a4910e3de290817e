package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alejandrodnm/blotter/config"
	"github.com/alejandrodnm/blotter/internal/adapters/csvfile"
	"github.com/alejandrodnm/blotter/internal/adapters/notify"
	"github.com/alejandrodnm/blotter/internal/application/backtest"
	"github.com/alejandrodnm/blotter/internal/domain"
	"github.com/alejandrodnm/blotter/internal/ports"
)

// selectAsset restringe el backtest a un activo. Con prices, el activo no necesita
// estar en el archivo de configuración.
func selectAsset(cfg *config.Config, asset, prices string) error {
	if asset == "" {
		if prices != "" {
			return &domain.ConfigurationError{Field: "prices", Value: prices, Reason: "requires -asset"}
		}
		return nil
	}
	if prices != "" {
		cfg.Assets = []config.AssetConfig{{Symbol: asset, Prices: prices}}
		return nil
	}
	for _, a := range cfg.Assets {
		if a.Symbol == asset {
			cfg.Assets = []config.AssetConfig{a}
			return nil
		}
	}
	return &domain.ConfigurationError{Field: "asset", Value: asset, Reason: "not in config; pass -prices"}
}

// runLedgerFrom reconstruye el ledger de un blotter exportado, lo muestra y, si
// output.write_csv está activo, lo escribe junto al resto de artefactos.
func runLedgerFrom(ctx context.Context, cfg *config.Config, path string, notifier ports.Notifier) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %q: %w", path, err)
	}
	orders, err := csvfile.ReadBlotter(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}

	run, err := backtest.FromBlotter(orders)
	if err != nil {
		return err
	}
	if err := notifier.NotifyRun(ctx, run); err != nil {
		return err
	}
	if !cfg.Output.WriteCSV {
		return nil
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %q: %w", cfg.Output.Dir, err)
	}
	stem := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".csv"), "_blotter")
	out := filepath.Join(cfg.Output.Dir, stem+"_ledger.csv")
	w, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create %q: %w", out, err)
	}
	if err := csvfile.WriteLedger(w, run.Ledger); err != nil {
		w.Close()
		return fmt.Errorf("write %q: %w", out, err)
	}
	if err := w.Close(); err != nil {
		return err
	}

	slog.Info("ledger rebuilt", "orders", len(orders), "trades", len(run.Ledger), "file", out)
	return nil
}

// runQuery lista o muestra runs guardados.
func runQuery(ctx context.Context, store ports.RunStorage, console *notify.Console, list bool, asset, runID string) error {
	if list {
		runs, err := store.ListRuns(ctx, asset)
		if err != nil {
			return err
		}
		console.PrintRuns(runs)
	}
	if runID == "" {
		return nil
	}
	run, err := store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	return console.NotifyRun(ctx, run)
}
