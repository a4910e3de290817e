package backtest

// runner.go — orquesta el backtest de varios activos.
//
// Por activo (en paralelo, pool acotado): precios → simulación → ledger → resumen.
// Después, en orden de activo y secuencialmente: persistir → exportar → notificar.
// El primer error cancela el trabajo pendiente y se devuelve; no hay runs parciales.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/blotter/internal/application/ledger"
	"github.com/alejandrodnm/blotter/internal/application/simulator"
	"github.com/alejandrodnm/blotter/internal/domain"
	"github.com/alejandrodnm/blotter/internal/ports"
	"github.com/google/uuid"
)

// Config contiene la configuración del runner.
type Config struct {
	Strategy domain.StrategyParams // Asset se ignora: se fija por activo
	Workers  int                   // goroutines para simular en paralelo (0 = NumCPU)
}

// Runner ejecuta el backtest con las dependencias inyectadas. storage, exporter y
// notifier son opcionales (nil = paso desactivado).
type Runner struct {
	cfg      Config
	prices   ports.PriceProvider
	storage  ports.RunStorage
	exporter ports.Exporter
	notifier ports.Notifier

	now   func() time.Time
	newID func() string
}

// New crea un Runner.
func New(
	cfg Config,
	prices ports.PriceProvider,
	storage ports.RunStorage,
	exporter ports.Exporter,
	notifier ports.Notifier,
) *Runner {
	return &Runner{
		cfg:      cfg,
		prices:   prices,
		storage:  storage,
		exporter: exporter,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run ejecuta el backtest de los activos dados y devuelve los runs ordenados por activo.
func (r *Runner) Run(ctx context.Context, assets []string) ([]domain.Run, error) {
	if err := r.validate(assets); err != nil {
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}

	start := time.Now()
	slog.Info("backtest starting", "assets", len(assets), "workers", r.workers(len(assets)))

	runs, err := r.simulateAll(ctx, assets)
	if err != nil {
		return nil, fmt.Errorf("backtest.Run: %w", err)
	}

	for _, run := range runs {
		if err := r.publish(ctx, run); err != nil {
			return nil, fmt.Errorf("backtest.Run: %s: %w", run.Asset, err)
		}
	}

	slog.Info("backtest complete", "assets", len(runs), "elapsed", time.Since(start).Round(time.Millisecond))
	return runs, nil
}

func (r *Runner) validate(assets []string) error {
	if len(assets) == 0 {
		return &domain.ConfigurationError{Field: "assets", Value: 0, Reason: "no assets to backtest"}
	}
	seen := make(map[string]bool, len(assets))
	for _, a := range assets {
		if a == "" {
			return &domain.ConfigurationError{Field: "assets", Value: a, Reason: "empty asset symbol"}
		}
		if seen[a] {
			return &domain.ConfigurationError{Field: "assets", Value: a, Reason: "duplicate asset"}
		}
		seen[a] = true
	}
	params := r.cfg.Strategy
	params.Asset = assets[0]
	return params.Validate()
}

func (r *Runner) workers(n int) int {
	w := r.cfg.Workers
	if w <= 0 {
		w = runtime.NumCPU()
	}
	return min(w, n)
}

// simulateAll simula cada activo en un worker pool. Si un activo falla, cancela el
// resto y devuelve ese error.
func (r *Runner) simulateAll(ctx context.Context, assets []string) ([]domain.Run, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		run domain.Run
		err error
	}

	workCh := make(chan string, len(assets))
	resultCh := make(chan result, len(assets))

	var wg sync.WaitGroup
	for i := 0; i < r.workers(len(assets)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for asset := range workCh {
				if err := ctx.Err(); err != nil {
					resultCh <- result{err: err}
					continue
				}
				run, err := r.simulate(ctx, asset)
				if err != nil {
					cancel()
				}
				resultCh <- result{run: run, err: err}
			}
		}()
	}

	for _, a := range assets {
		workCh <- a
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	runs := make([]domain.Run, 0, len(assets))
	var firstErr error
	for res := range resultCh {
		if res.err == nil {
			runs = append(runs, res.run)
			continue
		}
		// Un error real tiene prioridad sobre las cancelaciones que provocó.
		if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(res.err, context.Canceled)) {
			firstErr = res.err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Asset < runs[j].Asset })
	return runs, nil
}

// simulate ejecuta el pipeline puro de un activo.
func (r *Runner) simulate(ctx context.Context, asset string) (domain.Run, error) {
	series, err := r.prices.LoadPrices(ctx, asset)
	if err != nil {
		return domain.Run{}, fmt.Errorf("load prices %s: %w", asset, err)
	}

	params := r.cfg.Strategy
	params.Asset = asset
	sim, err := simulator.New(params)
	if err != nil {
		return domain.Run{}, err
	}

	orders, err := sim.Simulate(series)
	if err != nil {
		return domain.Run{}, fmt.Errorf("simulate %s: %w", asset, err)
	}
	entries, err := ledger.Build(orders)
	if err != nil {
		return domain.Run{}, fmt.Errorf("ledger %s: %w", asset, err)
	}
	next, err := sim.NextEntry(series)
	if err != nil {
		return domain.Run{}, fmt.Errorf("next entry %s: %w", asset, err)
	}

	run := domain.Run{
		ID:        r.newID(),
		Asset:     asset,
		Params:    params,
		CreatedAt: r.now().UTC(),
		FirstDate: series.First().Date,
		LastDate:  series.Last().Date,
		Bars:      series.Len(),
		Orders:    orders,
		Ledger:    entries,
		Summary:   domain.Summarize(entries),
		NextEntry: &next,
	}

	slog.Debug("asset simulated",
		"asset", asset,
		"run_id", run.ID,
		"orders", len(orders),
		"trades", run.Summary.Trades,
		"open", run.Summary.Open,
	)
	return run, nil
}

// publish persiste, exporta y notifica un run.
func (r *Runner) publish(ctx context.Context, run domain.Run) error {
	if r.storage != nil {
		if err := r.storage.SaveRun(ctx, run); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}
	if r.exporter != nil {
		paths, err := r.exporter.Export(ctx, run)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		slog.Info("run exported", "asset", run.Asset, "files", paths)
	}
	if r.notifier != nil {
		if err := r.notifier.NotifyRun(ctx, run); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
	}
	return nil
}

// FromBlotter reconstruye ledger y resumen de un blotter ya generado (p.ej. leído de
// CSV). El run resultante no tiene ID ni parámetros.
func FromBlotter(orders []domain.Order) (domain.Run, error) {
	entries, err := ledger.Build(orders)
	if err != nil {
		return domain.Run{}, fmt.Errorf("backtest.FromBlotter: %w", err)
	}

	run := domain.Run{
		Orders:  orders,
		Ledger:  entries,
		Summary: domain.Summarize(entries),
	}
	for i, o := range orders {
		if i == 0 || o.Date.Before(run.FirstDate) {
			run.FirstDate = o.Date
		}
		if o.Date.After(run.LastDate) {
			run.LastDate = o.Date
		}
	}
	if len(orders) > 0 {
		run.Asset = orders[0].Asset
		run.Params.Asset = run.Asset
	}
	return run, nil
}
