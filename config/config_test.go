package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alejandrodnm/blotter/config"
	"github.com/alejandrodnm/blotter/internal/adapters/csvfile"
	"github.com/alejandrodnm/blotter/internal/application/ledger"
	"github.com/alejandrodnm/blotter/internal/application/simulator"
	"github.com/alejandrodnm/blotter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "BLOTTER_OUTPUT_DIR", "BLOTTER_WORKERS"} {
		t.Setenv(k, "")
	}
	// BLOTTER_DSN distingue vacío de ausente
	t.Setenv("BLOTTER_DSN", "")
	os.Unsetenv("BLOTTER_DSN")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultParams("IVV"), cfg.Params("IVV"))
	assert.Equal(t, []string{"IVV"}, cfg.Symbols())
	assert.Equal(t, map[string]string{"IVV": "data/IVV.csv"}, cfg.PricePaths())
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.True(t, cfg.Output.WriteCSV)
	assert.Equal(t, "blotter.db", cfg.Storage.DSN)
	assert.Equal(t, time.Duration(0), cfg.Retention())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_YAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
strategy:
  alpha1: 0
  n2: 10
assets:
  - symbol: AMZN.O
    prices: data/AMZN.csv
  - symbol: IVV
    prices: data/IVV.csv
storage:
  dsn: ""
  retention_days: 7
log:
  format: json
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	p := cfg.Params("AMZN.O")
	assert.Equal(t, 0.0, p.Alpha1)
	assert.Equal(t, domain.DefaultN1, p.N1)
	assert.Equal(t, domain.DefaultAlpha2, p.Alpha2)
	assert.Equal(t, 10, p.N2)

	assert.Equal(t, []string{"AMZN.O", "IVV"}, cfg.Symbols())
	assert.Empty(t, cfg.Storage.DSN)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BLOTTER_DSN", ":memory:")
	t.Setenv("BLOTTER_OUTPUT_DIR", "/tmp/blotter")
	t.Setenv("BLOTTER_WORKERS", "3")

	cfg, err := config.Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "/tmp/blotter", cfg.Output.Dir)
	assert.Equal(t, 3, cfg.Runner.Workers)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{"n1 zero", "strategy:\n  n1: 0\n", nil},
		{"alpha1 wipes price", "strategy:\n  alpha1: -1\n", nil},
		{"alpha1 not a number", "strategy:\n  alpha1: .nan\n", nil},
		{"alpha2 infinite", "strategy:\n  alpha2: .inf\n", nil},
		{"no assets", "assets: []\n", nil},
		{"asset without prices", "assets:\n  - symbol: IVV\n", nil},
		{"duplicate asset", "assets:\n  - {symbol: IVV, prices: a.csv}\n  - {symbol: IVV, prices: b.csv}\n", nil},
		{"negative workers", "runner:\n  workers: -1\n", nil},
		{"bad log level", "log:\n  level: loud\n", nil},
		{"bad workers env", "", map[string]string{"BLOTTER_WORKERS": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, domain.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// Los precios por defecto viven en el repo, relativos a la raíz del módulo.
func TestDefault_PricesAreShipped(t *testing.T) {
	cfg := config.Default()
	for _, asset := range cfg.Symbols() {
		t.Run(asset, func(t *testing.T) {
			f, err := os.Open(filepath.Join("..", cfg.PricePaths()[asset]))
			require.NoError(t, err)
			defer f.Close()

			series, err := csvfile.ReadPrices(f, asset)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, series.Len(), 2)

			orders, err := simulator.Simulate(series, cfg.Params(asset))
			require.NoError(t, err)
			entries, err := ledger.Build(orders)
			require.NoError(t, err)
			assert.Len(t, entries, series.Len()-1)
		})
	}
}
