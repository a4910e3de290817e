package csvfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// Exporter implementa ports.Exporter escribiendo <dir>/<asset>_blotter.csv y
// <dir>/<asset>_ledger.csv. Dos activos que comparten nombre de archivo son un
// error: nunca se sobreescriben los CSV de otro activo.
type Exporter struct {
	dir string

	mu    sync.Mutex
	stems map[string]string // stem → activo
}

// NewExporter crea un exporter que escribe en dir (se crea si no existe).
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir, stems: make(map[string]string)}
}

// Reserve asigna nombre de archivo a cada activo antes de exportar nada, para
// detectar colisiones ("AMZN.O" y "AMZN_O") antes de simular.
func (e *Exporter) Reserve(assets []string) error {
	for _, a := range assets {
		if _, err := e.claim(a); err != nil {
			return fmt.Errorf("csvfile.Reserve: %w", err)
		}
	}
	return nil
}

func (e *Exporter) claim(asset string) (string, error) {
	stem := fileStem(asset)

	e.mu.Lock()
	defer e.mu.Unlock()
	if other, ok := e.stems[stem]; ok && other != asset {
		return "", &domain.ConfigurationError{
			Field:  "assets",
			Value:  asset,
			Reason: fmt.Sprintf("export file name %q collides with asset %q", stem, other),
		}
	}
	e.stems[stem] = asset
	return stem, nil
}

// Export escribe blotter y ledger del run y devuelve las rutas generadas.
func (e *Exporter) Export(ctx context.Context, run domain.Run) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	base, err := e.claim(run.Asset)
	if err != nil {
		return nil, fmt.Errorf("csvfile.Export: %w", err)
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("csvfile.Export: mkdir %q: %w", e.dir, err)
	}

	blotterPath := filepath.Join(e.dir, base+"_blotter.csv")
	ledgerPath := filepath.Join(e.dir, base+"_ledger.csv")

	if err := writeFile(blotterPath, func(w io.Writer) error { return WriteBlotter(w, run.Orders) }); err != nil {
		return nil, fmt.Errorf("csvfile.Export: %w", err)
	}
	if err := writeFile(ledgerPath, func(w io.Writer) error { return WriteLedger(w, run.Ledger) }); err != nil {
		return nil, fmt.Errorf("csvfile.Export: %w", err)
	}
	return []string{blotterPath, ledgerPath}, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %q: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %q: %w", path, err)
	}
	return f.Close()
}

// fileStem convierte un identificador de instrumento ("AMZN.O") en un nombre de
// archivo seguro ("AMZN_O").
func fileStem(asset string) string {
	stem := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			return r
		}
		return '_'
	}, asset)
	if stem == "" {
		return "asset"
	}
	return stem
}
