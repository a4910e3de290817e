package ports

import (
	"context"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// Exporter escribe los artefactos tabulares de un run (blotter y ledger).
type Exporter interface {
	// Export escribe ambos artefactos y devuelve las rutas generadas.
	Export(ctx context.Context, run domain.Run) ([]string, error)
}
