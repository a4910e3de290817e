package ports

import (
	"context"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// RunStorage persiste los runs del backtest: parámetros, blotter, ledger y resumen.
type RunStorage interface {
	// SaveRun persiste un run completo en una sola transacción.
	SaveRun(ctx context.Context, run domain.Run) error

	// GetRun devuelve un run con su blotter y su ledger.
	GetRun(ctx context.Context, runID string) (domain.Run, error)

	// ListRuns devuelve las cabeceras (sin órdenes ni ledger) de los runs de un activo,
	// los más recientes primero. asset vacío lista todos.
	ListRuns(ctx context.Context, asset string) ([]domain.Run, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
