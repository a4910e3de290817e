package ports

import (
	"context"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// Notifier presenta el resultado de un run al usuario.
type Notifier interface {
	// NotifyRun muestra blotter, ledger y resumen del run.
	NotifyRun(ctx context.Context, run domain.Run) error
}
