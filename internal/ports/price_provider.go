package ports

import (
	"context"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// PriceProvider obtiene la serie diaria OHLC de un activo, ya limpia
// (dividendos y splits reconciliados fuera de este módulo).
type PriceProvider interface {
	LoadPrices(ctx context.Context, asset string) (domain.PriceSeries, error)
}
