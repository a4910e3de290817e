package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Valores por defecto de la estrategia: comprar 1% bajo el cierre anterior durante
// 3 sesiones, vender 1% sobre la entrada durante 5 sesiones.
const (
	DefaultAlpha1 = -0.01
	DefaultN1     = 3
	DefaultAlpha2 = 0.01
	DefaultN2     = 5
)

// StrategyParams son los cuatro parámetros de la estrategia más el activo.
type StrategyParams struct {
	Asset  string
	Alpha1 float64 // descuento/prima de entrada sobre el cierre anterior
	N1     int     // sesiones que la orden de entrada sigue abierta
	Alpha2 float64 // markup/markdown de salida sobre el precio de entrada
	N2     int     // sesiones que la orden de salida sigue abierta
}

// DefaultParams devuelve los parámetros por defecto para un activo.
func DefaultParams(asset string) StrategyParams {
	return StrategyParams{
		Asset:  asset,
		Alpha1: DefaultAlpha1,
		N1:     DefaultN1,
		Alpha2: DefaultAlpha2,
		N2:     DefaultN2,
	}
}

// Validate rechaza parámetros que producirían precios no positivos o ventanas vacías.
func (p StrategyParams) Validate() error {
	switch {
	case strings.TrimSpace(p.Asset) == "":
		return &ConfigurationError{Field: "asset", Value: p.Asset, Reason: "must not be empty"}
	case !isFinite(p.Alpha1):
		return &ConfigurationError{Field: "alpha1", Value: p.Alpha1, Reason: "must be a finite number"}
	case !isFinite(p.Alpha2):
		return &ConfigurationError{Field: "alpha2", Value: p.Alpha2, Reason: "must be a finite number"}
	case p.Alpha1 <= -1:
		return &ConfigurationError{Field: "alpha1", Value: p.Alpha1, Reason: "entry price would be <= 0"}
	case p.N1 <= 0:
		return &ConfigurationError{Field: "n1", Value: p.N1, Reason: "entry window must be positive"}
	case p.Alpha2 <= -1:
		return &ConfigurationError{Field: "alpha2", Value: p.Alpha2, Reason: "exit price would be <= 0"}
	case p.N2 <= 0:
		return &ConfigurationError{Field: "n2", Value: p.N2, Reason: "exit window must be positive"}
	}
	return nil
}

// EntryPrice es el límite de compra: round(prevClose × (1 + alpha1), 2).
func (p StrategyParams) EntryPrice(prevClose float64) float64 {
	return applyFactor(prevClose, p.Alpha1)
}

// ExitPrice es el límite de venta: round(entryPrice × (1 + alpha2), 2).
func (p StrategyParams) ExitPrice(entryPrice float64) float64 {
	return applyFactor(entryPrice, p.Alpha2)
}

// RoundPrice redondea un precio a centavos.
func RoundPrice(price float64) float64 {
	return decimal.NewFromFloat(price).Round(2).InexactFloat64()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// applyFactor calcula base × (1 + alpha) en aritmética decimal para que 99 × 0.99
// sea 98.01 y no 98.00999999999999 antes de redondear.
func applyFactor(base, alpha float64) float64 {
	factor := decimal.NewFromInt(1).Add(decimal.NewFromFloat(alpha))
	return decimal.NewFromFloat(base).Mul(factor).Round(2).InexactFloat64()
}
