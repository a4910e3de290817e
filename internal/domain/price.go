package domain

import (
	"fmt"
	"math"
	"time"
)

// MaxMissingBusinessDays es el máximo de días hábiles sin barra entre dos barras
// consecutivas. Cubre festivos de mercado; más que eso es un hueco en los datos.
const MaxMissingBusinessDays = 3

// PriceBar es una vela diaria OHLC de un único activo.
type PriceBar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// PriceSeries es la historia diaria de un activo, ordenada por fecha ascendente.
// Es de solo lectura para el simulador.
type PriceSeries struct {
	Asset string
	Bars  []PriceBar
}

// Len devuelve el número de barras.
func (s PriceSeries) Len() int { return len(s.Bars) }

// First devuelve la primera barra. La serie no debe estar vacía.
func (s PriceSeries) First() PriceBar { return s.Bars[0] }

// Last devuelve la última barra. La serie no debe estar vacía.
func (s PriceSeries) Last() PriceBar { return s.Bars[len(s.Bars)-1] }

// Validate comprueba las precondiciones del simulador: al menos 2 barras, fechas
// estrictamente crecientes, sin huecos mayores que MaxMissingBusinessDays y precios
// OHLC coherentes. Cualquier violación es un DataIntegrityError.
func (s PriceSeries) Validate() error {
	if len(s.Bars) < 2 {
		return &DataIntegrityError{
			Asset:  s.Asset,
			Reason: fmt.Sprintf("need at least 2 price bars, got %d", len(s.Bars)),
		}
	}

	for i, b := range s.Bars {
		if err := validateBar(s.Asset, b); err != nil {
			return err
		}
		if i == 0 {
			continue
		}

		prev := s.Bars[i-1].Date
		switch {
		case b.Date.Equal(prev):
			return &DataIntegrityError{Asset: s.Asset, Date: b.Date, Reason: "duplicate date"}
		case b.Date.Before(prev):
			return &DataIntegrityError{
				Asset:  s.Asset,
				Date:   b.Date,
				Reason: "dates not increasing (previous bar " + FormatDate(prev) + ")",
			}
		}

		if missing := BusinessDaysBetween(prev, b.Date); missing > MaxMissingBusinessDays {
			return &DataIntegrityError{
				Asset:  s.Asset,
				Date:   b.Date,
				Reason: fmt.Sprintf("gap of %d business days since %s", missing, FormatDate(prev)),
			}
		}
	}
	return nil
}

func validateBar(asset string, b PriceBar) error {
	for _, v := range [...]float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return &DataIntegrityError{Asset: asset, Date: b.Date, Reason: "non-positive or missing price"}
		}
	}
	if b.Low > b.High {
		return &DataIntegrityError{Asset: asset, Date: b.Date, Reason: "low above high"}
	}
	return nil
}
