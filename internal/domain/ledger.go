package domain

import (
	"math"
	"strconv"
	"time"
)

// Outcome clasifica el resultado de un trade en el ledger.
type Outcome int

const (
	OutcomeFailure Outcome = -1 // la salida limitada expiró y se cerró a mercado
	OutcomeNoEntry Outcome = 0  // la entrada nunca se llenó
	OutcomeSuccess Outcome = 1  // la salida limitada se llenó
)

// String devuelve la etiqueta legible del outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeFailure:
		return "FAILURE"
	case OutcomeNoEntry:
		return "NO_ENTRY"
	}
	return "UNKNOWN(" + strconv.Itoa(int(o)) + ")"
}

// LedgerEntry es la fila del ledger de un trade. Los campos puntero son nulos
// cuando el trade no llegó a esa fase (sin salida, sin fill, trade aún abierto).
type LedgerEntry struct {
	TradeID     int
	Asset       string
	EntryDate   time.Time
	ExitDate    *time.Time
	Outcome     *Outcome // nil = trade abierto (órdenes LIVE)
	HoldingDays *int
	EntryPrice  *float64
	ExitPrice   *float64
	LogReturn   *float64
}

// IsOpen reporta si el trade sigue abierto al final de la serie.
func (e LedgerEntry) IsOpen() bool {
	return e.Outcome == nil
}

// LogReturn devuelve ln(exit/entry) normalizado por el holding period.
// holdingDays debe ser > 0 y los precios positivos.
func LogReturn(entryPrice, exitPrice float64, holdingDays int) (float64, error) {
	if holdingDays <= 0 {
		return 0, &ComputationError{Reason: "holding period must be at least one business day, got " + strconv.Itoa(holdingDays)}
	}
	if entryPrice <= 0 || exitPrice <= 0 {
		return 0, &ComputationError{Reason: "log return needs positive prices"}
	}
	return math.Log(exitPrice/entryPrice) / float64(holdingDays), nil
}
