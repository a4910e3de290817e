package domain

import (
	"errors"
	"fmt"
	"time"
)

// ConfigurationError indica parámetros de estrategia inválidos (ventanas no positivas,
// precio de entrada <= 0, asset vacío). Aborta la simulación completa.
type ConfigurationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s=%v: %s", e.Field, e.Value, e.Reason)
}

// DataIntegrityError indica una serie de precios corrupta (gaps, duplicados, fechas no
// monótonas) o un blotter al que le falta la orden génesis de algún trade.
type DataIntegrityError struct {
	Asset   string
	TradeID int       // 0 si el problema es de la serie de precios
	Date    time.Time // zero si no aplica
	Reason  string
}

func (e *DataIntegrityError) Error() string {
	msg := "data integrity"
	if e.Asset != "" {
		msg += " [" + e.Asset + "]"
	}
	if e.TradeID != 0 {
		msg += fmt.Sprintf(" trade %d", e.TradeID)
	}
	if !e.Date.IsZero() {
		msg += " on " + FormatDate(e.Date)
	}
	return msg + ": " + e.Reason
}

// ComputationError indica que una métrica del ledger no se puede calcular,
// p.ej. un retorno sobre un holding period de longitud cero.
type ComputationError struct {
	TradeID int
	Reason  string
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("computation: trade %d: %s", e.TradeID, e.Reason)
}

// IsConfigurationError reporta si err (o algo que envuelve) es un ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsDataIntegrityError reporta si err (o algo que envuelve) es un DataIntegrityError.
func IsDataIntegrityError(err error) bool {
	var target *DataIntegrityError
	return errors.As(err, &target)
}

// IsComputationError reporta si err (o algo que envuelve) es un ComputationError.
func IsComputationError(err error) bool {
	var target *ComputationError
	return errors.As(err, &target)
}
