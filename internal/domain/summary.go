package domain

import "time"

// Summary resume el ledger de un run: conteos por outcome y retorno medio.
type Summary struct {
	Trades        int
	Successes     int
	Failures      int
	NoEntries     int
	Open          int
	SuccessRate   float64 // successes / (successes + failures); 0 sin trades cerrados
	MeanLogReturn float64 // media de LogReturn sobre las filas que lo tienen
	WithReturn    int
}

// Closed devuelve los trades que entraron y salieron.
func (s Summary) Closed() int { return s.Successes + s.Failures }

// Summarize calcula el Summary de un ledger.
func Summarize(entries []LedgerEntry) Summary {
	s := Summary{Trades: len(entries)}
	var sumRtn float64
	for _, e := range entries {
		if e.Outcome == nil {
			s.Open++
		} else {
			switch *e.Outcome {
			case OutcomeSuccess:
				s.Successes++
			case OutcomeFailure:
				s.Failures++
			case OutcomeNoEntry:
				s.NoEntries++
			}
		}
		if e.LogReturn != nil {
			sumRtn += *e.LogReturn
			s.WithReturn++
		}
	}
	if closed := s.Closed(); closed > 0 {
		s.SuccessRate = float64(s.Successes) / float64(closed)
	}
	if s.WithReturn > 0 {
		s.MeanLogReturn = sumRtn / float64(s.WithReturn)
	}
	return s
}

// Run es una ejecución completa del backtest para un activo: parámetros,
// blotter, ledger y resumen.
type Run struct {
	ID        string
	Asset     string
	Params    StrategyParams
	CreatedAt time.Time
	FirstDate time.Time // primera barra de la serie
	LastDate  time.Time // última barra de la serie
	Bars      int
	Orders    []Order
	Ledger    []LedgerEntry
	Summary   Summary
	NextEntry *Order // orden de entrada de la próxima sesión; no forma parte del blotter
}
