package simulator

import "github.com/alejandrodnm/blotter/internal/domain"

type windowState int

const (
	windowFilled  windowState = iota // alguna barra cumplió la condición
	windowExpired                    // ventana completa sin fill
	windowOpen                       // la serie terminó antes de completar la ventana
)

// windowResult es el resultado de escanear una ventana de fill.
// index es la barra del fill (windowFilled), la última de la ventana (windowExpired)
// o la última de la serie (windowOpen).
type windowResult struct {
	state windowState
	index int
}

// scanWindow recorre bars[start : start+n] (truncado al final de la serie) y devuelve
// la primera barra que cumple fills. La barra más temprana gana.
func scanWindow(bars []domain.PriceBar, start, n int, fills func(domain.PriceBar) bool) windowResult {
	end := min(start+n, len(bars))
	for i := start; i < end; i++ {
		if fills(bars[i]) {
			return windowResult{state: windowFilled, index: i}
		}
	}
	if end-start < n {
		return windowResult{state: windowOpen, index: end - 1}
	}
	return windowResult{state: windowExpired, index: end - 1}
}

// sequence genera trade IDs consecutivos para un único run.
type sequence struct {
	n int
}

func newSequence() *sequence { return &sequence{} }

func (s *sequence) next() int {
	s.n++
	return s.n
}

// last devuelve el último ID emitido (0 si ninguno).
func (s *sequence) last() int { return s.n }
