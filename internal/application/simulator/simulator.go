package simulator

// simulator.go — reconstruye el blotter de la estrategia entrada/salida día a día.
//
// Para cada sesión i con cierre previo disponible:
//  1. Orden ENTER/BUY/LMT a round(close[i-1] × (1+alpha1), 2), SUBMITTED en la fecha i.
//  2. Ventana de n1 sesiones desde i: se llena en la primera barra con low <= precio.
//     Ventana completa sin fill → CANCELLED el último día. Ventana corta → LIVE.
//  3. Entrada llenada → EXIT/SELL/LMT a round(entrada × (1+alpha2), 2), SUBMITTED
//     el mismo día del fill.
//  4. Ventana de n2 sesiones desde el fill: se llena en la primera barra con
//     close >= precio. Ventana completa sin fill → CANCELLED + MKT FILLED al cierre
//     de ese día. Ventana corta → LIVE.
//
// Las órdenes LIVE se fechan el siguiente día hábil tras el final de la serie.

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// Simulator ejecuta la estrategia sobre una serie de precios. Es puro: la misma
// serie con los mismos parámetros produce siempre el mismo blotter.
type Simulator struct {
	params domain.StrategyParams
}

// New valida los parámetros y crea un Simulator.
func New(params domain.StrategyParams) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("simulator.New: %w", err)
	}
	return &Simulator{params: params}, nil
}

// Params devuelve los parámetros del simulador.
func (s *Simulator) Params() domain.StrategyParams {
	return s.params
}

// Simulate genera el blotter completo de la serie, ordenado por (trade_id, leg, date).
// Los trade IDs empiezan en 1 en cada llamada.
func (s *Simulator) Simulate(series domain.PriceSeries) ([]domain.Order, error) {
	if series.Asset != "" && series.Asset != s.params.Asset {
		return nil, fmt.Errorf("simulator.Simulate: %w", &domain.ConfigurationError{
			Field:  "asset",
			Value:  s.params.Asset,
			Reason: "price series belongs to " + series.Asset,
		})
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("simulator.Simulate: %w", err)
	}

	bars := series.Bars
	liveDate := domain.NextBusinessDay(series.Last().Date)
	ids := newSequence()

	// Por trade: SUBMITTED + resolución de la entrada, y si se llenó, SUBMITTED +
	// resolución (+ MKT) de la salida.
	orders := make([]domain.Order, 0, 4*len(bars))

	for i := 1; i < len(bars); i++ {
		tradeID := ids.next()
		entryPrice := s.params.EntryPrice(bars[i-1].Close)

		entry := domain.Order{
			TradeID: tradeID,
			Date:    bars[i].Date,
			Asset:   s.params.Asset,
			Leg:     domain.LegEnter,
			Action:  domain.ActionBuy,
			Type:    domain.OrderLimit,
			Price:   entryPrice,
			Status:  domain.StatusSubmitted,
		}
		orders = append(orders, entry)

		w := scanWindow(bars, i, s.params.N1, func(b domain.PriceBar) bool {
			return b.Low <= entryPrice
		})

		switch w.state {
		case windowExpired:
			orders = append(orders, withStatus(entry, domain.StatusCancelled, bars[w.index].Date))
			continue
		case windowOpen:
			orders = append(orders, withStatus(entry, domain.StatusLive, liveDate))
			continue
		}

		fillIdx := w.index
		orders = append(orders, withStatus(entry, domain.StatusFilled, bars[fillIdx].Date))
		orders = append(orders, s.exitOrders(bars, tradeID, entryPrice, fillIdx, liveDate)...)
	}

	domain.SortOrders(orders)

	slog.Debug("simulation complete",
		"asset", s.params.Asset,
		"bars", len(bars),
		"trades", ids.last(),
		"orders", len(orders),
	)
	return orders, nil
}

// exitOrders genera la pata de salida de un trade cuya entrada se llenó en fillIdx.
func (s *Simulator) exitOrders(
	bars []domain.PriceBar,
	tradeID int,
	entryPrice float64,
	fillIdx int,
	liveDate time.Time,
) []domain.Order {
	exitPrice := s.params.ExitPrice(entryPrice)

	exit := domain.Order{
		TradeID: tradeID,
		Date:    bars[fillIdx].Date,
		Asset:   s.params.Asset,
		Leg:     domain.LegExit,
		Action:  domain.ActionSell,
		Type:    domain.OrderLimit,
		Price:   exitPrice,
		Status:  domain.StatusSubmitted,
	}

	w := scanWindow(bars, fillIdx, s.params.N2, func(b domain.PriceBar) bool {
		return b.Close >= exitPrice
	})

	switch w.state {
	case windowFilled:
		return []domain.Order{exit, withStatus(exit, domain.StatusFilled, bars[w.index].Date)}
	case windowOpen:
		return []domain.Order{exit, withStatus(exit, domain.StatusLive, liveDate)}
	}

	// Expirada: cancelar la limitada y vender a mercado al cierre del mismo día.
	last := bars[w.index]
	market := exit
	market.Type = domain.OrderMarket
	market.Price = last.Close
	market.Status = domain.StatusFilled
	market.Date = last.Date

	return []domain.Order{exit, withStatus(exit, domain.StatusCancelled, last.Date), market}
}

// NextEntry devuelve la orden de entrada que se enviaría en la próxima sesión tras
// el final de la serie (precio sobre el último cierre), en estado LIVE. No forma parte
// del blotter: no tiene SUBMITTED dentro de la serie y el ledger la rechazaría.
func (s *Simulator) NextEntry(series domain.PriceSeries) (domain.Order, error) {
	if series.Len() == 0 {
		return domain.Order{}, &domain.DataIntegrityError{Asset: series.Asset, Reason: "empty price series"}
	}
	last := series.Last()
	return domain.Order{
		TradeID: series.Len(),
		Date:    domain.NextBusinessDay(last.Date),
		Asset:   s.params.Asset,
		Leg:     domain.LegEnter,
		Action:  domain.ActionBuy,
		Type:    domain.OrderLimit,
		Price:   s.params.EntryPrice(last.Close),
		Status:  domain.StatusLive,
	}, nil
}

// Simulate es un atajo para New + Simulate.
func Simulate(series domain.PriceSeries, params domain.StrategyParams) ([]domain.Order, error) {
	sim, err := New(params)
	if err != nil {
		return nil, err
	}
	return sim.Simulate(series)
}

func withStatus(o domain.Order, status domain.OrderStatus, date time.Time) domain.Order {
	o.Status = status
	o.Date = date
	return o
}
