package simulator

import (
	"math/rand"
	"testing"
	"time"

	"github.com/alejandrodnm/blotter/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ohlc es una barra sin fecha; seriesFrom las fecha en días hábiles consecutivos
// empezando el lunes 2024-01-01.
type ohlc struct{ low, close float64 }

func seriesFrom(asset string, rows ...ohlc) domain.PriceSeries {
	s := domain.PriceSeries{Asset: asset}
	d := domain.Date(2024, 1, 1)
	for _, r := range rows {
		s.Bars = append(s.Bars, domain.PriceBar{
			Date:  d,
			Open:  r.close,
			High:  max(r.close, r.low) + 1,
			Low:   r.low,
			Close: r.close,
		})
		d = domain.NextBusinessDay(d)
	}
	return s
}

func params(alpha1 float64, n1 int, alpha2 float64, n2 int) domain.StrategyParams {
	return domain.StrategyParams{Asset: "IVV", Alpha1: alpha1, N1: n1, Alpha2: alpha2, N2: n2}
}

// row es la representación compacta de una orden para comparar blotters.
type row struct {
	TradeID int
	Date    string
	Leg     domain.Leg
	Type    domain.OrderType
	Price   float64
	Status  domain.OrderStatus
}

func rows(orders []domain.Order) []row {
	out := make([]row, len(orders))
	for i, o := range orders {
		out[i] = row{o.TradeID, domain.FormatDate(o.Date), o.Leg, o.Type, o.Price, o.Status}
	}
	return out
}

func forTrade(orders []domain.Order, tradeID int) []domain.Order {
	var out []domain.Order
	for _, o := range orders {
		if o.TradeID == tradeID {
			out = append(out, o)
		}
	}
	return out
}

func TestSimulate_GoldenBlotter(t *testing.T) {
	// closes 100, 99, 98, 97, 101 de lunes a viernes
	series := seriesFrom("IVV",
		ohlc{low: 99.5, close: 100},
		ohlc{low: 98.5, close: 99},
		ohlc{low: 97.5, close: 98},
		ohlc{low: 96.5, close: 97},
		ohlc{low: 99.5, close: 101},
	)

	orders, err := Simulate(series, params(-0.01, 3, 0.01, 5))
	require.NoError(t, err)

	want := []row{
		// entrada 100×0.99 = 99.00, low 98.5 el mismo día; salida 99.99 al cierre de 101
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 99.00, domain.StatusSubmitted},
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 99.00, domain.StatusFilled},
		{1, "2024-01-02", domain.LegExit, domain.OrderLimit, 99.99, domain.StatusSubmitted},
		{1, "2024-01-05", domain.LegExit, domain.OrderLimit, 99.99, domain.StatusFilled},
		// entrada 99×0.99 = 98.01; salida 98.01×1.01 = 98.99
		{2, "2024-01-03", domain.LegEnter, domain.OrderLimit, 98.01, domain.StatusSubmitted},
		{2, "2024-01-03", domain.LegEnter, domain.OrderLimit, 98.01, domain.StatusFilled},
		{2, "2024-01-03", domain.LegExit, domain.OrderLimit, 98.99, domain.StatusSubmitted},
		{2, "2024-01-05", domain.LegExit, domain.OrderLimit, 98.99, domain.StatusFilled},
		// entrada 98×0.99 = 97.02; salida 97.99
		{3, "2024-01-04", domain.LegEnter, domain.OrderLimit, 97.02, domain.StatusSubmitted},
		{3, "2024-01-04", domain.LegEnter, domain.OrderLimit, 97.02, domain.StatusFilled},
		{3, "2024-01-04", domain.LegExit, domain.OrderLimit, 97.99, domain.StatusSubmitted},
		{3, "2024-01-05", domain.LegExit, domain.OrderLimit, 97.99, domain.StatusFilled},
		// entrada 97×0.99 = 96.03, sin fill y ventana corta → LIVE el lunes siguiente
		{4, "2024-01-05", domain.LegEnter, domain.OrderLimit, 96.03, domain.StatusSubmitted},
		{4, "2024-01-08", domain.LegEnter, domain.OrderLimit, 96.03, domain.StatusLive},
	}
	assert.Equal(t, want, rows(orders))

	for _, o := range orders {
		assert.Equal(t, "IVV", o.Asset)
	}
}

func TestSimulate_EntryCancelledAtEndOfWindow(t *testing.T) {
	// low nunca toca 99.00
	flat := ohlc{low: 99.5, close: 100}
	series := seriesFrom("IVV", flat, flat, flat, flat, flat, flat)

	orders, err := Simulate(series, params(-0.01, 3, 0.01, 5))
	require.NoError(t, err)

	want := []row{
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{1, "2024-01-04", domain.LegEnter, domain.OrderLimit, 99, domain.StatusCancelled},
		{2, "2024-01-03", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{2, "2024-01-05", domain.LegEnter, domain.OrderLimit, 99, domain.StatusCancelled},
		{3, "2024-01-04", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{3, "2024-01-08", domain.LegEnter, domain.OrderLimit, 99, domain.StatusCancelled},
		{4, "2024-01-05", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{4, "2024-01-09", domain.LegEnter, domain.OrderLimit, 99, domain.StatusLive},
		{5, "2024-01-08", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{5, "2024-01-09", domain.LegEnter, domain.OrderLimit, 99, domain.StatusLive},
	}
	assert.Equal(t, want, rows(orders))
}

func TestSimulate_EntryFillsOnLastDayOfWindow(t *testing.T) {
	series := seriesFrom("IVV",
		ohlc{low: 99.5, close: 100},
		ohlc{low: 99.5, close: 100},
		ohlc{low: 99.5, close: 100},
		ohlc{low: 99.0, close: 100}, // toca exactamente 99.00 el 3er día
	)

	orders, err := Simulate(series, params(-0.01, 3, 0.5, 1))
	require.NoError(t, err)

	assert.Equal(t, []row{
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{1, "2024-01-04", domain.LegEnter, domain.OrderLimit, 99, domain.StatusFilled},
		// salida a 148.50 con ventana de 1 día: expira el mismo día y se vende a mercado
		{1, "2024-01-04", domain.LegExit, domain.OrderLimit, 148.5, domain.StatusSubmitted},
		{1, "2024-01-04", domain.LegExit, domain.OrderLimit, 148.5, domain.StatusCancelled},
		{1, "2024-01-04", domain.LegExit, domain.OrderMarket, 100, domain.StatusFilled},
	}, rows(forTrade(orders, 1)))
}

func TestSimulate_ExitEscalatesToMarketOrder(t *testing.T) {
	// alpha1=0 → entrada al cierre anterior (100). Salida a 101.00; ningún cierre
	// llega a 101 en 5 sesiones → CANCELLED + MKT al cierre del 5º día (100.9).
	series := seriesFrom("IVV",
		ohlc{low: 99.5, close: 100},
		ohlc{low: 99.0, close: 100}, // fill de la entrada
		ohlc{low: 99.8, close: 100.5},
		ohlc{low: 98.5, close: 99},
		ohlc{low: 99.5, close: 100.2},
		ohlc{low: 100.1, close: 100.9}, // 5º día de la ventana de salida
		ohlc{low: 101.0, close: 102},
	)

	orders, err := Simulate(series, params(0, 1, 0.01, 5))
	require.NoError(t, err)

	assert.Equal(t, []row{
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 100, domain.StatusSubmitted},
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 100, domain.StatusFilled},
		{1, "2024-01-02", domain.LegExit, domain.OrderLimit, 101, domain.StatusSubmitted},
		{1, "2024-01-08", domain.LegExit, domain.OrderLimit, 101, domain.StatusCancelled},
		{1, "2024-01-08", domain.LegExit, domain.OrderMarket, 100.9, domain.StatusFilled},
	}, rows(forTrade(orders, 1)))

	mkt := forTrade(orders, 1)[4]
	assert.Equal(t, domain.ActionSell, mkt.Action)
}

func TestSimulate_ExitFillsSameDayAsEntry(t *testing.T) {
	series := seriesFrom("IVV",
		ohlc{low: 99.5, close: 100},
		ohlc{low: 98.0, close: 101}, // low toca 99 y el cierre supera 99.99
	)

	orders, err := Simulate(series, params(-0.01, 3, 0.01, 5))
	require.NoError(t, err)

	assert.Equal(t, []row{
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 99, domain.StatusSubmitted},
		{1, "2024-01-02", domain.LegEnter, domain.OrderLimit, 99, domain.StatusFilled},
		{1, "2024-01-02", domain.LegExit, domain.OrderLimit, 99.99, domain.StatusSubmitted},
		{1, "2024-01-02", domain.LegExit, domain.OrderLimit, 99.99, domain.StatusFilled},
	}, rows(orders))
}

func TestSimulate_ExitLiveWhenSeriesEnds(t *testing.T) {
	series := seriesFrom("IVV",
		ohlc{low: 99.5, close: 100},
		ohlc{low: 98.0, close: 99},
		ohlc{low: 98.0, close: 99.5},
	)

	orders, err := Simulate(series, params(-0.01, 3, 0.01, 5))
	require.NoError(t, err)

	trade1 := rows(forTrade(orders, 1))
	require.Len(t, trade1, 4)
	// serie termina el miércoles 2024-01-03 → LIVE el jueves 2024-01-04
	assert.Equal(t, row{1, "2024-01-04", domain.LegExit, domain.OrderLimit, 99.99, domain.StatusLive}, trade1[3])
}

func TestSimulate_LiveDateSkipsWeekend(t *testing.T) {
	// 5 barras de lunes a viernes; la última orden queda LIVE el lunes.
	flat := ohlc{low: 99.5, close: 100}
	orders, err := Simulate(seriesFrom("IVV", flat, flat, flat, flat, flat), params(-0.01, 10, 0.01, 5))
	require.NoError(t, err)

	for _, o := range orders {
		if o.Status == domain.StatusLive {
			assert.Equal(t, domain.Date(2024, 1, 8), o.Date)
		}
	}
}

func TestSimulate_Idempotent(t *testing.T) {
	series := randomSeries(42, 250)
	p := params(-0.01, 3, 0.01, 5)

	sim, err := New(p)
	require.NoError(t, err)

	first, err := sim.Simulate(series)
	require.NoError(t, err)
	second, err := sim.Simulate(series)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, first[0].TradeID, "trade IDs restart on every run")
}

func TestSimulate_RandomSeriesProperties(t *testing.T) {
	for _, seed := range []int64{1, 7, 99, 2024} {
		series := randomSeries(seed, 300)
		orders, err := Simulate(series, params(-0.005, 3, 0.01, 5))
		require.NoError(t, err)

		type legs struct {
			enterSubmitted, exitSubmitted int
			enterFill                     *domain.Order
			exitSubmit                    *domain.Order
		}
		byTrade := map[int]*legs{}
		for i := range orders {
			o := orders[i]
			l, ok := byTrade[o.TradeID]
			if !ok {
				l = &legs{}
				byTrade[o.TradeID] = l
			}
			switch {
			case o.Is(domain.LegEnter, domain.StatusSubmitted):
				l.enterSubmitted++
			case o.Is(domain.LegEnter, domain.StatusFilled):
				l.enterFill = &orders[i]
			case o.Is(domain.LegExit, domain.StatusSubmitted):
				l.exitSubmitted++
				l.exitSubmit = &orders[i]
			case o.Is(domain.LegExit, domain.StatusCancelled):
				assert.True(t, hasMarketFill(orders, o.TradeID, o.Date),
					"seed %d trade %d: cancelled exit without market fill", seed, o.TradeID)
			}
		}

		assert.Len(t, byTrade, series.Len()-1, "one trade per bar with a prior close")
		for id, l := range byTrade {
			assert.Equal(t, 1, l.enterSubmitted, "seed %d trade %d", seed, id)
			assert.LessOrEqual(t, l.exitSubmitted, 1, "seed %d trade %d", seed, id)
			if l.exitSubmit != nil {
				require.NotNil(t, l.enterFill, "seed %d trade %d: exit without filled entry", seed, id)
				assert.Equal(t, l.enterFill.Date, l.exitSubmit.Date)
			}
		}

		sorted := append([]domain.Order(nil), orders...)
		domain.SortOrders(sorted)
		assert.Equal(t, sorted, orders, "blotter is in canonical order")
	}
}

func TestSimulate_RejectsBadInputs(t *testing.T) {
	series := randomSeries(1, 10)

	_, err := Simulate(series, params(-1, 3, 0.01, 5))
	assert.True(t, domain.IsConfigurationError(err))

	_, err = Simulate(series, params(-0.01, 0, 0.01, 5))
	assert.True(t, domain.IsConfigurationError(err))

	other := series
	other.Asset = "AMZN.O"
	_, err = Simulate(other, params(-0.01, 3, 0.01, 5))
	assert.True(t, domain.IsConfigurationError(err))

	dup := domain.PriceSeries{Asset: "IVV", Bars: []domain.PriceBar{series.Bars[0], series.Bars[0]}}
	_, err = Simulate(dup, params(-0.01, 3, 0.01, 5))
	assert.True(t, domain.IsDataIntegrityError(err))
}

func TestNextEntry(t *testing.T) {
	series := seriesFrom("IVV",
		ohlc{low: 99.5, close: 100},
		ohlc{low: 99.5, close: 101},
	)
	sim, err := New(params(-0.01, 3, 0.01, 5))
	require.NoError(t, err)

	next, err := sim.NextEntry(series)
	require.NoError(t, err)
	assert.Equal(t, 2, next.TradeID)
	assert.Equal(t, domain.Date(2024, 1, 3), next.Date)
	assert.Equal(t, 99.99, next.Price)
	assert.Equal(t, domain.StatusLive, next.Status)

	_, err = sim.NextEntry(domain.PriceSeries{Asset: "IVV"})
	assert.True(t, domain.IsDataIntegrityError(err))
}

func TestScanWindow(t *testing.T) {
	s := seriesFrom("IVV",
		ohlc{low: 10, close: 10},
		ohlc{low: 8, close: 8},
		ohlc{low: 7, close: 7},
		ohlc{low: 9, close: 9},
	)
	below := func(p float64) func(domain.PriceBar) bool {
		return func(b domain.PriceBar) bool { return b.Low <= p }
	}

	assert.Equal(t, windowResult{windowFilled, 1}, scanWindow(s.Bars, 0, 3, below(8)), "earliest match wins")
	assert.Equal(t, windowResult{windowExpired, 1}, scanWindow(s.Bars, 0, 2, below(5)))
	assert.Equal(t, windowResult{windowOpen, 3}, scanWindow(s.Bars, 2, 3, below(5)))
	assert.Equal(t, windowResult{windowExpired, 3}, scanWindow(s.Bars, 2, 2, below(5)))
}

func hasMarketFill(orders []domain.Order, tradeID int, date time.Time) bool {
	for _, o := range orders {
		if o.TradeID == tradeID && o.Leg == domain.LegExit && o.Type == domain.OrderMarket &&
			o.Status == domain.StatusFilled && o.Date.Equal(date) {
			return true
		}
	}
	return false
}

// randomSeries genera un paseo aleatorio reproducible en días hábiles consecutivos.
func randomSeries(seed int64, n int) domain.PriceSeries {
	rng := rand.New(rand.NewSource(seed))
	s := domain.PriceSeries{Asset: "IVV"}
	d := domain.Date(2023, 1, 2)
	price := 400.0
	for i := 0; i < n; i++ {
		open := price
		close := open * (1 + rng.NormFloat64()*0.01)
		high := max(open, close) * (1 + rng.Float64()*0.005)
		low := min(open, close) * (1 - rng.Float64()*0.005)
		s.Bars = append(s.Bars, domain.PriceBar{Date: d, Open: open, High: high, Low: low, Close: close})
		price = close
		d = domain.NextBusinessDay(d)
	}
	return s
}
