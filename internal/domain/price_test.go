package domain

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(d time.Time, close float64) PriceBar {
	return PriceBar{Date: d, Open: close, High: close + 1, Low: close - 1, Close: close}
}

func TestPriceSeries_Validate_OK(t *testing.T) {
	s := PriceSeries{Asset: "IVV", Bars: []PriceBar{
		bar(Date(2024, 1, 4), 100),
		bar(Date(2024, 1, 5), 101),
		bar(Date(2024, 1, 8), 102), // fin de semana en medio
		bar(Date(2024, 1, 10), 103), // un festivo
	}}
	assert.NoError(t, s.Validate())
	assert.Equal(t, 4, s.Len())
	assert.Equal(t, Date(2024, 1, 4), s.First().Date)
	assert.Equal(t, 103.0, s.Last().Close)
}

func TestPriceSeries_Validate_Errors(t *testing.T) {
	tests := []struct {
		name string
		bars []PriceBar
	}{
		{"single bar", []PriceBar{bar(Date(2024, 1, 2), 100)}},
		{"duplicate date", []PriceBar{bar(Date(2024, 1, 2), 100), bar(Date(2024, 1, 2), 101)}},
		{"descending", []PriceBar{bar(Date(2024, 1, 3), 100), bar(Date(2024, 1, 2), 101)}},
		{"gap", []PriceBar{bar(Date(2024, 1, 1), 100), bar(Date(2024, 1, 12), 101)}},
		{"zero close", []PriceBar{bar(Date(2024, 1, 1), 100), {Date: Date(2024, 1, 2), Open: 1, High: 2, Low: 1}}},
		{"nan low", []PriceBar{bar(Date(2024, 1, 1), 100), {Date: Date(2024, 1, 2), Open: 1, High: 2, Low: math.NaN(), Close: 1}}},
		{"low above high", []PriceBar{bar(Date(2024, 1, 1), 100), {Date: Date(2024, 1, 2), Open: 5, High: 4, Low: 6, Close: 5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PriceSeries{Asset: "IVV", Bars: tt.bars}.Validate()
			require.Error(t, err)
			assert.True(t, IsDataIntegrityError(err), "got %T", err)
			assert.Contains(t, err.Error(), "[IVV]")
		})
	}
}

func TestSortOrders_StableWithinLegAndDate(t *testing.T) {
	d1, d2 := Date(2024, 1, 2), Date(2024, 1, 3)
	orders := []Order{
		{TradeID: 2, Leg: LegEnter, Date: d1, Status: StatusSubmitted},
		{TradeID: 1, Leg: LegExit, Date: d2, Status: StatusCancelled, Type: OrderLimit},
		{TradeID: 1, Leg: LegExit, Date: d2, Status: StatusFilled, Type: OrderMarket},
		{TradeID: 1, Leg: LegEnter, Date: d2, Status: StatusFilled},
		{TradeID: 1, Leg: LegEnter, Date: d1, Status: StatusSubmitted},
		{TradeID: 1, Leg: LegExit, Date: d1, Status: StatusSubmitted},
	}
	SortOrders(orders)

	got := make([]string, len(orders))
	for i, o := range orders {
		got[i] = string(o.Leg) + "/" + string(o.Status) + "/" + string(o.Type)
	}
	assert.Equal(t, []string{
		"ENTER/SUBMITTED/",
		"ENTER/FILLED/",
		"EXIT/SUBMITTED/",
		"EXIT/CANCELLED/LMT",
		"EXIT/FILLED/MKT",
		"ENTER/SUBMITTED/",
	}, got)
	assert.Equal(t, 2, orders[5].TradeID)
}
