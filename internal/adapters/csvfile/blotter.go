package csvfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// BlotterHeader son las columnas del blotter exportado.
var BlotterHeader = []string{"trade_id", "date", "asset", "trip", "action", "type", "price", "status"}

// WriteBlotter escribe el blotter en CSV, en el orden recibido.
func WriteBlotter(w io.Writer, orders []domain.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(BlotterHeader); err != nil {
		return fmt.Errorf("write blotter header: %w", err)
	}
	for _, o := range orders {
		rec := []string{
			strconv.Itoa(o.TradeID),
			domain.FormatDate(o.Date),
			o.Asset,
			string(o.Leg),
			string(o.Action),
			string(o.Type),
			formatFloat(o.Price),
			string(o.Status),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write blotter trade %d: %w", o.TradeID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadBlotter parsea un blotter exportado con WriteBlotter. Valores desconocidos de
// trip, action, type o status son un DataIntegrityError.
func ReadBlotter(r io.Reader) ([]domain.Order, error) {
	cr := csv.NewReader(decodeText(r))
	cr.FieldsPerRecord = len(BlotterHeader)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blotter header: %w", err)
	}
	for i, col := range BlotterHeader {
		if strings.ToLower(strings.TrimSpace(header[i])) != col {
			return nil, &domain.DataIntegrityError{Reason: fmt.Sprintf("blotter column %d is %q, want %q", i+1, header[i], col)}
		}
	}

	var orders []domain.Order
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read blotter line %d: %w", line, err)
		}
		o, err := parseOrder(rec)
		if err != nil {
			return nil, &domain.DataIntegrityError{Reason: fmt.Sprintf("blotter line %d: %v", line, err)}
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func parseOrder(rec []string) (domain.Order, error) {
	id, err := strconv.Atoi(rec[0])
	if err != nil || id <= 0 {
		return domain.Order{}, fmt.Errorf("bad trade_id %q", rec[0])
	}
	date, err := domain.ParseDate(rec[1])
	if err != nil {
		return domain.Order{}, fmt.Errorf("bad date %q", rec[1])
	}
	price, err := strconv.ParseFloat(rec[6], 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		return domain.Order{}, fmt.Errorf("bad price %q", rec[6])
	}

	o := domain.Order{
		TradeID: id,
		Date:    date,
		Asset:   rec[2],
		Leg:     domain.Leg(rec[3]),
		Action:  domain.Action(rec[4]),
		Type:    domain.OrderType(rec[5]),
		Price:   price,
		Status:  domain.OrderStatus(rec[7]),
	}

	switch {
	case o.Leg != domain.LegEnter && o.Leg != domain.LegExit:
		return domain.Order{}, fmt.Errorf("bad trip %q", rec[3])
	case o.Action != domain.ActionBuy && o.Action != domain.ActionSell:
		return domain.Order{}, fmt.Errorf("bad action %q", rec[4])
	case o.Type != domain.OrderLimit && o.Type != domain.OrderMarket:
		return domain.Order{}, fmt.Errorf("bad type %q", rec[5])
	}
	switch o.Status {
	case domain.StatusSubmitted, domain.StatusFilled, domain.StatusCancelled, domain.StatusLive:
	default:
		return domain.Order{}, fmt.Errorf("bad status %q", rec[7])
	}
	return o, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
