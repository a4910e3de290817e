package ledger

// builder.go — deriva el ledger (una fila por trade) a partir del blotter.
//
// Clasificación (la primera que aplique):
//   - EXIT/FILLED/LMT   → SUCCESS (1)
//   - EXIT/CANCELLED    → FAILURE (-1)
//   - ENTER/CANCELLED   → NO_ENTRY (0)
//   - resto             → abierto (outcome nulo)
//
// Un trade sin ENTER/SUBMITTED, con eventos duplicados o con estados finales
// contradictorios es un blotter corrupto y aborta todo el ledger.

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// tradeOrders agrupa los eventos relevantes de un trade.
type tradeOrders struct {
	asset          string
	enterSubmitted []domain.Order
	enterFilled    *domain.Order
	enterCancelled bool
	enterEnds      int // FILLED + CANCELLED + LIVE de la entrada
	exitSubmitted  int
	exitFilled     *domain.Order // LMT o MKT
	exitLimitFill  bool
	exitCancelled  bool
	exitLimitEnds  int // FILLED + CANCELLED + LIVE de la salida limitada
	marketFills    int
	hasExit        bool
}

// Build construye el ledger a partir del blotter. Devuelve una fila por trade_id,
// ordenadas por trade_id. Los trades abiertos se incluyen con Outcome nulo.
func Build(orders []domain.Order) ([]domain.LedgerEntry, error) {
	trades, ids, err := group(orders)
	if err != nil {
		return nil, fmt.Errorf("ledger.Build: %w", err)
	}

	entries := make([]domain.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		entry, err := buildEntry(id, trades[id])
		if err != nil {
			return nil, fmt.Errorf("ledger.Build: %w", err)
		}
		entries = append(entries, entry)
	}

	slog.Debug("ledger built", "orders", len(orders), "trades", len(entries))
	return entries, nil
}

// group indexa el blotter por trade_id y valida su integridad.
func group(orders []domain.Order) (map[int]*tradeOrders, []int, error) {
	trades := make(map[int]*tradeOrders)
	var ids []int

	for i := range orders {
		o := orders[i]
		t, ok := trades[o.TradeID]
		if !ok {
			t = &tradeOrders{asset: o.Asset}
			trades[o.TradeID] = t
			ids = append(ids, o.TradeID)
		}
		if o.Asset != t.asset {
			return nil, nil, integrityError(o.Asset, o.TradeID, o.Date, "trade mixes assets "+t.asset+" and "+o.Asset)
		}

		switch o.Leg {
		case domain.LegEnter:
			switch o.Status {
			case domain.StatusSubmitted:
				t.enterSubmitted = append(t.enterSubmitted, o)
			case domain.StatusFilled:
				t.enterFilled = &orders[i]
				t.enterEnds++
			case domain.StatusCancelled:
				t.enterCancelled = true
				t.enterEnds++
			case domain.StatusLive:
				t.enterEnds++
			}
		case domain.LegExit:
			t.hasExit = true
			if o.Type == domain.OrderMarket {
				if o.Status != domain.StatusFilled {
					return nil, nil, integrityError(o.Asset, o.TradeID, o.Date,
						fmt.Sprintf("market exit order with status %s", o.Status))
				}
				t.exitFilled = &orders[i]
				t.marketFills++
				continue
			}
			switch o.Status {
			case domain.StatusSubmitted:
				t.exitSubmitted++
			case domain.StatusFilled:
				t.exitFilled = &orders[i]
				t.exitLimitFill = true
				t.exitLimitEnds++
			case domain.StatusCancelled:
				t.exitCancelled = true
				t.exitLimitEnds++
			case domain.StatusLive:
				t.exitLimitEnds++
			}
		default:
			return nil, nil, integrityError(o.Asset, o.TradeID, o.Date, fmt.Sprintf("unknown leg %q", o.Leg))
		}
	}

	for _, id := range ids {
		if err := checkTrade(id, trades[id]); err != nil {
			return nil, nil, err
		}
	}

	sort.Ints(ids)
	return trades, ids, nil
}

// checkTrade exige una sola ENTER con a lo sumo un estado final, y a lo sumo una
// EXIT limitada. El fill a mercado solo existe tras cancelar la salida limitada.
func checkTrade(id int, t *tradeOrders) error {
	var reason string
	switch {
	case len(t.enterSubmitted) == 0:
		reason = "no submitted entry order (missing genesis)"
	case len(t.enterSubmitted) > 1:
		reason = fmt.Sprintf("%d submitted entry orders", len(t.enterSubmitted))
	case t.enterEnds > 1:
		reason = fmt.Sprintf("entry has %d final states (filled, cancelled or live)", t.enterEnds)
	case t.hasExit && t.enterFilled == nil:
		reason = "exit order without a filled entry"
	case t.hasExit && t.exitSubmitted != 1:
		reason = fmt.Sprintf("%d submitted exit orders", t.exitSubmitted)
	case t.exitLimitEnds > 1:
		reason = fmt.Sprintf("exit has %d final states (filled, cancelled or live)", t.exitLimitEnds)
	case t.marketFills > 1:
		reason = fmt.Sprintf("%d market exit fills", t.marketFills)
	case t.exitCancelled && t.marketFills == 0:
		reason = "cancelled exit without a market fill"
	case !t.exitCancelled && t.marketFills > 0:
		reason = "market exit fill without a cancelled limit exit"
	default:
		return nil
	}
	return integrityError(t.asset, id, time.Time{}, reason)
}

func integrityError(asset string, id int, date time.Time, reason string) *domain.DataIntegrityError {
	return &domain.DataIntegrityError{Asset: asset, TradeID: id, Date: date, Reason: reason}
}

func buildEntry(id int, t *tradeOrders) (domain.LedgerEntry, error) {
	entry := domain.LedgerEntry{
		TradeID:   id,
		Asset:     t.asset,
		EntryDate: t.enterSubmitted[0].Date,
		Outcome:   classify(t),
	}

	if t.enterFilled != nil {
		px := t.enterFilled.Price
		entry.EntryPrice = &px
	}
	if t.exitFilled != nil {
		px := t.exitFilled.Price
		d := t.exitFilled.Date
		entry.ExitPrice = &px
		entry.ExitDate = &d
	}

	if entry.ExitDate == nil {
		return entry, nil
	}

	n, err := holdingDays(id, entry.EntryDate, *entry.ExitDate)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	entry.HoldingDays = &n

	if entry.EntryPrice != nil {
		rtn, err := domain.LogReturn(*entry.EntryPrice, *entry.ExitPrice, n)
		if err != nil {
			return domain.LedgerEntry{}, withTrade(err, id)
		}
		entry.LogReturn = &rtn
	}
	return entry, nil
}

func classify(t *tradeOrders) *domain.Outcome {
	var o domain.Outcome
	switch {
	case t.exitLimitFill:
		o = domain.OutcomeSuccess
	case t.exitCancelled:
		o = domain.OutcomeFailure
	case t.enterCancelled:
		o = domain.OutcomeNoEntry
	default:
		return nil
	}
	return &o
}

// holdingDays cuenta los días hábiles de entry a exit, ambos incluidos.
// Un trade que sale antes de entrar (o sobre fines de semana) no tiene holding period.
func holdingDays(id int, entry, exit time.Time) (int, error) {
	n := domain.BusinessDaysInclusive(entry, exit)
	if n <= 0 {
		return 0, &domain.ComputationError{
			TradeID: id,
			Reason: fmt.Sprintf("empty holding period from %s to %s",
				domain.FormatDate(entry), domain.FormatDate(exit)),
		}
	}
	return n, nil
}

func withTrade(err error, id int) error {
	if ce, ok := err.(*domain.ComputationError); ok {
		return &domain.ComputationError{TradeID: id, Reason: ce.Reason}
	}
	return err
}
