package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/alejandrodnm/blotter/internal/domain"
)

// LedgerHeader son las columnas del ledger exportado. success es 1/-1/0;
// las celdas vacías son valores nulos (trade abierto, sin salida, etc.).
var LedgerHeader = []string{"trade_id", "asset", "dt_enter", "dt_exit", "success", "n", "rtn"}

// WriteLedger escribe el ledger en CSV.
func WriteLedger(w io.Writer, entries []domain.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LedgerHeader); err != nil {
		return fmt.Errorf("write ledger header: %w", err)
	}
	for _, e := range entries {
		rec := []string{
			strconv.Itoa(e.TradeID),
			e.Asset,
			domain.FormatDate(e.EntryDate),
			"",
			"",
			"",
			"",
		}
		if e.ExitDate != nil {
			rec[3] = domain.FormatDate(*e.ExitDate)
		}
		if e.Outcome != nil {
			rec[4] = strconv.Itoa(int(*e.Outcome))
		}
		if e.HoldingDays != nil {
			rec[5] = strconv.Itoa(*e.HoldingDays)
		}
		if e.LogReturn != nil {
			rec[6] = formatFloat(*e.LogReturn)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write ledger trade %d: %w", e.TradeID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
