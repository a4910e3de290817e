package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/alejandrodnm/blotter/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	maxRows int  // filas máximas por tabla; 0 = sin límite
	table   bool // false = una línea por run
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(maxRows int, table bool) *Console {
	return &Console{out: os.Stdout, maxRows: maxRows, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, maxRows int, table bool) *Console {
	return &Console{out: w, maxRows: maxRows, table: table}
}

// NotifyRun imprime el run en el modo configurado.
func (c *Console) NotifyRun(_ context.Context, run domain.Run) error {
	if !c.table {
		c.printCompact(run)
		return nil
	}

	fmt.Fprintf(c.out, "\n%s  %s → %s  (%d bars)  alpha1=%g n1=%d alpha2=%g n2=%d\n",
		run.Asset,
		domain.FormatDate(run.FirstDate), domain.FormatDate(run.LastDate), run.Bars,
		run.Params.Alpha1, run.Params.N1, run.Params.Alpha2, run.Params.N2,
	)
	if run.ID != "" {
		fmt.Fprintf(c.out, "run %s\n", run.ID)
	}

	c.printBlotter(run.Orders)
	c.printLedger(run.Ledger)
	c.printSummary(run.Summary)

	if run.NextEntry != nil {
		fmt.Fprintf(c.out, "  next entry: %s %s LMT @ %.2f\n",
			domain.FormatDate(run.NextEntry.Date), run.NextEntry.Action, run.NextEntry.Price)
	}
	return nil
}

// PrintRuns imprime las cabeceras de runs guardados.
func (c *Console) PrintRuns(runs []domain.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "No runs stored")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Created", "Asset", "From", "To", "Trades", "Win%", "Mean rtn")
	for _, r := range runs {
		table.Append(
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Asset,
			domain.FormatDate(r.FirstDate),
			domain.FormatDate(r.LastDate),
			strconv.Itoa(r.Summary.Trades),
			fmt.Sprintf("%.1f", 100*r.Summary.SuccessRate),
			fmt.Sprintf("%.6f", r.Summary.MeanLogReturn),
		)
	}
	table.Render()
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(run domain.Run) {
	s := run.Summary
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] %d orders → trades:%d ok:%d fail:%d none:%d open:%d win:%.1f%% rtn:%.6f",
		run.Asset, len(run.Orders), s.Trades, s.Successes, s.Failures, s.NoEntries, s.Open,
		100*s.SuccessRate, s.MeanLogReturn)
	if run.NextEntry != nil {
		fmt.Fprintf(&sb, " | next %s @ %.2f", domain.FormatDate(run.NextEntry.Date), run.NextEntry.Price)
	}
	fmt.Fprintln(c.out, sb.String())
}

// printBlotter imprime las últimas maxRows órdenes del blotter.
func (c *Console) printBlotter(orders []domain.Order) {
	fmt.Fprintf(c.out, "\nBlotter (%d orders)\n", len(orders))
	if len(orders) == 0 {
		return
	}

	shown, skipped := c.tail(len(orders))
	table := tablewriter.NewWriter(c.out)
	table.Header("Trade", "Date", "Trip", "Action", "Type", "Price", "Status")
	for _, o := range orders[skipped:] {
		table.Append(
			strconv.Itoa(o.TradeID),
			domain.FormatDate(o.Date),
			string(o.Leg),
			string(o.Action),
			string(o.Type),
			fmt.Sprintf("%.2f", o.Price),
			string(o.Status),
		)
	}
	table.Render()
	if skipped > 0 {
		fmt.Fprintf(c.out, "  ... %d earlier orders omitted (showing %d)\n", skipped, shown)
	}
}

// printLedger imprime las últimas maxRows filas del ledger.
func (c *Console) printLedger(entries []domain.LedgerEntry) {
	fmt.Fprintf(c.out, "\nLedger (%d trades)\n", len(entries))
	if len(entries) == 0 {
		return
	}

	shown, skipped := c.tail(len(entries))
	table := tablewriter.NewWriter(c.out)
	table.Header("Trade", "Enter", "Exit", "Outcome", "N", "Entry", "Exit px", "Log rtn")
	for _, e := range entries[skipped:] {
		table.Append(
			strconv.Itoa(e.TradeID),
			domain.FormatDate(e.EntryDate),
			dateCell(e),
			outcomeCell(e),
			intCell(e.HoldingDays),
			floatCell(e.EntryPrice, 2),
			floatCell(e.ExitPrice, 2),
			floatCell(e.LogReturn, 6),
		)
	}
	table.Render()
	if skipped > 0 {
		fmt.Fprintf(c.out, "  ... %d earlier trades omitted (showing %d)\n", skipped, shown)
	}
}

func (c *Console) printSummary(s domain.Summary) {
	fmt.Fprintf(c.out, "\n  trades:%d  success:%d  failure:%d  no entry:%d  open:%d\n",
		s.Trades, s.Successes, s.Failures, s.NoEntries, s.Open)
	if s.Closed() == 0 {
		fmt.Fprintln(c.out, "  no closed trades")
		return
	}
	fmt.Fprintf(c.out, "  win rate: %.1f%% of %d closed | mean daily log return: %.6f over %d trades\n",
		100*s.SuccessRate, s.Closed(), s.MeanLogReturn, s.WithReturn)
}

// tail devuelve cuántas filas se muestran y cuántas se saltan al principio.
func (c *Console) tail(total int) (shown, skipped int) {
	if c.maxRows <= 0 || total <= c.maxRows {
		return total, 0
	}
	return c.maxRows, total - c.maxRows
}

// --- helpers de formato ---

func dateCell(e domain.LedgerEntry) string {
	if e.ExitDate == nil {
		return "-"
	}
	return domain.FormatDate(*e.ExitDate)
}

func outcomeCell(e domain.LedgerEntry) string {
	if e.Outcome == nil {
		return "OPEN"
	}
	return e.Outcome.String()
}

func intCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func floatCell(v *float64, prec int) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', prec, 64)
}
