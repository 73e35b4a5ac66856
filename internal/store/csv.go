package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tradewind/internal/domain"
)

// Compile-time interface check.
var _ LedgerStore = (*CSVLedgerStore)(nil)

const dateLayout = "2006-01-02"

// listSep joins ticker lists inside a single CSV field.
const listSep = "|"

// CSVLedgerStore implements LedgerStore with plain delimited-text files
// in a single directory:
//
//	orders.csv        — order ledger snapshot (rewritten every save)
//	bank.csv          — single scalar balance
//	transactions.csv  — append-only bank postings
//	results.csv       — append-only per-day snapshots
type CSVLedgerStore struct {
	Dir string
	log *slog.Logger
}

// NewCSVLedgerStore creates a CSVLedgerStore rooted at dir, creating the
// directory if needed.
func NewCSVLedgerStore(dir string) (*CSVLedgerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}
	return &CSVLedgerStore{
		Dir: dir,
		log: slog.Default().With("store", "csv"),
	}, nil
}

func (s *CSVLedgerStore) ordersPath() string  { return filepath.Join(s.Dir, "orders.csv") }
func (s *CSVLedgerStore) bankPath() string    { return filepath.Join(s.Dir, "bank.csv") }
func (s *CSVLedgerStore) txPath() string      { return filepath.Join(s.Dir, "transactions.csv") }
func (s *CSVLedgerStore) resultsPath() string { return filepath.Join(s.Dir, "results.csv") }

// ---------------------------------------------------------------------------
// Order ledger
// ---------------------------------------------------------------------------

var ordersHeader = []string{
	"date", "ticker", "status", "requested_amount",
	"filled_quantity", "fill_price", "stop_loss_price",
}

// LoadOrders reads the persisted order ledger. A missing file yields an
// empty ledger; a corrupt file is logged and also yields an empty ledger,
// matching first-run semantics.
func (s *CSVLedgerStore) LoadOrders(_ context.Context) ([]domain.Order, error) {
	rows, err := readCSV(s.ordersPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.log.Warn("order ledger unreadable, starting empty", "err", err)
		return nil, nil
	}

	orders := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		o, err := parseOrderRow(row)
		if err != nil {
			s.log.Warn("order ledger corrupt, starting empty", "err", err)
			return nil, nil
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// SaveOrders rewrites the order ledger snapshot.
func (s *CSVLedgerStore) SaveOrders(_ context.Context, orders []domain.Order) error {
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		qty, price := "", ""
		if o.Fill != nil {
			qty = o.Fill.Quantity.String()
			price = o.Fill.Price.String()
		}
		stop := ""
		if o.Status != domain.StatusPendingBuy {
			stop = o.StopLoss.String()
		}
		rows = append(rows, []string{
			o.OrderDate.Format(dateLayout),
			o.Ticker,
			string(o.Status),
			o.RequestedAmount.String(),
			qty,
			price,
			stop,
		})
	}
	return writeCSV(s.ordersPath(), ordersHeader, rows)
}

func parseOrderRow(row []string) (domain.Order, error) {
	if len(row) != len(ordersHeader) {
		return domain.Order{}, fmt.Errorf("order row has %d fields, want %d", len(row), len(ordersHeader))
	}
	date, err := time.Parse(dateLayout, row[0])
	if err != nil {
		return domain.Order{}, fmt.Errorf("parsing order date: %w", err)
	}
	amount, err := decimal.NewFromString(row[3])
	if err != nil {
		return domain.Order{}, fmt.Errorf("parsing requested amount: %w", err)
	}

	o := domain.Order{
		Ticker:          row[1],
		Status:          domain.OrderStatus(row[2]),
		OrderDate:       date,
		RequestedAmount: amount,
	}
	switch o.Status {
	case domain.StatusPendingBuy, domain.StatusOwned, domain.StatusPendingSell:
	default:
		return domain.Order{}, fmt.Errorf("unknown order status %q", row[2])
	}

	if row[4] != "" || row[5] != "" {
		qty, err := decimal.NewFromString(row[4])
		if err != nil {
			return domain.Order{}, fmt.Errorf("parsing filled quantity: %w", err)
		}
		price, err := decimal.NewFromString(row[5])
		if err != nil {
			return domain.Order{}, fmt.Errorf("parsing fill price: %w", err)
		}
		o.Fill = &domain.Fill{Quantity: qty, Price: price}
	}
	if row[6] != "" {
		stop, err := decimal.NewFromString(row[6])
		if err != nil {
			return domain.Order{}, fmt.Errorf("parsing stop loss: %w", err)
		}
		o.StopLoss = stop
	}
	return o, nil
}

// ---------------------------------------------------------------------------
// Bank balance
// ---------------------------------------------------------------------------

// LoadBalance reads the scalar balance file. ok is false when the file
// does not exist or cannot be parsed (first-run bootstrap).
func (s *CSVLedgerStore) LoadBalance(_ context.Context) (decimal.Decimal, bool, error) {
	data, err := os.ReadFile(s.bankPath())
	if err != nil {
		if os.IsNotExist(err) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("reading balance: %w", err)
	}
	balance, err := decimal.NewFromString(strings.TrimSpace(string(data)))
	if err != nil {
		s.log.Warn("balance file corrupt, bootstrapping", "err", err)
		return decimal.Zero, false, nil
	}
	return balance, true, nil
}

// SaveBalance persists the scalar balance file.
func (s *CSVLedgerStore) SaveBalance(_ context.Context, balance decimal.Decimal) error {
	return os.WriteFile(s.bankPath(), []byte(balance.String()+"\n"), 0o644)
}

// ---------------------------------------------------------------------------
// Transaction log
// ---------------------------------------------------------------------------

var txHeader = []string{"date", "ticker", "action", "net_amount", "balance"}

// AppendTransactions appends postings to the transaction log.
func (s *CSVLedgerStore) AppendTransactions(_ context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, []string{
			tx.Date.Format(dateLayout),
			tx.Ticker,
			string(tx.Action),
			tx.Net.String(),
			tx.Balance.String(),
		})
	}
	return appendCSV(s.txPath(), txHeader, rows)
}

// LoadTransactions returns the full transaction log, empty when absent.
func (s *CSVLedgerStore) LoadTransactions(_ context.Context) ([]domain.Transaction, error) {
	rows, err := readCSV(s.txPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		s.log.Warn("transaction log unreadable, starting empty", "err", err)
		return nil, nil
	}

	txs := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(txHeader) {
			s.log.Warn("transaction log corrupt, starting empty")
			return nil, nil
		}
		date, err1 := time.Parse(dateLayout, row[0])
		net, err2 := decimal.NewFromString(row[3])
		balance, err3 := decimal.NewFromString(row[4])
		if err1 != nil || err2 != nil || err3 != nil {
			s.log.Warn("transaction log corrupt, starting empty")
			return nil, nil
		}
		txs = append(txs, domain.Transaction{
			Date:    date,
			Ticker:  row[1],
			Action:  domain.TxAction(row[2]),
			Net:     net,
			Balance: balance,
		})
	}
	return txs, nil
}

// ---------------------------------------------------------------------------
// Results
// ---------------------------------------------------------------------------

var resultsHeader = []string{
	"date", "bank_open", "bank_close", "portfolio_open", "portfolio_close",
	"held_open", "held_close", "sold",
}

// AppendResult appends one per-day snapshot to the results file.
func (s *CSVLedgerStore) AppendResult(_ context.Context, r domain.TickResult) error {
	row := []string{
		r.Date.Format(dateLayout),
		r.BankOpen.String(),
		r.BankClose.String(),
		r.PortfolioOpen.String(),
		r.PortfolioClose.String(),
		strings.Join(r.HeldOpen, listSep),
		strings.Join(r.HeldClose, listSep),
		strings.Join(r.Sold, listSep),
	}
	return appendCSV(s.resultsPath(), resultsHeader, [][]string{row})
}

// LoadResults returns all per-day snapshots, empty when absent.
func (s *CSVLedgerStore) LoadResults(_ context.Context) ([]domain.TickResult, error) {
	rows, err := readCSV(s.resultsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading results: %w", err)
	}

	results := make([]domain.TickResult, 0, len(rows))
	for _, row := range rows {
		if len(row) != len(resultsHeader) {
			return nil, fmt.Errorf("result row has %d fields, want %d", len(row), len(resultsHeader))
		}
		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			return nil, fmt.Errorf("parsing result date: %w", err)
		}
		bankOpen, err1 := decimal.NewFromString(row[1])
		bankClose, err2 := decimal.NewFromString(row[2])
		pfOpen, err3 := decimal.NewFromString(row[3])
		pfClose, err4 := decimal.NewFromString(row[4])
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, fmt.Errorf("parsing result amounts for %s", row[0])
		}
		results = append(results, domain.TickResult{
			Date:           date,
			BankOpen:       bankOpen,
			BankClose:      bankClose,
			PortfolioOpen:  pfOpen,
			PortfolioClose: pfClose,
			HeldOpen:       splitList(row[5]),
			HeldClose:      splitList(row[6]),
			Sold:           splitList(row[7]),
		})
	}
	return results, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}

// ---------------------------------------------------------------------------
// CSV file helpers
// ---------------------------------------------------------------------------

// readCSV reads all data rows from path, skipping the header row.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) <= 1 {
		return nil, nil
	}
	return records[1:], nil
}

// writeCSV rewrites path with a header row and the given data rows.
func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// appendCSV appends rows to path, writing the header first if the file is
// new or empty.
func appendCSV(path string, header []string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
