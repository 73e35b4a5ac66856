package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"tradewind/internal/domain"
)

// Compile-time interface check.
var _ LedgerStore = (*SQLiteLedgerStore)(nil)

// SQLiteLedgerStore implements LedgerStore backed by a SQLite database.
// Monetary values are stored as decimal strings to keep them exact.
type SQLiteLedgerStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS orders (
	ticker           TEXT NOT NULL,
	status           TEXT NOT NULL,
	order_date       TEXT NOT NULL,
	requested_amount TEXT NOT NULL,
	filled_quantity  TEXT,
	fill_price       TEXT,
	stop_loss_price  TEXT
);
CREATE TABLE IF NOT EXISTS bank (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	balance TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transactions (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	date       TEXT NOT NULL,
	ticker     TEXT NOT NULL,
	action     TEXT NOT NULL,
	net_amount TEXT NOT NULL,
	balance    TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	date            TEXT PRIMARY KEY,
	bank_open       TEXT NOT NULL,
	bank_close      TEXT NOT NULL,
	portfolio_open  TEXT NOT NULL,
	portfolio_close TEXT NOT NULL,
	held_open       TEXT NOT NULL,
	held_close      TEXT NOT NULL,
	sold            TEXT NOT NULL
);
`

// NewSQLiteLedgerStore opens (or creates) a SQLite database at dbPath,
// runs migrations, and returns a ready-to-use store.
func NewSQLiteLedgerStore(dbPath string) (*SQLiteLedgerStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &SQLiteLedgerStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteLedgerStore) Close() error {
	return s.db.Close()
}

// LoadOrders returns all order ledger rows.
func (s *SQLiteLedgerStore) LoadOrders(ctx context.Context) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ticker, status, order_date, requested_amount,
		       filled_quantity, fill_price, stop_loss_price
		FROM orders ORDER BY order_date, ticker`)
	if err != nil {
		return nil, fmt.Errorf("querying orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var (
			o                domain.Order
			status, dateStr  string
			amountStr        string
			qty, price, stop sql.NullString
		)
		if err := rows.Scan(&o.Ticker, &status, &dateStr, &amountStr, &qty, &price, &stop); err != nil {
			return nil, fmt.Errorf("scanning order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		if o.OrderDate, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parsing order date: %w", err)
		}
		if o.RequestedAmount, err = decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("parsing requested amount: %w", err)
		}
		if qty.Valid && price.Valid {
			q, err1 := decimal.NewFromString(qty.String)
			p, err2 := decimal.NewFromString(price.String)
			if err1 != nil || err2 != nil {
				return nil, errors.New("parsing fill fields")
			}
			o.Fill = &domain.Fill{Quantity: q, Price: p}
		}
		if stop.Valid {
			if o.StopLoss, err = decimal.NewFromString(stop.String); err != nil {
				return nil, fmt.Errorf("parsing stop loss: %w", err)
			}
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// SaveOrders replaces the persisted order ledger in one transaction.
func (s *SQLiteLedgerStore) SaveOrders(ctx context.Context, orders []domain.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM orders`); err != nil {
		return fmt.Errorf("clearing orders: %w", err)
	}
	for _, o := range orders {
		var qty, price, stop any
		if o.Fill != nil {
			qty = o.Fill.Quantity.String()
			price = o.Fill.Price.String()
		}
		if o.Status != domain.StatusPendingBuy {
			stop = o.StopLoss.String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (ticker, status, order_date, requested_amount,
			                    filled_quantity, fill_price, stop_loss_price)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.Ticker, string(o.Status), o.OrderDate.Format(dateLayout),
			o.RequestedAmount.String(), qty, price, stop)
		if err != nil {
			return fmt.Errorf("inserting order %s: %w", o.Ticker, err)
		}
	}
	return tx.Commit()
}

// LoadBalance returns the persisted balance; ok is false when no balance
// row exists yet.
func (s *SQLiteLedgerStore) LoadBalance(ctx context.Context) (decimal.Decimal, bool, error) {
	var balanceStr string
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM bank WHERE id = 1`).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("querying balance: %w", err)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parsing balance: %w", err)
	}
	return balance, true, nil
}

// SaveBalance upserts the single balance row.
func (s *SQLiteLedgerStore) SaveBalance(ctx context.Context, balance decimal.Decimal) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bank (id, balance) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET balance = excluded.balance`,
		balance.String())
	return err
}

// AppendTransactions appends postings to the transaction log.
func (s *SQLiteLedgerStore) AppendTransactions(ctx context.Context, txs []domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	dbtx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbtx.Rollback()

	for _, t := range txs {
		_, err := dbtx.ExecContext(ctx, `
			INSERT INTO transactions (date, ticker, action, net_amount, balance)
			VALUES (?, ?, ?, ?, ?)`,
			t.Date.Format(dateLayout), t.Ticker, string(t.Action),
			t.Net.String(), t.Balance.String())
		if err != nil {
			return fmt.Errorf("inserting transaction: %w", err)
		}
	}
	return dbtx.Commit()
}

// LoadTransactions returns the full transaction log in insertion order.
func (s *SQLiteLedgerStore) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, ticker, action, net_amount, balance
		FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		var (
			t                       domain.Transaction
			dateStr, action, netStr string
			balanceStr              string
		)
		if err := rows.Scan(&dateStr, &t.Ticker, &action, &netStr, &balanceStr); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		if t.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parsing transaction date: %w", err)
		}
		t.Action = domain.TxAction(action)
		if t.Net, err = decimal.NewFromString(netStr); err != nil {
			return nil, fmt.Errorf("parsing net amount: %w", err)
		}
		if t.Balance, err = decimal.NewFromString(balanceStr); err != nil {
			return nil, fmt.Errorf("parsing balance: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

// AppendResult appends one per-day snapshot.
func (s *SQLiteLedgerStore) AppendResult(ctx context.Context, r domain.TickResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO results (date, bank_open, bank_close, portfolio_open,
		                     portfolio_close, held_open, held_close, sold)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Date.Format(dateLayout),
		r.BankOpen.String(), r.BankClose.String(),
		r.PortfolioOpen.String(), r.PortfolioClose.String(),
		strings.Join(r.HeldOpen, listSep),
		strings.Join(r.HeldClose, listSep),
		strings.Join(r.Sold, listSep))
	return err
}

// LoadResults returns all per-day snapshots, ascending by date.
func (s *SQLiteLedgerStore) LoadResults(ctx context.Context) ([]domain.TickResult, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, bank_open, bank_close, portfolio_open, portfolio_close,
		       held_open, held_close, sold
		FROM results ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []domain.TickResult
	for rows.Next() {
		var (
			r                            domain.TickResult
			dateStr                      string
			bo, bc, po, pc, ho, hc, sold string
		)
		if err := rows.Scan(&dateStr, &bo, &bc, &po, &pc, &ho, &hc, &sold); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if r.Date, err = time.Parse(dateLayout, dateStr); err != nil {
			return nil, fmt.Errorf("parsing result date: %w", err)
		}
		var errs [4]error
		r.BankOpen, errs[0] = decimal.NewFromString(bo)
		r.BankClose, errs[1] = decimal.NewFromString(bc)
		r.PortfolioOpen, errs[2] = decimal.NewFromString(po)
		r.PortfolioClose, errs[3] = decimal.NewFromString(pc)
		for _, e := range errs {
			if e != nil {
				return nil, fmt.Errorf("parsing result amounts for %s", dateStr)
			}
		}
		r.HeldOpen = splitList(ho)
		r.HeldClose = splitList(hc)
		r.Sold = splitList(sold)
		results = append(results, r)
	}
	return results, rows.Err()
}
