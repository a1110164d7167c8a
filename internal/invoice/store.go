package invoice

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver

	"github.com/otrade-bot/server/internal/bot/model"
	logx "github.com/otrade-bot/server/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS invoices (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	invoice_number TEXT NOT NULL UNIQUE,
	pdf_url        TEXT NOT NULL,
	order_data     TEXT NOT NULL,
	total_amount   REAL NOT NULL,
	currency       TEXT NOT NULL,
	status         TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_session ON invoices(session_id);
`

// Store persists invoice records in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the invoice database at the given path.
// Use ":memory:" for tests.
func OpenStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating invoice schema: %w", err)
	}

	logx.Info().Str("path", path).Msg("invoice database opened")
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts an invoice record and fills in its generated id.
func (s *Store) Save(ctx context.Context, inv *model.Invoice) error {
	orderJSON, err := json.Marshal(inv.Order)
	if err != nil {
		return fmt.Errorf("marshal order data: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO invoices (session_id, invoice_number, pdf_url, order_data, total_amount, currency, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.SessionID, inv.Number, inv.Reference, string(orderJSON),
		inv.Total, inv.Currency, inv.Status,
		inv.CreatedAt.UTC().Format(time.RFC3339), inv.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		inv.ID = id
	}
	return nil
}

// BySession returns all invoices for a session, newest first.
func (s *Store) BySession(ctx context.Context, sessionID string) ([]model.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, invoice_number, pdf_url, order_data, total_amount, currency, status, created_at, updated_at
		FROM invoices WHERE session_id = ? ORDER BY created_at DESC, id DESC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []model.Invoice
	for rows.Next() {
		var (
			inv                  model.Invoice
			orderJSON            string
			createdAt, updatedAt string
		)
		if err := rows.Scan(&inv.ID, &inv.SessionID, &inv.Number, &inv.Reference,
			&orderJSON, &inv.Total, &inv.Currency, &inv.Status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		if err := json.Unmarshal([]byte(orderJSON), &inv.Order); err != nil {
			logx.Warn().Err(err).Str("invoice_number", inv.Number).Msg("skipping invoice with unparsable order data")
			continue
		}
		inv.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		inv.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}
