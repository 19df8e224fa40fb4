/*
Package sqlite provides the SQLite-backed grant store.

PURPOSE:
  Durable grant.Store for single-node deployments of the ledger
  daemon. The same SQL shape ports to PostgreSQL with only dialect
  changes.

APPEND-ONLY ENFORCEMENT:
  The grants table is never UPDATEd or DELETEd. Idempotency rides on
  the transaction_id primary key: a duplicate apply is an
  INSERT OR IGNORE that affects zero rows.

BALANCE:
  Derived - SUM(credits) over the device's grants, computed inside
  the same transaction as the insert so Apply returns a balance
  consistent with its own write.

WAL MODE:
  Opened with WAL for better concurrency: readers don't block, one
  writer at a time, better crash recovery.

USAGE:
  st, err := sqlite.New("./data/ledger.db")   // ":memory:" for tests
  defer st.Close()

SEE ALSO:
  - grant/grant.go: the Store interface and invariants
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/waveform/credit-engine/grant"
)

// Store implements grant.Store on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) the database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent applies.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	-- Grants (append-only; transaction_id is the idempotency key)
	CREATE TABLE IF NOT EXISTS grants (
		transaction_id TEXT PRIMARY KEY,
		grant_id       TEXT NOT NULL,
		device_id      TEXT NOT NULL,
		product_id     TEXT NOT NULL,
		credits        INTEGER NOT NULL CHECK (credits > 0),
		protocol       TEXT NOT NULL,
		created_at     TEXT NOT NULL
	);

	-- Balance computation (hot path)
	CREATE INDEX IF NOT EXISTS idx_grants_device ON grants(device_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Apply inserts the grant unless its transaction id exists, then returns
// the device balance as of this transaction.
func (s *Store) Apply(ctx context.Context, g grant.Grant) (bool, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO grants
			(transaction_id, grant_id, device_id, product_id, credits, protocol, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		g.TransactionID, g.ID, g.DeviceID, g.ProductID, g.Credits, g.Protocol,
		g.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return false, 0, fmt.Errorf("insert grant: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("rows affected: %w", err)
	}

	var balance int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0) FROM grants WHERE device_id = ?`,
		g.DeviceID,
	).Scan(&balance)
	if err != nil {
		return false, 0, fmt.Errorf("sum balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("commit: %w", err)
	}
	return rows > 0, balance, nil
}

// Balance returns SUM(credits) for the device; zero for unknown devices.
func (s *Store) Balance(ctx context.Context, deviceID string) (int64, error) {
	var balance int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0) FROM grants WHERE device_id = ?`,
		deviceID,
	).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("sum balance: %w", err)
	}
	return balance, nil
}

// Compile-time interface check.
var _ grant.Store = (*Store)(nil)
