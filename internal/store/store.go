package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// CollaboratorKind distinguishes how a collaborator is paid. Admin accounts
// live in the same table but are never payable.
type CollaboratorKind string

const (
	KindContractor CollaboratorKind = "contractor"
	KindEmployee   CollaboratorKind = "employee"
	KindAdmin      CollaboratorKind = "admin"
)

// PayableKinds are the kinds an upload may target.
var PayableKinds = []CollaboratorKind{KindContractor, KindEmployee}

// Payable reports whether records may be imported for this kind.
func (k CollaboratorKind) Payable() bool {
	return k == KindContractor || k == KindEmployee
}

// Status is a collaborator's provisioning state.
type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// Period is a (month, year) import scope.
type Period struct {
	Month int
	Year  int
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// Valid reports whether the period is a real calendar month.
func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year >= 2000 && p.Year <= 2100
}

// FirstDay returns the first day of the period.
func (p Period) FirstDay() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// LastDay returns the last day of the period.
func (p Period) LastDay() time.Time {
	return p.FirstDay().AddDate(0, 1, -1)
}

// Store is the SQLite-backed collaborator/binding/record store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the store at dbPath and applies the
// schema.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// migrate creates the necessary tables.
func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS collaborators (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			confirm_token TEXT,
			specialty TEXT NOT NULL DEFAULT '',
			units TEXT NOT NULL DEFAULT '[]',
			default_target REAL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS bindings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			collaborator_id INTEGER NOT NULL REFERENCES collaborators(id),
			contract_kind TEXT NOT NULL,
			shift TEXT NOT NULL,
			specialty TEXT NOT NULL,
			unit TEXT NOT NULL,
			target REAL,
			active INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			UNIQUE(collaborator_id, contract_kind, shift, specialty, unit)
		);

		CREATE TABLE IF NOT EXISTS monthly_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			binding_id INTEGER REFERENCES bindings(id),
			collaborator_id INTEGER NOT NULL REFERENCES collaborators(id),
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			kind TEXT NOT NULL,
			net REAL NOT NULL,
			gross REAL NOT NULL,
			share REAL NOT NULL,
			fixed_amount INTEGER NOT NULL DEFAULT 0,
			absences INTEGER NOT NULL DEFAULT 0,
			target_met INTEGER NOT NULL DEFAULT 0,
			original_net REAL,
			edited_net REAL,
			edited_by TEXT,
			edited_at DATETIME,
			edit_reason TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE(binding_id, month, year)
		);

		CREATE TABLE IF NOT EXISTS backup_snapshots (
			id TEXT PRIMARY KEY,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			kind TEXT NOT NULL,
			record_count INTEGER NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS backup_records (
			snapshot_id TEXT NOT NULL REFERENCES backup_snapshots(id),
			record_id INTEGER NOT NULL,
			binding_id INTEGER,
			collaborator_id INTEGER NOT NULL,
			month INTEGER NOT NULL,
			year INTEGER NOT NULL,
			kind TEXT NOT NULL,
			net REAL NOT NULL,
			gross REAL NOT NULL,
			share REAL NOT NULL,
			fixed_amount INTEGER NOT NULL,
			absences INTEGER NOT NULL,
			target_met INTEGER NOT NULL,
			original_net REAL,
			edited_net REAL,
			edited_by TEXT,
			edited_at DATETIME,
			edit_reason TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_bindings_collaborator ON bindings(collaborator_id);
		CREATE INDEX IF NOT EXISTS idx_records_scope ON monthly_records(year, month, kind);
		CREATE INDEX IF NOT EXISTS idx_records_binding ON monthly_records(binding_id);
		CREATE INDEX IF NOT EXISTS idx_records_collaborator ON monthly_records(collaborator_id);
		CREATE INDEX IF NOT EXISTS idx_backup_records_snapshot ON backup_records(snapshot_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
