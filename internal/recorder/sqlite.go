package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists monitoring events to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so external readers don't block the polling writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_checks (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			ticker         TEXT,
			isin           TEXT,
			price          REAL,
			previous_price REAL,
			change_pct     REAL,
			appended       INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_checks_ts ON price_checks(timestamp)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp  INTEGER NOT NULL,
			ticker     TEXT,
			isin       TEXT,
			price      REAL,
			change_pct REAL,
			with_chart INTEGER,
			delivered  INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_ts ON notifications(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCheck(evt *CheckEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO price_checks
		(timestamp, ticker, isin, price, previous_price, change_pct, appended)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Ticker, evt.ISIN, evt.Price,
		evt.PreviousPrice, evt.ChangePercent, evt.Appended,
	)
	return err
}

func (r *SQLiteRecorder) RecordNotification(evt *NotificationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO notifications
		(timestamp, ticker, isin, price, change_pct, with_chart, delivered)
		VALUES (?,?,?,?,?,?,?)`,
		time.Now().Unix(), evt.Ticker, evt.ISIN, evt.Price,
		evt.ChangePercent, evt.WithChart, evt.Delivered,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
