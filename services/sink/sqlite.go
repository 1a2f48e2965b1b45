package sink

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

// SQLiteSink archives every row of every run in a local SQLite database,
// so past crawls can be compared after the CSV has been overwritten.
type SQLiteSink struct {
	db      *sql.DB
	path    string
	runID   string
	vendor  string
	headers []string
	stmt    *sql.Stmt
	seq     int
}

// NewSQLiteSink opens (and migrates) the archive database at dbPath
func NewSQLiteSink(dbPath, runID, vendor string, headers []string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, crawlerrors.NewSink(dbPath, "create database directory", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, crawlerrors.NewSink(dbPath, "open database", err)
	}

	s := &SQLiteSink{db: db, path: dbPath, runID: runID, vendor: vendor, headers: headers}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, crawlerrors.NewSink(dbPath, "migrate", err)
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS dealers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		vendor TEXT NOT NULL,
		seq INTEGER NOT NULL,
		record TEXT NOT NULL,
		scraped_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_dealers_run ON dealers(run_id);
	CREATE INDEX IF NOT EXISTS idx_dealers_vendor ON dealers(vendor, scraped_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Open prepares the insert statement. Archive rows are always appended.
func (s *SQLiteSink) Open(resume bool) error {
	stmt, err := s.db.Prepare(`INSERT INTO dealers (run_id, vendor, seq, record, scraped_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return crawlerrors.NewSink(s.path, "prepare insert", err)
	}
	s.stmt = stmt

	// a resumed run continues its sequence
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dealers WHERE run_id = ?`, s.runID).Scan(&s.seq); err != nil {
		return crawlerrors.NewSink(s.path, "count rows", err)
	}
	return nil
}

// Write inserts one row as a JSON object keyed by header
func (s *SQLiteSink) Write(row []string) error {
	if s.stmt == nil {
		return crawlerrors.NewSink(s.path, "sink not open", nil)
	}

	record, err := json.Marshal(rowMap(s.headers, row))
	if err != nil {
		return crawlerrors.NewSink(s.path, "encode record", err)
	}

	if _, err := s.stmt.Exec(s.runID, s.vendor, s.seq+1, string(record), time.Now().UTC()); err != nil {
		return crawlerrors.NewSink(s.path, "insert row", err)
	}
	s.seq++
	return nil
}

// Flush is a no-op: every insert is committed on its own
func (s *SQLiteSink) Flush() error {
	return nil
}

// Pending is always zero
func (s *SQLiteSink) Pending() int {
	return 0
}

// Close releases the statement and the database
func (s *SQLiteSink) Close() error {
	if s.stmt != nil {
		s.stmt.Close()
		s.stmt = nil
	}
	return s.db.Close()
}

// Count returns the number of archived rows of a run
func (s *SQLiteSink) Count(runID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM dealers WHERE run_id = ?`, runID).Scan(&n)
	return n, err
}
