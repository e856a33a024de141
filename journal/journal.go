// Package journal records every run of a program tree in a SQL database.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	// SQL drivers registered with database/sql
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Journal stores run entries.
type Journal struct {
	mu     sync.RWMutex
	db     *sql.DB
	driver string
}

// Entry is one recorded run. Matrikelnummer is zero when the application
// was rejected before one was assigned.
type Entry struct {
	ID             int64
	Program        string
	Fingerprint    string
	Matrikelnummer uint32
	Status         int64
	Error          string
	Started        time.Time
	Duration       time.Duration
}

// Failed reports whether the run ended with a runtime error or rejection.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Open connects to the journal database and creates its table.
// driver is "sqlite", "postgres" or "mysql".
func Open(driver, dsn string) (*Journal, error) {
	source := dsn
	switch driver {
	case "sqlite":
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
				return nil, fmt.Errorf("creating journal directory: %w", err)
			}
			source = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unknown journal driver %q", driver)
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to journal database: %w", err)
	}

	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	j := &Journal{db: db, driver: driver}
	for _, stmt := range schema(driver) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating journal schema: %w", err)
		}
	}
	return j, nil
}

// schema returns the statements creating the runs table, one per Exec.
func schema(driver string) []string {
	id := "INTEGER PRIMARY KEY AUTOINCREMENT"
	text := "TEXT"
	switch driver {
	case "postgres":
		id = "BIGSERIAL PRIMARY KEY"
	case "mysql":
		id = "BIGINT AUTO_INCREMENT PRIMARY KEY"
		text = "LONGTEXT"
	}

	stmts := []string{`CREATE TABLE IF NOT EXISTS runs (
			id ` + id + `,
			program ` + text + ` NOT NULL,
			fingerprint VARCHAR(64) NOT NULL,
			matrikelnummer BIGINT NOT NULL,
			status BIGINT NOT NULL,
			error ` + text + ` NOT NULL,
			started_ms BIGINT NOT NULL,
			duration_ms BIGINT NOT NULL
		)`}
	if driver != "mysql" {
		stmts = append(stmts, `CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_ms)`)
	}
	return stmts
}

// rebind rewrites "?" placeholders into the driver's syntax.
func rebind(driver, query string) string {
	if driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Record writes an entry.
func (j *Journal) Record(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(rebind(j.driver, `
		INSERT INTO runs (program, fingerprint, matrikelnummer, status, error, started_ms, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`), e.Program, e.Fingerprint, int64(e.Matrikelnummer), e.Status, e.Error,
		e.Started.UnixMilli(), e.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := j.db.Query(rebind(j.driver, `
		SELECT id, program, fingerprint, matrikelnummer, status, error, started_ms, duration_ms
		FROM runs
		ORDER BY started_ms DESC, id DESC
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var matrikel, started, duration int64
		if err := rows.Scan(&e.ID, &e.Program, &e.Fingerprint, &matrikel, &e.Status, &e.Error, &started, &duration); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		e.Matrikelnummer = uint32(matrikel)
		e.Started = time.UnixMilli(started)
		e.Duration = time.Duration(duration) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of recorded runs.
func (j *Journal) Count() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var count int
	err := j.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

// Clear removes all entries.
func (j *Journal) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec("DELETE FROM runs")
	return err
}

// Close closes the database connection.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.db.Close()
}

// Driver returns the name of the SQL driver in use.
func (j *Journal) Driver() string {
	return j.driver
}
