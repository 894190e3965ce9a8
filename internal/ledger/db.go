package ledger

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps the SQLite ledger database.
type DB struct {
	conn *sql.DB
}

// OpenDB opens (creating if necessary) the ledger database at dbPath and
// applies the embedded schema.
func OpenDB(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL lets the CLI read while the server appends.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("enabling WAL mode: %v; closing database: %w", err, closeErr)
		}
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := conn.Exec(schemaSQL); err != nil {
		if closeErr := conn.Close(); closeErr != nil {
			return nil, fmt.Errorf("executing schema: %v; closing database: %w", err, closeErr)
		}
		return nil, fmt.Errorf("executing schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// InsertRun creates a new run record.
func (db *DB) InsertRun(id, publicKey string, startedAt time.Time) error {
	query := `INSERT INTO runs (id, started_at, public_key) VALUES (?, ?, ?)`
	if _, err := db.conn.Exec(query, id, startedAt.UTC().Format(time.RFC3339Nano), publicKey); err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// LatestRunID returns the id of the most recently started run, or "" when
// the ledger is empty.
func (db *DB) LatestRunID() (string, error) {
	var runID string
	err := db.conn.QueryRow("SELECT id FROM runs ORDER BY started_at DESC LIMIT 1").Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying run ID: %w", err)
	}
	return runID, nil
}

// RunPublicKey returns the hex public key stored with a run.
func (db *DB) RunPublicKey(runID string) (string, error) {
	var key string
	err := db.conn.QueryRow("SELECT public_key FROM runs WHERE id = ?", runID).Scan(&key)
	if err != nil {
		return "", fmt.Errorf("querying run public key: %w", err)
	}
	return key, nil
}

// InsertEvent appends one event to the ledger.
func (db *DB) InsertEvent(e *Event) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("marshaling params: %w", err)
	}
	query := `
		INSERT INTO events (
			id, run_id, seq_index, timestamp, event_type, method,
			request_id, params, outcome, prev_hash, current_hash, signature
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = db.conn.Exec(query,
		e.ID, e.RunID, e.SeqIndex, e.Timestamp.UTC().Format(time.RFC3339Nano),
		e.EventType, e.Method, e.RequestID, string(params), e.Outcome,
		e.PrevHash, e.CurrentHash, e.Signature,
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// EventsForRun retrieves all events for a run, ordered by sequence.
func (db *DB) EventsForRun(runID string) ([]Event, error) {
	query := `
		SELECT id, run_id, seq_index, timestamp, event_type, method,
		       request_id, params, outcome, prev_hash, current_hash, signature
		FROM events
		WHERE run_id = ?
		ORDER BY seq_index ASC
	`
	rows, err := db.conn.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var timestamp, params string
		if err := rows.Scan(
			&e.ID, &e.RunID, &e.SeqIndex, &timestamp, &e.EventType, &e.Method,
			&e.RequestID, &params, &e.Outcome, &e.PrevHash, &e.CurrentHash, &e.Signature,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp: %w", err)
		}
		if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
			return nil, fmt.Errorf("unmarshaling event params: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}
	return events, nil
}

// RecentEvents retrieves the newest limit events for a run, newest first.
func (db *DB) RecentEvents(runID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}
	events, err := db.EventsForRun(runID)
	if err != nil {
		return nil, err
	}
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// CountEvents returns the number of events recorded for a run.
func (db *DB) CountEvents(runID string) (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM events WHERE run_id = ?", runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}
