package broker

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/openatc/cpdlcd/pkg/cpdlcmsg"
)

// msgLog is the broker's persisted record of messages it routes, defers,
// rejects over quota, or fails to send (duplicate-MIN, RPC-router and
// deferred-TTL drops, and deferred deliveries, are not recorded), the ambient per-message audit trail SPEC_FULL.md §2's domain-stack
// table assigns to mattn/go-sqlite3. The path is the msglog config key;
// SIGHUP (spec.md §6.6) closes and reopens the underlying file the same way
// a traditional log-rotation signal handler would.
type msgLog struct {
	mu   sync.Mutex
	path string
	db   *sql.DB
}

const msgLogSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts INTEGER NOT NULL,
	from_callsign TEXT NOT NULL,
	to_callsign TEXT NOT NULL,
	is_atc INTEGER NOT NULL,
	min INTEGER,
	mrn INTEGER,
	outcome TEXT NOT NULL,
	bytes INTEGER NOT NULL
);
`

func openMsgLog(path string) (*msgLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("msglog: open %s: %w", path, err)
	}
	if _, err := db.Exec(msgLogSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("msglog: create schema: %w", err)
	}
	return &msgLog{path: path, db: db}, nil
}

// Reopen closes and reopens the sqlite connection, the broker's response to
// SIGHUP (spec.md §6.6).
func (l *msgLog) Reopen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		l.db.Close()
	}
	db, err := sql.Open("sqlite3", l.path)
	if err != nil {
		return fmt.Errorf("msglog: reopen %s: %w", l.path, err)
	}
	l.db = db
	return nil
}

func (l *msgLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// record inserts one row describing a message's disposition: "routed",
// "deferred", "dropped-quota", "error-<kind>".
func (l *msgLog) record(msg *cpdlcmsg.Message, from, to string, isATC bool, outcome string, size int) {
	l.mu.Lock()
	db := l.db
	l.mu.Unlock()
	if db == nil {
		return
	}
	var min, mrn sql.NullInt64
	if msg.HasMIN() {
		min = sql.NullInt64{Int64: int64(msg.MIN), Valid: true}
	}
	if msg.HasMRN() {
		mrn = sql.NullInt64{Int64: int64(msg.MRN), Valid: true}
	}
	_, _ = db.Exec(
		`INSERT INTO messages (ts, from_callsign, to_callsign, is_atc, min, mrn, outcome, bytes) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), from, to, boolToInt(isATC), min, mrn, outcome, size,
	)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
