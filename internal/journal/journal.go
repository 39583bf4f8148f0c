// Package journal is a local SQLite log of user-initiated actions and their
// outcome. It never holds store state.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"time"

	jsoniter "github.com/json-iterator/go"
	_ "modernc.org/sqlite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DB wraps the journal database.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases shared across calls
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  kind TEXT NOT NULL,
	  target TEXT,
	  ok INTEGER NOT NULL,
	  message TEXT,
	  meta TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  name TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// Action is one user-initiated call and how it ended.
type Action struct {
	ID      int64
	At      time.Time
	Kind    string
	Target  string
	OK      bool
	Message string
	Meta    map[string]any
}

// PutAction appends a. A zero At is stamped with the current time.
func (d *DB) PutAction(ctx context.Context, a Action) error {
	if a.At.IsZero() {
		a.At = time.Now().UTC()
	}
	var meta *string
	if len(a.Meta) > 0 {
		b, err := json.Marshal(a.Meta)
		if err != nil {
			return err
		}
		s := string(b)
		meta = &s
	}
	ok := 0
	if a.OK {
		ok = 1
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, kind, target, ok, message, meta) VALUES(?,?,?,?,?,?)`,
		a.At.UnixMilli(), a.Kind, a.Target, ok, a.Message, meta)
	return err
}

// LoadActions returns the newest actions first, optionally filtered by kind.
// limit <= 0 means 50.
func (d *DB) LoadActions(ctx context.Context, kind string, limit int) ([]Action, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows *sql.Rows
	var err error
	if kind == "" {
		rows, err = d.sql.QueryContext(ctx, `SELECT id, ts, kind, COALESCE(target,''), ok, COALESCE(message,''), meta FROM actions ORDER BY ts DESC, id DESC LIMIT ?`, limit)
	} else {
		rows, err = d.sql.QueryContext(ctx, `SELECT id, ts, kind, COALESCE(target,''), ok, COALESCE(message,''), meta FROM actions WHERE kind=? ORDER BY ts DESC, id DESC LIMIT ?`, kind, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Action
	for rows.Next() {
		var a Action
		var ts int64
		var ok int
		var meta sql.NullString
		if err := rows.Scan(&a.ID, &ts, &a.Kind, &a.Target, &ok, &a.Message, &meta); err != nil {
			return nil, err
		}
		a.At = time.UnixMilli(ts).UTC()
		a.OK = ok == 1
		if meta.Valid && meta.String != "" {
			_ = json.Unmarshal([]byte(meta.String), &a.Meta)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountActionsWithin counts actions of kind in [start, end). Empty kind counts all.
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, kind string) (int, error) {
	q := `SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<?`
	args := []any{start.UnixMilli(), end.UnixMilli()}
	if kind != "" {
		q += ` AND kind=?`
		args = append(args, kind)
	}
	var n int
	err := d.sql.QueryRowContext(ctx, q, args...).Scan(&n)
	return n, err
}

// SaveCursor stores a named pagination cursor, e.g. the timeline end cursor.
func (d *DB) SaveCursor(ctx context.Context, name, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(name, value) VALUES(?, ?) ON CONFLICT(name) DO UPDATE SET value=excluded.value`, name, value)
	return err
}

// LoadCursor returns the cursor or "" when none was saved.
func (d *DB) LoadCursor(ctx context.Context, name string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE name=?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}
