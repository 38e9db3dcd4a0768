package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUnknownKey is returned when a caller reads or writes a key the store
// does not manage.
var ErrUnknownKey = errors.New("unknown storage key")

// Store is the key-value persistence API used by the tracker and the
// management surface.
type Store interface {
	Get(ctx context.Context, keys ...string) (Values, error)
	Set(ctx context.Context, values Values) error
	Update(ctx context.Context, keys []string, fn UpdateFunc) error
	Versions(ctx context.Context) (map[string]int64, error)
	Subscribe(l Listener) (unsubscribe func())
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	getValue   *sql.Stmt
	putValue   *sql.Stmt
	getVersion *sql.Stmt

	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func knownKey(k string) bool {
	return k == KeyTrackedURLs || k == KeyVideoHistory
}

// OpenDB opens (creating if needed) the SQLite file at path and applies
// migrations. Writes take the database lock at BEGIN so concurrent
// read-modify-write cycles from separate processes serialize.
func OpenDB(path, journalMode string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := NewMigrationRunner(db).WithJournalMode(journalMode).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, listeners: make(map[int]Listener)}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getValue, err = s.db.Prepare(`SELECT value FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	s.putValue, err = s.db.Prepare(`
		INSERT INTO kv (key, value, version, updated_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			version    = kv.version + 1,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.getVersion, err = s.db.Prepare(`SELECT version FROM kv WHERE key = ?`)
	if err != nil {
		return err
	}

	return nil
}

// Get returns the stored values for keys. Keys that have never been written
// are absent from the result.
func (s *SQLiteStore) Get(ctx context.Context, keys ...string) (Values, error) {
	out := make(Values, len(keys))
	for _, k := range keys {
		if !knownKey(k) {
			return nil, fmt.Errorf("get %q: %w", k, ErrUnknownKey)
		}
		var raw string
		err := s.getValue.QueryRowContext(ctx, k).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get %s: %w", k, err)
		}
		out[k] = []byte(raw)
	}
	return out, nil
}

// Set writes every key in values in a single transaction, then notifies
// listeners once per key.
func (s *SQLiteStore) Set(ctx context.Context, values Values) error {
	for k := range values {
		if !knownKey(k) {
			return fmt.Errorf("set %q: %w", k, ErrUnknownKey)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	changes, err := s.write(ctx, tx, values)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(changes)
	return nil
}

// Update runs fn against the current values of keys and writes what it
// returns, all inside one transaction.
func (s *SQLiteStore) Update(ctx context.Context, keys []string, fn UpdateFunc) error {
	for _, k := range keys {
		if !knownKey(k) {
			return fmt.Errorf("update %q: %w", k, ErrUnknownKey)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	current := make(Values, len(keys))
	for _, k := range keys {
		var raw string
		err := tx.StmtContext(ctx, s.getValue).QueryRowContext(ctx, k).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", k, err)
		}
		current[k] = []byte(raw)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}
	if len(next) == 0 {
		return nil
	}
	for k := range next {
		if !knownKey(k) {
			return fmt.Errorf("update %q: %w", k, ErrUnknownKey)
		}
	}

	changes, err := s.write(ctx, tx, next)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	s.notify(changes)
	return nil
}

func (s *SQLiteStore) write(ctx context.Context, tx *sql.Tx, values Values) ([]Change, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	put := tx.StmtContext(ctx, s.putValue)
	ver := tx.StmtContext(ctx, s.getVersion)

	changes := make([]Change, 0, len(values))
	// Fixed key order keeps notifications deterministic.
	for _, k := range []string{KeyTrackedURLs, KeyVideoHistory} {
		raw, ok := values[k]
		if !ok {
			continue
		}
		if _, err := put.ExecContext(ctx, k, string(raw), now); err != nil {
			return nil, fmt.Errorf("write %s: %w", k, err)
		}
		var v int64
		if err := ver.QueryRowContext(ctx, k).Scan(&v); err != nil {
			return nil, fmt.Errorf("read version %s: %w", k, err)
		}
		changes = append(changes, Change{Key: k, Value: raw, Version: v})
	}
	return changes, nil
}

// Versions returns the current write version of every stored key.
func (s *SQLiteStore) Versions(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, version FROM kv")
	if err != nil {
		return nil, fmt.Errorf("query versions: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64, 2)
	for rows.Next() {
		var k string
		var v int64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// Subscribe registers l for change notifications. Listeners run on the
// writer's goroutine after commit and must not block.
func (s *SQLiteStore) Subscribe(l Listener) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *SQLiteStore) notify(changes []Change) {
	s.mu.Lock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, l := range ls {
			l(c)
		}
	}
}

// DB exposes the underlying handle for size reporting.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.getValue, s.putValue, s.getVersion}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
