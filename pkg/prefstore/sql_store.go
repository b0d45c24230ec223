package prefstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/goliatone/go-campaign-dashboard/components/dashboard"
)

const preferencesTable = "preferences"

const createPreferencesTable = `CREATE TABLE IF NOT EXISTS preferences (
	namespace  TEXT NOT NULL,
	pref_key   TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (namespace, pref_key)
)`

var _ dashboard.KeyValueStore = (*SQLStore)(nil)

// SQLStore persists preference blobs in a sqlite table.
type SQLStore struct {
	db    *sql.DB
	owned bool
	now   func() time.Time
	qb    sq.StatementBuilderType
}

// OpenSQLStore opens (or creates) the sqlite database at path.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("prefstore: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	store, err := NewSQLStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// NewSQLStore uses db and creates the preferences table when missing.
func NewSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	if db == nil {
		return nil, errors.New("prefstore: database is required")
	}
	if _, err := db.ExecContext(ctx, createPreferencesTable); err != nil {
		return nil, fmt.Errorf("prefstore: migrate: %w", err)
	}
	return &SQLStore{
		db:  db,
		now: time.Now,
		qb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}, nil
}

func (s *SQLStore) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	query, args, err := s.qb.Select("value").
		From(preferencesTable).
		Where(sq.Eq{"namespace": namespace, "pref_key": key}).
		ToSql()
	if err != nil {
		return nil, false, err
	}
	var value []byte
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("prefstore: get %s/%s: %w", namespace, key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, namespace, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	query, args, err := s.qb.Insert(preferencesTable).
		Columns("namespace", "pref_key", "value", "updated_at").
		Values(namespace, key, value, s.now().UTC()).
		Suffix("ON CONFLICT (namespace, pref_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prefstore: set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, namespace, key string) error {
	query, args, err := s.qb.Delete(preferencesTable).
		Where(sq.Eq{"namespace": namespace, "pref_key": key}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("prefstore: delete %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLStore) Keys(ctx context.Context, namespace string) ([]string, error) {
	query, args, err := s.qb.Select("pref_key").
		From(preferencesTable).
		Where(sq.Eq{"namespace": namespace}).
		OrderBy("pref_key").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.strings(ctx, query, args)
}

// Namespaces lists every namespace holding at least one key.
func (s *SQLStore) Namespaces(ctx context.Context) ([]string, error) {
	query, args, err := s.qb.Select("DISTINCT namespace").
		From(preferencesTable).
		OrderBy("namespace").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.strings(ctx, query, args)
}

// Close closes the database when the store opened it.
func (s *SQLStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) strings(ctx context.Context, query string, args []any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("prefstore: query: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("prefstore: scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
