// Package displaydb stores the rotation chosen for each display block.
package displaydb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"voxeldisplay.ai/internal/sim/rotation"
)

type Display struct {
	Pos       [3]int
	Rotation  rotation.State
	UpdatedBy string
	UpdatedAt time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS displays (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			rotation TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			updated_by TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Put stores the rotation for pos and returns the previous one, if any.
func (s *Store) Put(ctx context.Context, pos [3]int, rot rotation.State, by string) (prev rotation.State, hadPrev bool, err error) {
	if !rot.Valid() {
		return 0, false, fmt.Errorf("put %v: %w", pos, rotation.ErrInvalidState)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = tx.Rollback() }()

	prev, hadPrev, err = getRow(ctx, tx, pos)
	if err != nil {
		return 0, false, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO displays(x,y,z,rotation,ordinal,updated_by,updated_at) VALUES(?,?,?,?,?,?,?)
		 ON CONFLICT(x,y,z) DO UPDATE SET rotation=excluded.rotation, ordinal=excluded.ordinal,
		 updated_by=excluded.updated_by, updated_at=excluded.updated_at`,
		pos[0], pos[1], pos[2], rot.Name(), rot.Ordinal(), by, s.now().UTC().UnixMilli())
	if err != nil {
		return 0, false, fmt.Errorf("put %v: %w", pos, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, err
	}
	return prev, hadPrev, nil
}

func (s *Store) Get(ctx context.Context, pos [3]int) (rotation.State, bool, error) {
	return getRow(ctx, s.db, pos)
}

func (s *Store) Delete(ctx context.Context, pos [3]int) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM displays WHERE x=? AND y=? AND z=?`, pos[0], pos[1], pos[2])
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// All returns every display ordered by position.
func (s *Store) All(ctx context.Context) ([]Display, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT x,y,z,rotation,ordinal,updated_by,updated_at FROM displays ORDER BY x,y,z`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Display
	for rows.Next() {
		var (
			d       Display
			name    string
			ordinal int64
			at      int64
		)
		if err := rows.Scan(&d.Pos[0], &d.Pos[1], &d.Pos[2], &name, &ordinal, &d.UpdatedBy, &at); err != nil {
			return nil, err
		}
		if d.Rotation, err = decodeRow(d.Pos, name, ordinal); err != nil {
			return nil, err
		}
		d.UpdatedAt = time.UnixMilli(at).UTC()
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM displays`).Scan(&n)
	return n, err
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getRow(ctx context.Context, q queryer, pos [3]int) (rotation.State, bool, error) {
	var (
		name    string
		ordinal int64
	)
	err := q.QueryRowContext(ctx, `SELECT rotation,ordinal FROM displays WHERE x=? AND y=? AND z=?`, pos[0], pos[1], pos[2]).Scan(&name, &ordinal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	st, err := decodeRow(pos, name, ordinal)
	if err != nil {
		return 0, false, err
	}
	return st, true, nil
}

// ErrCorruptRow means the stored name and ordinal disagree.
var ErrCorruptRow = errors.New("displaydb: corrupt row")

// decodeRow resolves the stored name and checks it against the ordinal
// column.
func decodeRow(pos [3]int, name string, ordinal int64) (rotation.State, error) {
	st, ok := rotation.ByName(name)
	if !ok {
		return 0, fmt.Errorf("%w: %v: unknown rotation %q", ErrCorruptRow, pos, name)
	}
	if int64(st.Ordinal()) != ordinal {
		return 0, fmt.Errorf("%w: %v: rotation %s has ordinal %d, stored %d", ErrCorruptRow, pos, name, st.Ordinal(), ordinal)
	}
	return st, nil
}
