package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"rts-terrain/internal/command"
	"rts-terrain/internal/entity"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// ErrClosed is returned by Spawn after Close.
var ErrClosed = errors.New("ledger: closed")

// Ledger is an entity.Spawner that persists every spawn request. Rows are
// written synchronously, so a successful Spawn is visible to Count and ByChunk.
type Ledger struct {
	db     *sql.DB
	closed atomic.Bool
}

// Record is one persisted spawn.
type Record struct {
	ID        uuid.UUID
	Kind      string
	Chunk     [2]int
	Position  mgl32.Vec3
	Rotation  mgl32.Quat
	Params    command.ParamList
	CreatedAt time.Time
}

// Open opens or creates the ledger at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Ledger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection: an in-memory database is per connection, and writes are
	// serialised anyway.
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
	return &Ledger{db: db}, nil
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
		`CREATE TABLE IF NOT EXISTS features (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			chunk_x INTEGER NOT NULL,
			chunk_y INTEGER NOT NULL,
			pos_x REAL NOT NULL,
			pos_y REAL NOT NULL,
			pos_z REAL NOT NULL,
			rot_x REAL NOT NULL,
			rot_y REAL NOT NULL,
			rot_z REAL NOT NULL,
			rot_w REAL NOT NULL,
			params BLOB NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS features_chunk ON features(chunk_x, chunk_y);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Spawn persists one feature and returns its new ID.
func (l *Ledger) Spawn(d entity.Descriptor, pos mgl32.Vec3, rot mgl32.Quat) (uuid.UUID, error) {
	if l.closed.Load() {
		return uuid.Nil, ErrClosed
	}
	params, err := command.Encode(d.Params)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger: encode params: %w", err)
	}
	id := uuid.New()
	_, err = l.db.Exec(`INSERT INTO features
		(id, kind, chunk_x, chunk_y, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, rot_w, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), d.Kind, d.Chunk[0], d.Chunk[1],
		pos.X(), pos.Y(), pos.Z(),
		rot.V.X(), rot.V.Y(), rot.V.Z(), rot.W,
		params[:], time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("ledger: insert %s: %w", d.Kind, err)
	}
	return id, nil
}

// Count returns the number of recorded features.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM features`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// ByChunk returns the features recorded for chunk (x, y) in insertion order.
func (l *Ledger) ByChunk(ctx context.Context, x, y int) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `SELECT
		id, kind, chunk_x, chunk_y, pos_x, pos_y, pos_z, rot_x, rot_y, rot_z, rot_w, params, created_at
		FROM features WHERE chunk_x = ? AND chunk_y = ? ORDER BY rowid`, x, y)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			id, createdAt  string
			r              Record
			px, py, pz     float64
			rx, ry, rz, rw float64
			params         []byte
		)
		if err := rows.Scan(&id, &r.Kind, &r.Chunk[0], &r.Chunk[1], &px, &py, &pz, &rx, &ry, &rz, &rw, &params, &createdAt); err != nil {
			return nil, err
		}
		if r.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("ledger: row id %q: %w", id, err)
		}
		if r.Params, err = command.DecodeBytes(params); err != nil {
			return nil, fmt.Errorf("ledger: row %s params: %w", id, err)
		}
		if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("ledger: row %s created_at: %w", id, err)
		}
		r.Position = mgl32.Vec3{float32(px), float32(py), float32(pz)}
		r.Rotation = mgl32.Quat{W: float32(rw), V: mgl32.Vec3{float32(rx), float32(ry), float32(rz)}}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database. Further spawns fail with ErrClosed.
func (l *Ledger) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.db.Close()
}
