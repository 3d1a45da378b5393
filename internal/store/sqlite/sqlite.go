// Package sqlite persists in-memory collections to a single SQLite table as
// JSON blobs, one row per collection, rewritten after every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pcbaerp/internal/store"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// DB is an open snapshot database.
type DB struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating when needed) the snapshot database at path.
// ":memory:" is accepted for tests.
func Open(path string) (*DB, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS state (
		bucket TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create state table: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Path returns the configured database path.
func (d *DB) Path() string { return d.path }

// Close closes the underlying database.
func (d *DB) Close() error { return d.db.Close() }

// Ping reports whether the database answers.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

func (d *DB) load(ctx context.Context, bucket string) ([]byte, bool, error) {
	var payload []byte
	err := d.db.QueryRowContext(ctx, `SELECT payload FROM state WHERE bucket=?`, bucket).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s: %w", bucket, err)
	}
	return payload, true, nil
}

// save writes the payload produced by encode. encode runs under the write
// lock, so the last save to finish always carries the newest contents.
func (d *DB) save(ctx context.Context, bucket string, encode func() ([]byte, error)) (retErr error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	payload, err := encode()
	if err != nil {
		return err
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx, `INSERT INTO state(bucket,payload,updated_at) VALUES(?,?,CURRENT_TIMESTAMP)
		ON CONFLICT(bucket) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`, bucket, payload); err != nil {
		return fmt.Errorf("upsert %s: %w", bucket, err)
	}
	return tx.Commit()
}

// Collection is a store.Memory that writes itself to the snapshot database
// after every successful mutation.
type Collection[T store.Entity] struct {
	*store.Memory[T]
	db *DB
}

var _ store.Repository[store.Entity] = (*Collection[store.Entity])(nil)

// Bind loads the persisted copy of mem's collection, if any, into mem and
// returns a repository that keeps the database in step with it. When the
// database holds no copy yet, mem's current contents are written out.
func Bind[T store.Entity](ctx context.Context, db *DB, mem *store.Memory[T]) (*Collection[T], error) {
	c := &Collection[T]{Memory: mem, db: db}
	payload, ok, err := db.load(ctx, mem.Name())
	if err != nil {
		return nil, err
	}
	if !ok {
		if err := c.persist(ctx); err != nil {
			return nil, err
		}
		return c, nil
	}
	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", mem.Name(), err)
	}
	if err := mem.Restore(items); err != nil {
		return nil, err
	}
	return c, nil
}

// persist writes the collection out. The memory change has already been
// applied and observed, so the write is not tied to the caller's cancellation.
func (c *Collection[T]) persist(ctx context.Context) error {
	return c.db.save(context.WithoutCancel(ctx), c.Name(), func() ([]byte, error) {
		items := c.Memory.Snapshot()
		if items == nil {
			items = []T{}
		}
		data, err := json.Marshal(items)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", c.Name(), err)
		}
		return data, nil
	})
}

func (c *Collection[T]) Insert(ctx context.Context, rec T) error {
	if err := c.Memory.Insert(ctx, rec); err != nil {
		return err
	}
	return c.persist(ctx)
}

func (c *Collection[T]) Update(ctx context.Context, id string, rec T) error {
	if err := c.Memory.Update(ctx, id, rec); err != nil {
		return err
	}
	return c.persist(ctx)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.Memory.Delete(ctx, id); err != nil {
		return err
	}
	return c.persist(ctx)
}

func (c *Collection[T]) Clear(ctx context.Context) error {
	if err := c.Memory.Clear(ctx); err != nil {
		return err
	}
	return c.persist(ctx)
}
