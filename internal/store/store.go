// Package store persists generated plans in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "modernc.org/sqlite"

	"github.com/dgallion1/tripgenie/internal/segment"
	"github.com/dgallion1/tripgenie/internal/travel"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id           TEXT PRIMARY KEY,
	request_hash TEXT NOT NULL,
	request      TEXT NOT NULL,
	model        TEXT NOT NULL DEFAULT '',
	raw_text     TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	sections     TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS plans_request_hash ON plans(request_hash, created_at);
CREATE INDEX IF NOT EXISTS plans_created_at ON plans(created_at);
`

// Plan is a stored generation result. RawText is the model output exactly
// as received; Sections is its segmentation.
type Plan struct {
	ID          string            `json:"id"`
	RequestHash string            `json:"request_hash"`
	Request     travel.Request    `json:"request"`
	Model       string            `json:"model"`
	RawText     string            `json:"raw_text"`
	Strategy    segment.Strategy  `json:"strategy"`
	Sections    []segment.Section `json:"sections"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Store is a SQLite-backed plan store with a read-through LRU cache.
// Plans returned from Get are shared with the cache and must not be modified.
type Store struct {
	db    *sql.DB
	cache *lru.Cache[string, *Plan]
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string, cacheSize int) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *Plan](cacheSize)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}
	return &Store{db: db, cache: cache}, nil
}

// Put inserts or replaces a plan.
func (s *Store) Put(ctx context.Context, p *Plan) error {
	if p.ID == "" {
		return errors.New("plan id is required")
	}
	req, err := json.Marshal(p.Request)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	sections := p.Sections
	if sections == nil {
		sections = []segment.Section{}
	}
	secs, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO plans (id, request_hash, request, model, raw_text, strategy, sections, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.RequestHash, string(req), p.Model, p.RawText, string(p.Strategy), string(secs), p.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("put plan %s: %w", p.ID, err)
	}
	s.cache.Remove(p.ID)
	return nil
}

// Get returns the plan with id, or nil when there is none.
func (s *Store) Get(ctx context.Context, id string) (*Plan, error) {
	if p, ok := s.cache.Get(id); ok {
		return p, nil
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+columns+` FROM plans WHERE id = ?`, id)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %s: %w", id, err)
	}
	s.cache.Add(id, p)
	return p, nil
}

// FindByRequestHash returns the newest plan generated for hash, or nil.
func (s *Store) FindByRequestHash(ctx context.Context, hash string) (*Plan, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+columns+` FROM plans WHERE request_hash = ? ORDER BY created_at DESC LIMIT 1`, hash)
	p, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find plan by hash: %w", err)
	}
	return p, nil
}

// List returns up to limit plans, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]*Plan, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+columns+` FROM plans ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	plans := []*Plan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Delete removes a plan. It reports whether a plan was removed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete plan %s: %w", id, err)
	}
	s.cache.Remove(id)
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete plan %s: %w", id, err)
	}
	return n > 0, nil
}

func (s *Store) Close() error {
	s.cache.Purge()
	return s.db.Close()
}

const columns = `id, request_hash, request, model, raw_text, strategy, sections, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(sc scanner) (*Plan, error) {
	var (
		p         Plan
		req, secs string
		strategy  string
		created   int64
	)
	if err := sc.Scan(&p.ID, &p.RequestHash, &req, &p.Model, &p.RawText, &strategy, &secs, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(req), &p.Request); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if err := json.Unmarshal([]byte(secs), &p.Sections); err != nil {
		return nil, fmt.Errorf("decode sections: %w", err)
	}
	p.Strategy = segment.Strategy(strategy)
	p.CreatedAt = time.Unix(0, created).UTC()
	return &p, nil
}
