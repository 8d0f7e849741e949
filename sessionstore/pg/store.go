// Package pg implements session.DataStore on top of PostgreSQL via pgx, following the
// relational schema: one row per (id, contextPath, vhost), scalar session fields as
// columns, attributes serialized into a single blob column.
package pg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/sessionkit/core/session"
)

// Store is a relational session.DataStore backed by a pgxpool.Pool.
type Store struct {
	pool  *pgxpool.Pool
	cfg   Config
	log   *slog.Logger
	sctx  session.Context
	ready bool
}

// NewStore builds a Store bound to pool. Call Initialize before using it.
func NewStore(pool *pgxpool.Pool, cfg Config, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &Store{pool: pool, cfg: cfg, log: log}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Initialize creates the session table and its indexes if absent, adds the max_interval
// column when missing (legacy schema upgrade), and records ctx for scoped queries.
func (s *Store) Initialize(ctx session.Context) error {
	s.sctx = ctx

	ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT NOT NULL,
	context_path TEXT NOT NULL,
	vhost TEXT NOT NULL,
	last_node TEXT NOT NULL DEFAULT '',
	access_time BIGINT NOT NULL DEFAULT 0,
	last_access_time BIGINT NOT NULL DEFAULT 0,
	create_time BIGINT NOT NULL DEFAULT 0,
	cookie_time BIGINT NOT NULL DEFAULT 0,
	last_saved_time BIGINT NOT NULL DEFAULT 0,
	expiry_time BIGINT NOT NULL DEFAULT 0,
	max_interval BIGINT NOT NULL DEFAULT -1,
	attrs BYTEA,
	PRIMARY KEY (id, context_path, vhost)
);
ALTER TABLE %[1]s ADD COLUMN IF NOT EXISTS max_interval BIGINT NOT NULL DEFAULT -1;
CREATE INDEX IF NOT EXISTS %[2]s_expiry_idx ON %[1]s (expiry_time);
CREATE INDEX IF NOT EXISTS %[2]s_id_context_idx ON %[1]s (id, context_path);
`, s.cfg.tableName(), sanitizeIdent(s.cfg.tableName()))

	if _, err := s.pool.Exec(context.Background(), ddl); err != nil {
		return fmt.Errorf("initialize session table: %w", err)
	}
	s.ready = true
	return nil
}

func (s *Store) ctxPath() string { return adapter.foldEmpty(s.sctx.ContextPath) }
func (s *Store) vhost() string   { return adapter.foldEmpty(s.sctx.VHost) }

func sanitizeIdent(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}

// Load returns the durable record for id within this store's bound context, or
// session.ErrNotFound if absent.
func (s *Store) Load(ctx context.Context, id string) (*session.Data, error) {
	query := fmt.Sprintf(`
SELECT id, context_path, vhost, last_node, access_time, last_access_time, create_time,
       cookie_time, last_saved_time, expiry_time, max_interval, attrs
FROM %s WHERE id = $1 AND context_path = $2 AND vhost = $3`, s.cfg.tableName())

	row := s.pool.QueryRow(ctx, query, id, s.ctxPath(), s.vhost())

	var d session.Data
	var attrs []byte
	err := row.Scan(&d.ID, &d.ContextPath, &d.VHost, &d.LastNode, &d.Accessed, &d.LastAccessed,
		&d.Created, &d.CookieSet, &d.LastSaved, &d.Expiry, &d.MaxInactiveMs, &attrs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, session.Transient(fmt.Errorf("load session %s: %w", id, err))
	}
	d.ContextPath = adapter.unfoldEmpty(d.ContextPath)
	d.VHost = adapter.unfoldEmpty(d.VHost)

	if len(attrs) > 0 {
		parsed, decErr := session.DecodeAttributes(bytes.NewReader(attrs))
		if decErr != nil {
			return nil, session.Unreadable(fmt.Errorf("decode attributes for %s: %w", id, decErr))
		}
		d.Attributes = parsed
	} else {
		d.Attributes = make(map[string]any)
	}

	return &d, nil
}

// Store inserts or updates id's record as a single upsert, since the primary key fully
// determines identity regardless of lastSaveTime. On success it stamps data.LastSaved to
// the current time.
func (s *Store) Store(ctx context.Context, id string, data *session.Data, _ int64) error {
	var buf bytes.Buffer
	if err := session.EncodeAttributes(&buf, data.Attributes); err != nil {
		return fmt.Errorf("encode attributes for %s: %w", id, err)
	}

	now := session.NowMs()

	query := fmt.Sprintf(`
INSERT INTO %s (id, context_path, vhost, last_node, access_time, last_access_time,
                 create_time, cookie_time, last_saved_time, expiry_time, max_interval, attrs)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id, context_path, vhost) DO UPDATE SET
	last_node = EXCLUDED.last_node,
	access_time = EXCLUDED.access_time,
	last_access_time = EXCLUDED.last_access_time,
	cookie_time = EXCLUDED.cookie_time,
	last_saved_time = EXCLUDED.last_saved_time,
	expiry_time = EXCLUDED.expiry_time,
	max_interval = EXCLUDED.max_interval,
	attrs = EXCLUDED.attrs`, s.cfg.tableName())

	_, err := s.pool.Exec(ctx, query, id, s.ctxPath(), s.vhost(), s.sctx.WorkerName,
		data.Accessed, data.LastAccessed, data.Created, data.CookieSet, now, data.Expiry,
		data.MaxInactiveMs, buf.Bytes())
	if err != nil {
		return session.Transient(fmt.Errorf("store session %s: %w", id, err))
	}

	data.LastSaved = now
	return nil
}

// Delete removes id's row, reporting whether a row actually existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND context_path = $2 AND vhost = $3`, s.cfg.tableName())
	tag, err := s.pool.Exec(ctx, query, id, s.ctxPath(), s.vhost())
	if err != nil {
		return false, session.Transient(fmt.Errorf("delete session %s: %w", id, err))
	}
	return tag.RowsAffected() > 0, nil
}

// Exists reports whether a non-expired row for id is present.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`
SELECT expiry_time FROM %s WHERE id = $1 AND context_path = $2 AND vhost = $3`, s.cfg.tableName())
	var expiry int64
	err := s.pool.QueryRow(ctx, query, id, s.ctxPath(), s.vhost()).Scan(&expiry)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, session.Transient(fmt.Errorf("exists check for %s: %w", id, err))
	}
	if expiry <= 0 {
		return true, nil
	}
	return expiry > session.NowMs(), nil
}

// GetExpired runs the three-pass scan: my-node/my-context rows already expired, any-node
// rows expired beyond the grace period, and caller-supplied candidates absent entirely.
func (s *Store) GetExpired(ctx context.Context, candidates []string, now int64) ([]string, error) {
	found := make(map[string]struct{})

	pass1 := fmt.Sprintf(`
SELECT id FROM %s
WHERE context_path = $1 AND vhost = $2 AND last_node = $3
  AND expiry_time > 0 AND expiry_time <= $4`, s.cfg.tableName())
	if err := s.collectIDs(ctx, pass1, found, s.ctxPath(), s.vhost(), s.sctx.WorkerName, now); err != nil {
		return nil, err
	}

	staleBefore := now - s.cfg.gracePeriodMs()
	pass2 := fmt.Sprintf(`
SELECT id FROM %s
WHERE context_path = $1 AND vhost = $2
  AND expiry_time > 0 AND expiry_time <= $3`, s.cfg.tableName())
	if err := s.collectIDs(ctx, pass2, found, s.ctxPath(), s.vhost(), staleBefore); err != nil {
		return nil, err
	}

	if len(candidates) > 0 {
		query := fmt.Sprintf(`
SELECT id FROM %s WHERE id = ANY($1) AND context_path = $2 AND vhost = $3`, s.cfg.tableName())
		present := make(map[string]struct{})
		if err := s.collectIDs(ctx, query, present, candidates, s.ctxPath(), s.vhost()); err != nil {
			return nil, err
		}
		for _, id := range candidates {
			if _, ok := present[id]; !ok {
				found[id] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(found))
	for id := range found {
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) collectIDs(ctx context.Context, query string, into map[string]struct{}, args ...any) error {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return session.Transient(fmt.Errorf("scan expired: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return session.Transient(fmt.Errorf("scan expired row: %w", err))
		}
		into[id] = struct{}{}
	}
	return rows.Err()
}

// IsPassivating always returns true: attribute values pass through gob serialization.
func (s *Store) IsPassivating() bool { return true }

// Healthcheck pings the underlying pool.
func (s *Store) Healthcheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

var _ session.DataStore = (*Store)(nil)
