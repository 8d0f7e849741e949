// Package redis implements session.DataStore on top of Redis via go-redis, storing each
// session as a hash with a PEXPIREAT mirroring its expiry.
package redis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/sessionkit/core/session"
)

// Store is a Redis-backed session.DataStore.
type Store struct {
	client *goredis.Client
	cfg    Config
	log    *slog.Logger
	sctx   session.Context
}

// NewStore builds a Store bound to client. Call Initialize before using it.
func NewStore(client *goredis.Client, cfg Config, log *slog.Logger) *Store {
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &Store{client: client, cfg: cfg, log: log}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Initialize records ctx for key scoping.
func (s *Store) Initialize(ctx session.Context) error {
	s.sctx = ctx
	return nil
}

func (s *Store) key(id string) string {
	return fmt.Sprintf("%s%s:%s:%s", s.cfg.keyPrefix(),
		session.FileSafe(s.sctx.VHost), session.FileSafe(s.sctx.ContextPath), id)
}

func (s *Store) keyPattern() string {
	return fmt.Sprintf("%s%s:%s:*", s.cfg.keyPrefix(),
		session.FileSafe(s.sctx.VHost), session.FileSafe(s.sctx.ContextPath))
}

const (
	fieldLastNode      = "last_node"
	fieldAccessed      = "accessed"
	fieldLastAccessed  = "last_accessed"
	fieldCreated       = "created"
	fieldCookieSet     = "cookie_set"
	fieldLastSaved     = "last_saved"
	fieldExpiry        = "expiry"
	fieldMaxInactiveMs = "max_inactive_ms"
	fieldAttrs         = "attrs"
)

// Load returns the durable record for id, or session.ErrNotFound if the key is absent.
func (s *Store) Load(ctx context.Context, id string) (*session.Data, error) {
	res, err := s.client.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return nil, session.Transient(fmt.Errorf("load session %s: %w", id, err))
	}
	if len(res) == 0 {
		return nil, session.ErrNotFound
	}

	d := &session.Data{ID: id, ContextPath: s.sctx.ContextPath, VHost: s.sctx.VHost}
	d.LastNode = res[fieldLastNode]
	d.Accessed = parseInt64(res[fieldAccessed])
	d.LastAccessed = parseInt64(res[fieldLastAccessed])
	d.Created = parseInt64(res[fieldCreated])
	d.CookieSet = parseInt64(res[fieldCookieSet])
	d.LastSaved = parseInt64(res[fieldLastSaved])
	d.Expiry = parseInt64(res[fieldExpiry])
	d.MaxInactiveMs = parseInt64(res[fieldMaxInactiveMs])

	if raw := res[fieldAttrs]; raw != "" {
		attrs, decErr := session.DecodeAttributes(bytes.NewReader([]byte(raw)))
		if decErr != nil {
			return nil, session.Unreadable(fmt.Errorf("decode attributes for %s: %w", id, decErr))
		}
		d.Attributes = attrs
	} else {
		d.Attributes = make(map[string]any)
	}

	return d, nil
}

func parseInt64(s string) int64 {
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

// Store writes id's record as a hash and sets or clears its expiry to match data.Expiry.
// lastSaveTime is not used to decide the write itself since HSet already upserts; the
// hash is always stamped with the current time.
func (s *Store) Store(ctx context.Context, id string, data *session.Data, _ int64) error {
	var buf bytes.Buffer
	if err := session.EncodeAttributes(&buf, data.Attributes); err != nil {
		return fmt.Errorf("encode attributes for %s: %w", id, err)
	}

	now := session.NowMs()

	key := s.key(id)
	fields := map[string]any{
		fieldLastNode:      s.sctx.WorkerName,
		fieldAccessed:      data.Accessed,
		fieldLastAccessed:  data.LastAccessed,
		fieldCreated:       data.Created,
		fieldCookieSet:     data.CookieSet,
		fieldLastSaved:     now,
		fieldExpiry:        data.Expiry,
		fieldMaxInactiveMs: data.MaxInactiveMs,
		fieldAttrs:         buf.String(),
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, fields)
	if data.Expiry > 0 {
		pipe.PExpireAt(ctx, key, time.UnixMilli(data.Expiry))
	} else {
		pipe.Persist(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return session.Transient(fmt.Errorf("store session %s: %w", id, err))
	}

	data.LastSaved = now
	return nil
}

// Delete removes id's key, reporting whether it actually existed.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return false, session.Transient(fmt.Errorf("delete session %s: %w", id, err))
	}
	return n > 0, nil
}

// Exists reports whether id's key is present; Redis's own TTL already removes expired
// keys, so presence alone is sufficient.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, session.Transient(fmt.Errorf("exists check for %s: %w", id, err))
	}
	return n > 0, nil
}

// GetExpired reports which of candidates are gone from Redis (expired-by-absence, since
// Redis evicts expired keys on its own) and sweeps this context's keyspace via SCAN for
// any resident key whose own expiry field has nonetheless passed now - covering
// immortal-turned-timed sessions and clock skew between app and Redis TTLs.
func (s *Store) GetExpired(ctx context.Context, candidates []string, now int64) ([]string, error) {
	found := make(map[string]struct{})

	if len(candidates) > 0 {
		keys := make([]string, len(candidates))
		for i, id := range candidates {
			keys[i] = s.key(id)
		}
		existsCount, err := s.existsMany(ctx, keys)
		if err != nil {
			return nil, err
		}
		for i, id := range candidates {
			if !existsCount[i] {
				found[id] = struct{}{}
			}
		}
	}

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.keyPattern(), s.cfg.scanBatchSize()).Result()
		if err != nil {
			return nil, session.Transient(fmt.Errorf("scan expired: %w", err))
		}
		for _, key := range keys {
			expiryStr, err := s.client.HGet(ctx, key, fieldExpiry).Result()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				return nil, session.Transient(fmt.Errorf("scan expired field: %w", err))
			}
			expiry := parseInt64(expiryStr)
			if expiry > 0 && expiry <= now {
				found[s.idFromKey(key)] = struct{}{}
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}

	out := make([]string, 0, len(found))
	for id := range found {
		out = append(out, id)
	}
	return out, nil
}

func (s *Store) existsMany(ctx context.Context, keys []string) ([]bool, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*goredis.IntCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.Exists(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, session.Transient(fmt.Errorf("exists-many: %w", err))
	}
	out := make([]bool, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val() > 0
	}
	return out, nil
}

func (s *Store) idFromKey(key string) string {
	prefix := s.keyPattern()
	prefix = prefix[:len(prefix)-1] // trim trailing "*"
	if len(key) > len(prefix) {
		return key[len(prefix):]
	}
	return key
}

// IsPassivating always returns true: attribute values pass through gob serialization.
func (s *Store) IsPassivating() bool { return true }

// Healthcheck pings the underlying client.
func (s *Store) Healthcheck(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ session.DataStore = (*Store)(nil)
