package session

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Handler is the per-context collaborator the IDManager fans invalidation and rename
// notices out to. SessionManager implements this.
type Handler interface {
	// ContextPath identifies which context this handler serves, for logging only.
	ContextPath() string
	// IsIDInUse reports whether id is currently registered in this context.
	IsIDInUse(id string) bool
	// HandleInvalidate asks this context to invalidate id locally, if present.
	HandleInvalidate(id string)
	// HandleRename asks this context to rename oldID to newID locally, if oldID is
	// present.
	HandleRename(oldID, newID string)
}

// IDManagerConfig configures a server-wide IDManager.
type IDManagerConfig struct {
	// WorkerName identifies this node and must not contain '.'. Empty means no node
	// suffix is applied to minted or extended ids.
	WorkerName string `env:"SESSION_WORKER_NAME" envDefault:""`
	// NodeIDInSessionID controls whether GetExtendedID appends ".<workerName>".
	NodeIDInSessionID bool `env:"SESSION_NODE_ID_IN_SESSION_ID" envDefault:"true"`
}

// DefaultIDManagerConfig returns the package defaults.
func DefaultIDManagerConfig() IDManagerConfig {
	return IDManagerConfig{NodeIDInSessionID: true}
}

// IDManager is the server-wide, exactly-one-per-server session id authority: it mints
// ids, tracks which ids are in use across registered contexts, and fans invalidation and
// rename notices out to every registered Handler.
type IDManager struct {
	cfg IDManagerConfig
	log *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler

	counter atomic.Int64
}

// NewIDManager validates cfg and returns a ready IDManager. Returns ErrInvalidWorkerName
// if cfg.WorkerName contains '.'.
func NewIDManager(cfg IDManagerConfig, log *slog.Logger) (*IDManager, error) {
	if strings.Contains(cfg.WorkerName, ".") {
		return nil, ErrInvalidWorkerName
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	return &IDManager{cfg: cfg, log: log, handlers: make(map[string]Handler)}, nil
}

// Register adds h to the fan-out set, keyed by its ContextPath.
func (m *IDManager) Register(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[h.ContextPath()] = h
}

// Unregister removes the handler previously registered for contextPath.
func (m *IDManager) Unregister(contextPath string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, contextPath)
}

func (m *IDManager) snapshotHandlers() []Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		out = append(out, h)
	}
	return out
}

// IsIDInUse reports whether any registered context reports id in use.
func (m *IDManager) IsIDInUse(id string) bool {
	for _, h := range m.snapshotHandlers() {
		if h.IsIDInUse(id) {
			return true
		}
	}
	return false
}

// NewSessionID mints a fresh id, or reuses requestedID if it is non-empty and currently
// in use in at least one context. Never returns an empty string.
func (m *IDManager) NewSessionID(requestedID string, createdTime int64) string {
	if requestedID != "" && m.IsIDInUse(requestedID) {
		return requestedID
	}
	for {
		id := m.mint(createdTime)
		if id != "" && !m.IsIDInUse(id) {
			return id
		}
	}
}

func (m *IDManager) mint(createdTime int64) string {
	a := m.randomLong()
	b := m.randomLong()
	seq := m.counter.Add(1)

	var sb strings.Builder
	if m.cfg.WorkerName != "" {
		sb.WriteString(m.cfg.WorkerName)
		sb.WriteByte('_')
	}
	sb.WriteString(strconv.FormatUint(a, 36))
	sb.WriteString(strconv.FormatUint(b, 36))
	sb.WriteString(strconv.FormatInt(seq, 36))
	return sb.String()
}

// randomLong draws 8 bytes from crypto/rand and folds them into a uint64. A read failure
// here never happens in practice (crypto/rand only errors if the OS entropy source
// itself is broken), but on one it falls back to math/rand/v2's top-level generator.
// Neither source needs periodic reseeding: crypto/rand reads fresh OS entropy on every
// call, and math/rand/v2's top-level generator is auto-seeded from the OS CSPRNG at
// process start and deliberately exposes no global Seed to call again later.
func (m *IDManager) randomLong() uint64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err == nil {
		return uint64(buf[0])<<56 | uint64(buf[1])<<48 | uint64(buf[2])<<40 | uint64(buf[3])<<32 |
			uint64(buf[4])<<24 | uint64(buf[5])<<16 | uint64(buf[6])<<8 | uint64(buf[7])
	}
	m.log.Error("crypto/rand read failed, falling back to math/rand/v2")
	return mrand.Uint64()
}

// GetExtendedID returns id, optionally suffixed with ".<workerName>" per
// NodeIDInSessionID, enabling downstream load-balancer affinity.
func (m *IDManager) GetExtendedID(id string) string {
	if !m.cfg.NodeIDInSessionID || m.cfg.WorkerName == "" {
		return id
	}
	return id + "." + m.cfg.WorkerName
}

// GetID returns the prefix of extendedID before its final '.', or extendedID unchanged
// if it contains none. Pure string function.
func (m *IDManager) GetID(extendedID string) string {
	if i := strings.LastIndexByte(extendedID, '.'); i >= 0 {
		return extendedID[:i]
	}
	return extendedID
}

// ExpireAll fans a local-invalidate notice for id out to every registered context.
func (m *IDManager) ExpireAll(id string) {
	m.InvalidateAll(id)
}

// InvalidateAll fans a local-invalidate notice for id out to every registered context.
func (m *IDManager) InvalidateAll(id string) {
	for _, h := range m.snapshotHandlers() {
		h.HandleInvalidate(id)
	}
}

// RenewSessionID mints a new id and fans a rename notice for (oldID -> newID) out to
// every registered context, returning the new id.
func (m *IDManager) RenewSessionID(oldID string, createdTime int64) string {
	newID := m.NewSessionID("", createdTime)
	for _, h := range m.snapshotHandlers() {
		h.HandleRename(oldID, newID)
	}
	return newID
}

// String implements fmt.Stringer for diagnostic logging.
func (m *IDManager) String() string {
	return fmt.Sprintf("IDManager{worker=%q, contexts=%d}", m.cfg.WorkerName, len(m.snapshotHandlers()))
}
