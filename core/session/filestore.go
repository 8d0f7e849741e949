package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileStore persists one file per session under Dir, named
// "<expiryMs>_<vhost>_<ctxPath>_<id>" with path separators and dots in vhost/ctxPath/id
// replaced by underscores. Writes go through a temp file and rename so a reader never
// observes a partial write.
type FileStore struct {
	Dir string

	ctx Context
}

// NewFileStore returns a store rooted at dir. The directory is created lazily on
// Initialize.
func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (f *FileStore) Initialize(ctx Context) error {
	f.ctx = ctx
	return os.MkdirAll(f.Dir, 0o700)
}

func (f *FileStore) fileName(id string, vhost, ctxPath string, expiry int64) string {
	return fmt.Sprintf("%d_%s_%s_%s", expiry, FileSafe(vhost), FileSafe(ctxPath), FileSafe(id))
}

func (f *FileStore) findPath(id string) (string, int64, bool) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return "", 0, false
	}
	suffix := "_" + FileSafe(id)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) != 2 {
			continue
		}
		expiry, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		rest := parts[1]
		rest = strings.TrimSuffix(rest, suffix)
		// rest is now "<vhost>_<ctxPath>"; the id suffix already matched so this is
		// the right file as long as no other session shares the same sanitized id.
		_ = rest
		return filepath.Join(f.Dir, name), expiry, true
	}
	return "", 0, false
}

func (f *FileStore) Load(_ context.Context, id string) (*Data, error) {
	path, _, ok := f.findPath(id)
	if !ok {
		return nil, ErrNotFound
	}
	fh, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, Transient(err)
	}
	defer fh.Close()
	d, err := Decode(fh)
	if err != nil {
		return nil, Unreadable(err)
	}
	return d, nil
}

func (f *FileStore) Store(_ context.Context, id string, data *Data, _ int64) error {
	if old, _, ok := f.findPath(id); ok {
		_ = os.Remove(old)
	}
	name := f.fileName(id, data.VHost, data.ContextPath, data.Expiry)
	finalPath := filepath.Join(f.Dir, name)
	tmp, err := os.CreateTemp(f.Dir, ".tmp-*")
	if err != nil {
		return Transient(err)
	}
	tmpPath := tmp.Name()
	if err := data.Encode(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return Transient(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return Transient(err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return Transient(err)
	}
	data.LastSaved = nowMs()
	return nil
}

func (f *FileStore) Delete(_ context.Context, id string) (bool, error) {
	path, _, ok := f.findPath(id)
	if !ok {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, Transient(err)
	}
	return true, nil
}

func (f *FileStore) Exists(_ context.Context, id string) (bool, error) {
	_, expiry, ok := f.findPath(id)
	if !ok {
		return false, nil
	}
	if expiry > 0 && expiry <= nowMs() {
		return false, nil
	}
	return true, nil
}

// GetExpired lists the directory and parses only the expiry prefix of each file name,
// avoiding full deserialization of every candidate.
func (f *FileStore) GetExpired(_ context.Context, candidates []string, now int64) ([]string, error) {
	entries, err := os.ReadDir(f.Dir)
	if err != nil {
		return nil, Transient(err)
	}
	seen := make(map[string]bool, len(candidates))
	byID := make(map[string]int64, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		// Layout is "<expiry>_<vhost>_<ctxPath>_<id>". Splitting into exactly four
		// fields (rather than taking everything after the last "_") keeps an id that
		// itself contains "_" - as minted ids routinely do - intact.
		parts := strings.SplitN(e.Name(), "_", 4)
		if len(parts) != 4 {
			continue
		}
		expiry, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			continue
		}
		byID[parts[3]] = expiry
	}

	var expired []string
	for _, id := range candidates {
		seen[id] = true
		expiry, ok := byID[id]
		if !ok || (expiry > 0 && expiry <= now) {
			expired = append(expired, id)
		}
	}
	for id, expiry := range byID {
		if seen[id] {
			continue
		}
		if expiry > 0 && expiry <= now {
			expired = append(expired, id)
		}
	}
	sort.Strings(expired)
	return expired, nil
}

func (f *FileStore) IsPassivating() bool { return true }

func (f *FileStore) Healthcheck(context.Context) error {
	info, err := os.Stat(f.Dir)
	if err != nil {
		return Transient(err)
	}
	if !info.IsDir() {
		return Transient(fmt.Errorf("session: %s is not a directory", f.Dir))
	}
	return nil
}
