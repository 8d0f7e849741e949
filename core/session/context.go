package session

import "strings"

// Context carries the identity of an owning application scope through calls that need
// it, in place of a thread-local. It is the "SessionContext" of the design: workerName,
// canonical context path, and virtual host.
type Context struct {
	// WorkerName identifies the node. Empty means no node suffix is applied to ids.
	WorkerName string
	// ContextPath is the canonicalized application path, e.g. "/app". Empty string is
	// a valid canonical form for the root context.
	ContextPath string
	// VHost is the canonicalized virtual host. Empty string means "any host".
	VHost string
}

// CanonicalContextPath canonicalizes a raw context path the way file names and SQL rows
// expect it: the root context ("" or "/") becomes the empty string; any other path is
// returned unchanged, with no trimming or case folding.
func CanonicalContextPath(p string) string {
	if p == "" || p == "/" {
		return ""
	}
	return p
}

// FileSafe replaces path separators and dots with underscores, matching the file store's
// file-name convention: "<expiry>_<vhost>_<ctxPath>_<id>".
func FileSafe(s string) string {
	if s == "" {
		return ""
	}
	r := strings.NewReplacer("/", "_", ".", "_", "\\", "_")
	return r.Replace(s)
}

// Key is the identity triple (id, canonicalContextPath, canonicalVirtualHost). Two
// sessions with the same id in different contexts are different sessions.
type Key struct {
	ID          string
	ContextPath string
	VHost       string
}
