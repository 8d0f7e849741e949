package pg

// dbAdapter isolates the one dialect-sensitive boundary case the relational schema
// names explicitly: whether an empty context path or vhost should round-trip as an
// empty string or as SQL NULL. PostgreSQL distinguishes '' from NULL and allows empty
// strings in primary-key columns, so postgresAdapter's fold is the identity function;
// a future dialect that treats '' as NULL (as e.g. Oracle does) would implement this
// interface differently without touching Store's query logic.
type dbAdapter interface {
	foldEmpty(s string) string
	unfoldEmpty(s string) string
}

type postgresAdapter struct{}

func (postgresAdapter) foldEmpty(s string) string   { return s }
func (postgresAdapter) unfoldEmpty(s string) string { return s }

var adapter dbAdapter = postgresAdapter{}
