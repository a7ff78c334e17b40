package storage

import (
	"context"
	"strings"
)

// Open selects a keyspace backend. A postgres DSN wins when set; a data
// path ending in .db (or a sqlite:// DSN) opens SQLite; any other
// non-empty path is a file-per-key directory; empty means in-memory.
func Open(ctx context.Context, databaseURL, dataDir string) (Keyspace, error) {
	dsn := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgresKeyspace(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLiteKeyspace(strings.TrimPrefix(dsn, "sqlite://"))
	}

	dir := strings.TrimSpace(dataDir)
	switch {
	case dir == "":
		return NewMemoryKeyspace(), nil
	case strings.HasSuffix(dir, ".db"):
		return NewSQLiteKeyspace(dir)
	default:
		return NewFileKeyspace(dir)
	}
}
