package store

import (
	"fmt"
	"path/filepath"
)

// New creates a Store based on the backend name.
//
// Supported backends:
//
//	"json"   - one JSON document per record set in dataDir (default)
//	"sqlite" - SQLite database at dataDir/shop.db
//	"memory" - In-memory (ephemeral, for testing)
//
// The corrupt policy applies to the JSON backend only.
func New(backend, dataDir string, policy CorruptPolicy) (Store, error) {
	switch backend {
	case "json", "":
		return NewJSONFileStore(dataDir, policy)
	case "sqlite":
		dbPath := filepath.Join(dataDir, "shop.db")
		return NewSqliteStore(dbPath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q (supported: json, sqlite, memory)", backend)
	}
}
