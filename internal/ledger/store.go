package ledger

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lox/blackjack21/internal/fileutil"
)

// Store abstracts the on-disk encoding of the ledger. The ledger holds the
// authoritative in-memory state and calls Save after every mutation; a Store
// only needs to persist and restore the full account map.
type Store interface {
	Load() (map[string]*Account, error)
	Save(accounts map[string]*Account) error
}

// FileStore persists the ledger as a single JSON document mapping player ID
// to account, e.g. {"123": {"coins": 500, "last_claimed": "2026-08-31"}}.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given path. The file is created
// on first save; a missing file loads as an empty ledger.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the account map from disk
func (fs *FileStore) Load() (map[string]*Account, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*Account), nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	accounts := make(map[string]*Account)
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}
	return accounts, nil
}

// Save writes the account map atomically so a crash mid-write never leaves
// a truncated ledger behind.
func (fs *FileStore) Save(accounts map[string]*Account) error {
	data, err := json.MarshalIndent(accounts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	return fileutil.WriteFileAtomic(fs.path, data, 0o644)
}

// MemStore is an in-memory Store for tests
type MemStore struct {
	accounts map[string]*Account
	failNext bool
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{accounts: make(map[string]*Account)}
}

// FailNextSave makes the next Save return an error, for testing rollback
func (ms *MemStore) FailNextSave() {
	ms.failNext = true
}

// Load returns a copy of the stored accounts
func (ms *MemStore) Load() (map[string]*Account, error) {
	out := make(map[string]*Account, len(ms.accounts))
	for id, acct := range ms.accounts {
		copied := *acct
		out[id] = &copied
	}
	return out, nil
}

// Save replaces the stored accounts
func (ms *MemStore) Save(accounts map[string]*Account) error {
	if ms.failNext {
		ms.failNext = false
		return fmt.Errorf("store unavailable")
	}
	out := make(map[string]*Account, len(accounts))
	for id, acct := range accounts {
		copied := *acct
		out[id] = &copied
	}
	ms.accounts = out
	return nil
}
