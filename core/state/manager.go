package state

import (
	"errors"
	"fmt"
	"sort"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"escrowmarket/storage"
)

var (
	ErrInsufficientBalance = errors.New("state: insufficient available balance")
	ErrBalanceOverflow     = errors.New("state: balance overflow")
	ErrReleaseExceeded     = errors.New("state: release exceeds reserved balance")
	ErrUnknownAsset        = errors.New("state: unknown asset")
	ErrInvalidAsset        = errors.New("state: invalid asset parameters")
	ErrNotOptedIn          = errors.New("state: account not opted in to asset")
	ErrInsufficientAsset   = errors.New("state: insufficient asset holdings")
	ErrNonceMismatch       = errors.New("state: nonce mismatch")
)

type journalEntry struct {
	value   []byte
	deleted bool
}

// Manager reads and writes ledger state on top of a storage.Database. Every
// write is held in a journal until Commit flushes it as one batch; Discard
// drops it. Reads observe the journal first, so a transition sees its own
// writes before they are committed.
//
// Manager is not safe for concurrent use. The node serialises access.
type Manager struct {
	db      storage.Database
	journal map[string]journalEntry
}

// NewManager creates a state manager operating on db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, journal: make(map[string]journalEntry)}
}

// hashKey derives the storage key for prefix and the given identifier parts.
func hashKey(prefix []byte, parts ...[]byte) []byte {
	buf := make([]byte, 0, len(prefix)+32)
	buf = append(buf, prefix...)
	for _, part := range parts {
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	if entry, ok := m.journal[string(key)]; ok {
		if entry.deleted {
			return nil, false, nil
		}
		return entry.value, true, nil
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (m *Manager) put(key, value []byte) {
	m.journal[string(key)] = journalEntry{value: append([]byte(nil), value...)}
}

func (m *Manager) delete(key []byte) {
	m.journal[string(key)] = journalEntry{deleted: true}
}

func (m *Manager) getRLP(key []byte, out interface{}) (bool, error) {
	data, ok, err := m.get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %x: %w", key, err)
	}
	return true, nil
}

func (m *Manager) putRLP(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.put(key, encoded)
	return nil
}

// Pending reports the number of journaled writes awaiting commit.
func (m *Manager) Pending() int { return len(m.journal) }

// Commit flushes the journal to storage atomically.
func (m *Manager) Commit() error {
	if len(m.journal) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m.journal))
	for k := range m.journal {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	batch := storage.NewBatch()
	for _, k := range keys {
		entry := m.journal[k]
		if entry.deleted {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), entry.value)
	}
	if err := m.db.Write(batch); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	m.journal = make(map[string]journalEntry)
	return nil
}

// Discard drops every journaled write.
func (m *Manager) Discard() {
	m.journal = make(map[string]journalEntry)
}
