// core/genesis/spec.go
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	ledger "escrowmarket/core/state"
	"escrowmarket/crypto"
)

// Alloc credits Balance native units to a bech32 account when the ledger is
// first initialised.
type Alloc struct {
	Address string `json:"address" toml:"Address"`
	Balance uint64 `json:"balance" toml:"Balance"`
}

// Spec lists the dev allocations applied to an empty ledger.
type Spec struct {
	Alloc []Alloc `json:"alloc"`
}

// ResolvedAlloc is an allocation with its address decoded.
type ResolvedAlloc struct {
	Address [20]byte
	Balance uint64
}

// LoadSpec reads a JSON genesis file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec: %w", err)
	}
	spec := new(Spec)
	if err := json.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("decode genesis spec: %w", err)
	}
	return spec, nil
}

// Resolve decodes every address and rejects duplicates.
func (s *Spec) Resolve() ([]ResolvedAlloc, error) {
	if s == nil {
		return nil, nil
	}
	seen := make(map[[20]byte]struct{}, len(s.Alloc))
	out := make([]ResolvedAlloc, 0, len(s.Alloc))
	for i, alloc := range s.Alloc {
		addr, err := crypto.ParseAddress(strings.TrimSpace(alloc.Address))
		if err != nil {
			return nil, fmt.Errorf("alloc %d: %w", i, err)
		}
		if _, dup := seen[addr]; dup {
			return nil, fmt.Errorf("alloc %d: duplicate address %s", i, alloc.Address)
		}
		seen[addr] = struct{}{}
		out = append(out, ResolvedAlloc{Address: addr, Balance: alloc.Balance})
	}
	return out, nil
}

// Apply credits every allocation once. It reports false when the ledger was
// already initialised. The caller commits the manager.
func Apply(manager *ledger.Manager, spec *Spec) (bool, error) {
	done, err := manager.GenesisApplied()
	if err != nil || done {
		return false, err
	}
	allocs, err := spec.Resolve()
	if err != nil {
		return false, err
	}
	for _, alloc := range allocs {
		if err := manager.Credit(alloc.Address, alloc.Balance); err != nil {
			return false, fmt.Errorf("credit %s: %w", crypto.FormatAddress(alloc.Address), err)
		}
	}
	if err := manager.MarkGenesisApplied(); err != nil {
		return false, err
	}
	return true, nil
}
