package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ethereum/go-ethereum/rlp"
)

// Asset metadata bounds.
const (
	MaxAssetNameLen = 32
	MaxUnitNameLen  = 8
	MaxAssetURLLen  = 96
	MaxAssetNoteLen = 1024
)

var ErrInvalidAssetMetadata = errors.New("types: invalid asset metadata")

// AssetMetadata describes a minted asset. URL usually points at the content,
// e.g. ipfs://<cid>, and Note carries a JSON document about it.
type AssetMetadata struct {
	Name     string `json:"name,omitempty"`
	UnitName string `json:"unitName,omitempty"`
	URL      string `json:"url,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Validate enforces the length bounds and UTF-8 encoding of every field.
func (m AssetMetadata) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"name", m.Name, MaxAssetNameLen},
		{"unit name", m.UnitName, MaxUnitNameLen},
		{"url", m.URL, MaxAssetURLLen},
		{"note", m.Note, MaxAssetNoteLen},
	}
	for _, f := range fields {
		if len(f.value) > f.max {
			return fmt.Errorf("%w: %s longer than %d bytes", ErrInvalidAssetMetadata, f.name, f.max)
		}
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", ErrInvalidAssetMetadata, f.name)
		}
	}
	if strings.TrimSpace(m.Name) != m.Name || strings.TrimSpace(m.UnitName) != m.UnitName {
		return fmt.Errorf("%w: surrounding whitespace in name", ErrInvalidAssetMetadata)
	}
	return nil
}

// EncodeAssetMetadata serialises mint metadata for Transaction.Args.
func EncodeAssetMetadata(meta AssetMetadata) ([]byte, error) {
	return rlp.EncodeToBytes(&meta)
}

// DecodeAssetMetadata parses the Args of an asset mint. Empty args describe
// an anonymous asset.
func DecodeAssetMetadata(data []byte) (AssetMetadata, error) {
	var meta AssetMetadata
	if len(data) == 0 {
		return meta, nil
	}
	if err := rlp.DecodeBytes(data, &meta); err != nil {
		return meta, fmt.Errorf("%w: %v", ErrInvalidAssetMetadata, err)
	}
	if err := meta.Validate(); err != nil {
		return meta, err
	}
	return meta, nil
}
