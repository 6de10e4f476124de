package market

import (
	"encoding/binary"
	"fmt"
)

const (
	addressSize = 20
	integerSize = 8

	// ListingKeySize is the width of the asset identifier key.
	ListingKeySize = integerSize
	// ListingValueSize is the width of an encoded record:
	// seller | price | creator | royalty bps.
	ListingValueSize = 2*addressSize + 2*integerSize
)

// ListingKey returns the storage key of the listing for asset.
func ListingKey(asset uint64) []byte {
	key := make([]byte, ListingKeySize)
	binary.BigEndian.PutUint64(key, asset)
	return key
}

// EncodeListing serialises the record with a fixed-width big-endian layout.
// The asset is the key and is not repeated in the value.
func EncodeListing(l *Listing) []byte {
	buf := make([]byte, ListingValueSize)
	off := 0
	copy(buf[off:off+addressSize], l.Seller[:])
	off += addressSize
	binary.BigEndian.PutUint64(buf[off:off+integerSize], l.Price)
	off += integerSize
	copy(buf[off:off+addressSize], l.Creator[:])
	off += addressSize
	binary.BigEndian.PutUint64(buf[off:off+integerSize], l.RoyaltyBps)
	return buf
}

// DecodeListing parses a record produced by EncodeListing.
func DecodeListing(asset uint64, data []byte) (*Listing, error) {
	if len(data) != ListingValueSize {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidRecord, ListingValueSize, len(data))
	}
	l := &Listing{Asset: asset}
	off := 0
	copy(l.Seller[:], data[off:off+addressSize])
	off += addressSize
	l.Price = binary.BigEndian.Uint64(data[off : off+integerSize])
	off += integerSize
	copy(l.Creator[:], data[off:off+addressSize])
	off += addressSize
	l.RoyaltyBps = binary.BigEndian.Uint64(data[off : off+integerSize])
	return l, nil
}
