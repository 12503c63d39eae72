package persistence

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/talgya/tilewar/internal/faction"
)

// packOwners encodes an ownership grid as little-endian uint16s and compresses it.
func packOwners(owner []faction.ID) ([]byte, error) {
	raw := make([]byte, 2*len(owner))
	for i, o := range owner {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(o))
	}

	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

// unpackOwners reverses packOwners.
func unpackOwners(blob []byte) ([]faction.ID, error) {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(blob)))
	if err != nil {
		return nil, fmt.Errorf("lz4 read: %w", err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("ownership blob has odd length %d", len(raw))
	}
	owner := make([]faction.ID, len(raw)/2)
	for i := range owner {
		owner[i] = faction.ID(binary.LittleEndian.Uint16(raw[2*i:]))
	}
	return owner, nil
}
