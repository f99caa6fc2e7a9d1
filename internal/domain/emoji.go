package domain

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// bookmarkEmoji is the palette of default bookmark emoji. Order matters:
// the derived emoji is an index into this slice, and every machine must
// derive the same one.
var bookmarkEmoji = []string{
	"🎵", "🎶", "🎼", "🎧", "🎤", "🎹", "🎷", "🎺", "🎸", "🥁", "🪕", "🎻",
}

// DefaultBookmarkEmoji derives a stable emoji for a bookmark from the
// item and bookmark IDs. Both UUIDs are read as big-endian 128-bit
// integers, XORed, and reduced modulo the palette size.
func DefaultBookmarkEmoji(itemID, bookmarkID uuid.UUID) string {
	var x [16]byte
	for i := range x {
		x[i] = itemID[i] ^ bookmarkID[i]
	}
	hi := binary.BigEndian.Uint64(x[:8])
	lo := binary.BigEndian.Uint64(x[8:])

	n := uint64(len(bookmarkEmoji))
	// (hi<<64 + lo) mod n, without 128-bit arithmetic:
	// 2^64 mod n == ((2^63 mod n) * 2) mod n.
	shift := ((uint64(1) << 63 % n) * 2) % n
	idx := ((hi%n)*shift + lo%n) % n

	return bookmarkEmoji[idx]
}
