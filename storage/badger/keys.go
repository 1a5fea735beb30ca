package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/mlgkav/email-agent/core"
)

// Key prefixes for different data types
const (
	entryPrefix        = "entry"
	messageChunkPrefix = "msgchk"
	watermarkPrefix    = "wmark"
)

// makeEntryKey generates a key for an index entry by chunk ID.
func makeEntryKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entryPrefix, id))
}

// makeMessageChunkKey generates a composite key for the message→chunk index.
// Format: prefix:messageID:chunkID
func makeMessageChunkKey(messageID, chunkID core.ID) []byte {
	prefix := messageChunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for messageID + 8 bytes for chunkID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(messageID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

// makePartialMessageChunkKey generates a partial key for per-message scans.
// Format: prefix:messageID
func makePartialMessageChunkKey(messageID core.ID) []byte {
	prefix := messageChunkPrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for messageID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(messageID))
	return buf
}

// makeWatermarkKey generates a key for a mailbox watermark.
func makeWatermarkKey(mailbox string) []byte {
	return []byte(fmt.Sprintf("%s:%s", watermarkPrefix, mailbox))
}
