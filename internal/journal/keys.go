package journal

import "encoding/binary"

// Key layout for the journal keyspace.
const (
	prefixEntry = "q/wal/e/"
	keyMeta     = "q/wal/meta"
	keySnapshot = "q/wal/snap"
)

// KeyEntry returns the key for the journal entry with the given sequence.
// Format: q/wal/e/{seq_be8}
func KeyEntry(seq uint64) []byte {
	key := make([]byte, len(prefixEntry)+8)
	copy(key, prefixEntry)
	binary.BigEndian.PutUint64(key[len(prefixEntry):], seq)
	return key
}

// KeyMeta returns the metadata key holding the last assigned sequence.
func KeyMeta() []byte { return []byte(keyMeta) }

// KeySnapshot returns the key holding the latest snapshot.
func KeySnapshot() []byte { return []byte(keySnapshot) }

// EntryBounds returns the [low, high) key range covering all journal entries.
func EntryBounds() (low, hi []byte) {
	return KeyEntry(0), append(KeyEntry(^uint64(0)), 0x00)
}

// SeqFromEntryKey extracts the sequence from an entry key.
func SeqFromEntryKey(key []byte) uint64 {
	if len(key) < len(prefixEntry)+8 {
		return 0
	}
	return binary.BigEndian.Uint64(key[len(key)-8:])
}
