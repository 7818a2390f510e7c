// Package journal implements the write-ahead journal for the task queue.
//
// # Overview
//
// Every task state transition is appended as one durable record before the
// corresponding in-memory mutation becomes visible. On startup the queue
// replays the journal to reconstruct its state. Records live in Pebble under
// a dedicated keyspace:
//
//	q/wal/e/{seq_be8}  journal entries, strictly increasing sequence
//	q/wal/meta         last assigned sequence (8B BE)
//	q/wal/snap         latest snapshot (covered seq + live task set)
//
// Records are framed as: varint(headerLen) | header | payload |
// crc32c(header|payload), where the header carries the op byte and a
// millisecond timestamp and the payload is op-specific JSON. The CRC makes a
// torn or corrupted trailing record detectable: replay stops at the first
// record that fails verification, deletes it and everything after it, and
// startup proceeds with the prefix.
//
// # Compaction
//
// WriteSnapshot persists the live task set together with the sequence it
// covers and deletes all entries at or below that sequence in the same
// atomic batch. Replay loads the snapshot first and then applies the
// remaining entries; a compaction point never changes replay semantics.
package journal
