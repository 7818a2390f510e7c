// Package id provides 128-bit, lexicographically sortable task identifiers.
//
// # Format
//
// An ID is 16 bytes big-endian: [8 bytes ms_timestamp][8 bytes sequence].
// Byte-wise comparison therefore preserves chronological order, and IDs
// generated within the same millisecond remain strictly increasing by
// sequence. On the wire an ID is a 32-character lowercase hex string.
//
// # Monotonicity
//
// The Generator ensures per-process monotonicity:
//   - If the system clock regresses, it pins to the last seen millisecond and
//     increments the sequence instead of going backwards.
//   - If the sequence would overflow within a millisecond, it waits for the
//     next millisecond before emitting the next ID.
//
// Usage
//
//	g := id.NewGenerator()
//	taskID := g.Next()
//	wire := taskID.String()        // "0000018c…"
//	back, _ := id.Parse(wire)
//	_ = back
package id
