package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/NanzeRT/queues-demo/internal/storage/pebble"
)

// Journal is the append-only durable log of task state transitions.
type Journal struct {
	db *pebblestore.DB

	mu      sync.Mutex
	lastSeq uint64
}

// Open initializes a Journal and restores lastSeq from metadata if present.
func Open(db *pebblestore.DB) (*Journal, error) {
	j := &Journal{db: db}
	meta, err := db.Get(KeyMeta())
	if err == nil && len(meta) >= 8 {
		j.lastSeq = binary.BigEndian.Uint64(meta[:8])
	} else if err != nil && !pebblestore.IsNotFound(err) {
		return nil, fmt.Errorf("journal: read meta: %w", err)
	}
	return j, nil
}

// LastSeq returns the last assigned sequence number.
func (j *Journal) LastSeq() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastSeq
}

// Append durably writes one record and returns its sequence. The commit
// (including WAL fsync under FsyncModeAlways) completes before Append
// returns; callers hold their own serialization lock across the call so the
// in-memory transition only becomes visible after the record is durable.
func (j *Journal) Append(ctx context.Context, rec Record) (uint64, error) {
	if rec.AtMs == 0 {
		rec.AtMs = time.Now().UnixMilli()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	b := j.db.NewBatch()
	defer b.Close()

	seq := j.lastSeq + 1
	if err := b.Set(KeyEntry(seq), EncodeRecord(rec), nil); err != nil {
		return 0, err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], seq)
	if err := b.Set(KeyMeta(), meta[:], nil); err != nil {
		return 0, err
	}
	if err := j.db.CommitBatch(ctx, b); err != nil {
		return 0, fmt.Errorf("journal: append: %w", err)
	}
	j.lastSeq = seq
	return seq, nil
}

// TaskState is one live task inside a snapshot. Pending tasks appear in FIFO
// order before leased tasks.
type TaskState struct {
	ID           string `json:"id"`
	SubmissionID string `json:"submission_id"`
	Leased       bool   `json:"leased,omitempty"`
	CreatedAtMs  int64  `json:"created_at_ms"`
	DeadlineMs   int64  `json:"deadline_ms,omitempty"`
	// DeliveryID is the handle of the active lease, set when Leased.
	DeliveryID string `json:"delivery_id,omitempty"`
}

// Snapshot captures the full live state at a journal sequence.
type Snapshot struct {
	Seq   uint64      `json:"seq"`
	Tasks []TaskState `json:"tasks"`
}

// Replay first hands the latest snapshot (if any) to onSnapshot, then
// invokes onRecord for every journal record after it, in sequence order. It
// returns the number of trailing records discarded because they failed
// verification. A torn final write from a crash is expected and recovered
// from, not an error.
func (j *Journal) Replay(ctx context.Context, onSnapshot func(*Snapshot) error, onRecord func(seq uint64, rec Record) error) (int, error) {
	snap, err := j.readSnapshot()
	if err != nil {
		return 0, err
	}
	var fromSeq uint64
	if snap != nil {
		fromSeq = snap.Seq
		if onSnapshot != nil {
			if err := onSnapshot(snap); err != nil {
				return 0, err
			}
		}
	}

	low, hi := EntryBounds()
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, fmt.Errorf("journal: iterate: %w", err)
	}
	defer iter.Close()

	var maxSeq uint64
	var truncateFrom uint64
	truncated := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		seq := SeqFromEntryKey(iter.Key())
		if seq <= fromSeq {
			continue
		}
		if truncated > 0 {
			// Everything after the first bad record is discarded too.
			truncated++
			continue
		}
		rec, okDec := DecodeRecord(iter.Value())
		if !okDec {
			truncateFrom = seq
			truncated = 1
			continue
		}
		if err := onRecord(seq, rec); err != nil {
			return 0, err
		}
		maxSeq = seq
	}

	j.mu.Lock()
	if maxSeq > j.lastSeq {
		// Meta write was lost; trust the entries.
		j.lastSeq = maxSeq
	}
	if truncated > 0 && truncateFrom <= j.lastSeq {
		j.lastSeq = truncateFrom - 1
	}
	j.mu.Unlock()

	if truncated > 0 {
		if err := j.truncateTail(ctx, truncateFrom); err != nil {
			return truncated, err
		}
	}
	return truncated, nil
}

// truncateTail removes entries with seq >= from and rewrites meta.
func (j *Journal) truncateTail(ctx context.Context, from uint64) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	b := j.db.NewBatch()
	defer b.Close()
	_, hi := EntryBounds()
	if err := b.DeleteRange(KeyEntry(from), hi, nil); err != nil {
		return err
	}
	var meta [8]byte
	binary.BigEndian.PutUint64(meta[:], j.lastSeq)
	if err := b.Set(KeyMeta(), meta[:], nil); err != nil {
		return err
	}
	return j.db.CommitBatch(ctx, b)
}

// WriteSnapshot persists the snapshot at the current lastSeq and deletes all
// entries it covers in the same atomic batch. The caller supplies the live
// task set; Seq is filled in here.
func (j *Journal) WriteSnapshot(ctx context.Context, snap Snapshot) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	snap.Seq = j.lastSeq
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("journal: encode snapshot: %w", err)
	}
	var header [9]byte
	header[0] = byte(opSnapshot)
	binary.BigEndian.PutUint64(header[1:], uint64(time.Now().UnixMilli()))

	b := j.db.NewBatch()
	defer b.Close()
	if err := b.Set(KeySnapshot(), encodeFrame(header[:], payload), nil); err != nil {
		return err
	}
	if err := b.DeleteRange(KeyEntry(0), KeyEntry(snap.Seq+1), nil); err != nil {
		return err
	}
	if err := j.db.CommitBatch(ctx, b); err != nil {
		return fmt.Errorf("journal: write snapshot: %w", err)
	}
	return nil
}

func (j *Journal) readSnapshot() (*Snapshot, error) {
	val, err := j.db.Get(KeySnapshot())
	if err != nil {
		if pebblestore.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: read snapshot: %w", err)
	}
	header, payload, ok := decodeFrame(val)
	if !ok || len(header) != 9 || Op(header[0]) != opSnapshot {
		return nil, ErrCorruptSnapshot
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, ErrCorruptSnapshot
	}
	return &snap, nil
}

// EntryCount scans and counts live journal entries. Intended for tests and
// introspection, not hot paths.
func (j *Journal) EntryCount() (int, error) {
	low, hi := EntryBounds()
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: low, UpperBound: hi})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for ok := iter.First(); ok; ok = iter.Next() {
		n++
	}
	return n, nil
}
