package journal

import (
	"context"
	"testing"

	pebblestore "github.com/NanzeRT/queues-demo/internal/storage/pebble"
	"github.com/NanzeRT/queues-demo/pkg/id"
)

func openTestJournal(t *testing.T) (*Journal, *pebblestore.DB) {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	j, err := Open(db)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	return j, db
}

func TestAppendAssignsIncreasingSeqs(t *testing.T) {
	j, _ := openTestJournal(t)
	ctx := context.Background()
	gen := id.NewGenerator()

	s1, err := j.Append(ctx, Record{Op: OpTaskAdded, Task: gen.Next(), SubmissionID: "a"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	s2, err := j.Append(ctx, Record{Op: OpTaskAdded, Task: gen.Next(), SubmissionID: "b"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if s2 != s1+1 {
		t.Fatalf("want consecutive seqs, got %d then %d", s1, s2)
	}
	if j.LastSeq() != s2 {
		t.Fatalf("lastSeq %d want %d", j.LastSeq(), s2)
	}
}

func TestReplayAppliesInOrder(t *testing.T) {
	j, db := openTestJournal(t)
	ctx := context.Background()
	gen := id.NewGenerator()
	taskID := gen.Next()

	_, _ = j.Append(ctx, Record{Op: OpTaskAdded, Task: taskID, SubmissionID: "a"})
	_, _ = j.Append(ctx, Record{Op: OpTaskLeased, Task: taskID, DeadlineMs: 500})
	_, _ = j.Append(ctx, Record{Op: OpTaskCompleted, Task: taskID})

	// Fresh journal over the same db, as after restart.
	j2, err := Open(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var ops []Op
	sawSnapshot := false
	truncated, err := j2.Replay(ctx,
		func(*Snapshot) error { sawSnapshot = true; return nil },
		func(seq uint64, rec Record) error {
			ops = append(ops, rec.Op)
			return nil
		})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if sawSnapshot || truncated != 0 {
		t.Fatalf("unexpected snapshot/truncation: %v %d", sawSnapshot, truncated)
	}
	want := []Op{OpTaskAdded, OpTaskLeased, OpTaskCompleted}
	if len(ops) != len(want) {
		t.Fatalf("got %d records want %d", len(ops), len(want))
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("record %d: got %v want %v", i, ops[i], want[i])
		}
	}
}

func TestReplayDiscardsTornTrailingRecord(t *testing.T) {
	j, db := openTestJournal(t)
	ctx := context.Background()
	gen := id.NewGenerator()

	s1, _ := j.Append(ctx, Record{Op: OpTaskAdded, Task: gen.Next(), SubmissionID: "good"})
	s2, _ := j.Append(ctx, Record{Op: OpTaskAdded, Task: gen.Next(), SubmissionID: "torn"})

	// Simulate a crash mid-write: overwrite the last entry with a prefix of
	// its bytes.
	raw, err := db.Get(KeyEntry(s2))
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if err := db.Set(KeyEntry(s2), raw[:len(raw)/2]); err != nil {
		t.Fatalf("truncate entry: %v", err)
	}

	j2, err := Open(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var seen []string
	truncated, err := j2.Replay(ctx, nil, func(seq uint64, rec Record) error {
		seen = append(seen, rec.SubmissionID)
		return nil
	})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if truncated != 1 {
		t.Fatalf("want 1 truncated record, got %d", truncated)
	}
	if len(seen) != 1 || seen[0] != "good" {
		t.Fatalf("want only the intact record, got %v", seen)
	}
	if j2.LastSeq() != s1 {
		t.Fatalf("lastSeq %d want %d after truncation", j2.LastSeq(), s1)
	}

	// The torn entry must be gone so the next append reuses a clean tail.
	if n, _ := j2.EntryCount(); n != 1 {
		t.Fatalf("want 1 entry after truncation, got %d", n)
	}
	s3, err := j2.Append(ctx, Record{Op: OpTaskAdded, Task: gen.Next(), SubmissionID: "next"})
	if err != nil {
		t.Fatalf("append after truncation: %v", err)
	}
	if s3 != s1+1 {
		t.Fatalf("want seq %d after truncation, got %d", s1+1, s3)
	}
}

func TestSnapshotCompaction(t *testing.T) {
	j, db := openTestJournal(t)
	ctx := context.Background()
	gen := id.NewGenerator()
	live := gen.Next()

	done := gen.Next()
	_, _ = j.Append(ctx, Record{Op: OpTaskAdded, Task: done, SubmissionID: "done"})
	_, _ = j.Append(ctx, Record{Op: OpTaskCompleted, Task: done})
	_, _ = j.Append(ctx, Record{Op: OpTaskAdded, Task: live, SubmissionID: "live"})

	snap := Snapshot{Tasks: []TaskState{{
		ID:           live.String(),
		SubmissionID: "live",
		CreatedAtMs:  1000,
	}}}
	if err := j.WriteSnapshot(ctx, snap); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if n, _ := j.EntryCount(); n != 0 {
		t.Fatalf("want 0 entries after compaction, got %d", n)
	}

	// Post-snapshot records replay on top of the snapshot.
	_, _ = j.Append(ctx, Record{Op: OpTaskLeased, Task: live, DeadlineMs: 999})

	j2, err := Open(db)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	var ops []Op
	var got *Snapshot
	truncated, err := j2.Replay(ctx,
		func(s *Snapshot) error { got = s; return nil },
		func(seq uint64, rec Record) error {
			ops = append(ops, rec.Op)
			return nil
		})
	if err != nil || truncated != 0 {
		t.Fatalf("replay: %v %d", err, truncated)
	}
	if got == nil || len(got.Tasks) != 1 || got.Tasks[0].SubmissionID != "live" {
		t.Fatalf("snapshot not restored: %+v", got)
	}
	if len(ops) != 1 || ops[0] != OpTaskLeased {
		t.Fatalf("want only post-snapshot lease record, got %v", ops)
	}
}
