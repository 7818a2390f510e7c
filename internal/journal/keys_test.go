package journal

import (
	"bytes"
	"testing"
)

func TestEntryKeysSortBySeq(t *testing.T) {
	prev := KeyEntry(0)
	for _, seq := range []uint64{1, 2, 255, 256, 1 << 32, ^uint64(0)} {
		k := KeyEntry(seq)
		if bytes.Compare(prev, k) >= 0 {
			t.Fatalf("keys not strictly increasing at seq %d", seq)
		}
		if got := SeqFromEntryKey(k); got != seq {
			t.Fatalf("round trip seq: got %d want %d", got, seq)
		}
		prev = k
	}
}

func TestEntryBoundsCoverAllEntries(t *testing.T) {
	low, hi := EntryBounds()
	for _, seq := range []uint64{0, 1, ^uint64(0)} {
		k := KeyEntry(seq)
		if bytes.Compare(k, low) < 0 || bytes.Compare(k, hi) >= 0 {
			t.Fatalf("entry %d outside bounds", seq)
		}
	}
	if bytes.Compare([]byte(keyMeta), low) >= 0 && bytes.Compare([]byte(keyMeta), hi) < 0 {
		t.Fatalf("meta key inside entry bounds")
	}
}
