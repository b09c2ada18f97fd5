package replacer

import (
	"testing"

	"storagecore/storage_engine/page"
)

func TestVictimEmpty(t *testing.T) {
	r := New(4)
	if _, ok := r.Victim(); ok {
		t.Fatalf("expected no victim on empty replacer")
	}
}

func TestUnpinThenVictimOrder(t *testing.T) {
	r := New(4)
	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)

	// Victim should return the least recently unpinned frame first: 1, 2, 3.
	for _, want := range []page.FrameID{1, 2, 3} {
		got, ok := r.Victim()
		if !ok {
			t.Fatalf("expected victim, got none")
		}
		if got != want {
			t.Fatalf("victim = %d, want %d", got, want)
		}
	}
	if _, ok := r.Victim(); ok {
		t.Fatalf("expected no victim after draining replacer")
	}
}

func TestPinRemovesFromEviction(t *testing.T) {
	r := New(4)
	r.Unpin(1)
	r.Unpin(2)
	r.Pin(1)

	got, ok := r.Victim()
	if !ok || got != 2 {
		t.Fatalf("victim = %d,%v, want 2,true", got, ok)
	}
	if _, ok := r.Victim(); ok {
		t.Fatalf("expected pinned frame 1 to stay out of the replacer")
	}
}

func TestUnpinIdempotent(t *testing.T) {
	r := New(4)
	r.Unpin(1)
	r.Unpin(1) // second Unpin of the same frame is a no-op
	if got := r.Size(); got != 1 {
		t.Fatalf("size = %d, want 1", got)
	}
}

func TestPinUnknownFrameIsNoop(t *testing.T) {
	r := New(4)
	r.Pin(99) // never unpinned; must not panic or affect state
	if got := r.Size(); got != 0 {
		t.Fatalf("size = %d, want 0", got)
	}
}

func TestSize(t *testing.T) {
	r := New(4)
	if r.Size() != 0 {
		t.Fatalf("expected empty replacer at start")
	}
	r.Unpin(1)
	r.Unpin(2)
	if r.Size() != 2 {
		t.Fatalf("size = %d, want 2", r.Size())
	}
	r.Victim()
	if r.Size() != 1 {
		t.Fatalf("size after one victim = %d, want 1", r.Size())
	}
}
