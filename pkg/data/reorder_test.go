package data

import (
	"testing"
	"time"

	"wmac/internal/utils"
)

func newTestReorderContext(ssn, window uint16, timeout time.Duration) *ReorderContext {
	rc := NewReorderContext(2, nil)
	rc.Configure(ssn, window, timeout)
	return rc
}

func admitFrame(t *testing.T, rc *ReorderContext, seq uint16) {
	t.Helper()
	entry, err := NewFrameEntry(2, 0, seq, []byte("payload"))
	if err != nil {
		t.Fatalf("Failed to create entry: %v", err)
	}
	if _, err := rc.Admit(entry); err != nil {
		t.Fatalf("Failed to admit seq %d: %v", seq, err)
	}
}

func drainSeqs(rc *ReorderContext) []uint16 {
	entries := rc.DrainReady()
	seqs := make([]uint16, 0, len(entries))
	for _, entry := range entries {
		seqs = append(seqs, entry.SequenceNumber)
	}
	return seqs
}

func TestReorderContext_GapFillScenario(t *testing.T) {
	rc := newTestReorderContext(5, 16, time.Second)

	admitFrame(t, rc, 5)
	if released := rc.TryAdvance(); released != 1 {
		t.Fatalf("Expected 1 released after in-order admit, got %d", released)
	}
	if got := drainSeqs(rc); len(got) != 1 || got[0] != 5 {
		t.Fatalf("Expected drained {5}, got %v", got)
	}
	if rc.HeadSeq() != 6 {
		t.Errorf("Expected head 6, got %d", rc.HeadSeq())
	}

	admitFrame(t, rc, 7)
	if released := rc.TryAdvance(); released != 0 {
		t.Fatalf("Expected nothing released across the gap at 6, got %d", released)
	}

	admitFrame(t, rc, 6)
	if released := rc.TryAdvance(); released != 2 {
		t.Fatalf("Expected {6,7} released after the gap filled, got %d", released)
	}
	if got := drainSeqs(rc); len(got) != 2 || got[0] != 6 || got[1] != 7 {
		t.Fatalf("Expected drained {6,7}, got %v", got)
	}
	if rc.HeadSeq() != 8 {
		t.Errorf("Expected head 8, got %d", rc.HeadSeq())
	}
}

func TestReorderContext_WindowRejection(t *testing.T) {
	rc := newTestReorderContext(100, 16, time.Second)

	// Behind the head: stale retransmission or already delivered.
	entry, _ := NewFrameEntry(2, 0, 99, []byte("x"))
	if _, err := rc.Admit(entry); !utils.IsWmacError(err, utils.ErrOutOfWindow) {
		t.Errorf("Expected out-of-window behind head, got %v", err)
	}

	// At the window tail and beyond.
	entry, _ = NewFrameEntry(2, 0, 116, []byte("x"))
	if _, err := rc.Admit(entry); !utils.IsWmacError(err, utils.ErrOutOfWindow) {
		t.Errorf("Expected out-of-window past tail, got %v", err)
	}

	stats := rc.GetStats()
	if stats.OutOfWindowDrops != 2 {
		t.Errorf("Expected 2 counted out-of-window drops, got %d", stats.OutOfWindowDrops)
	}
}

func TestReorderContext_DuplicateRejection(t *testing.T) {
	rc := newTestReorderContext(0, 16, time.Second)

	admitFrame(t, rc, 3)

	entry, _ := NewFrameEntry(2, 0, 3, []byte("retry"))
	if _, err := rc.Admit(entry); !utils.IsWmacError(err, utils.ErrDuplicateFrame) {
		t.Errorf("Expected duplicate rejection, got %v", err)
	}

	stats := rc.GetStats()
	if stats.DuplicateDrops != 1 {
		t.Errorf("Expected 1 counted duplicate drop, got %d", stats.DuplicateDrops)
	}
}

func TestReorderContext_TimeoutBoundsLatency(t *testing.T) {
	timeout := 20 * time.Millisecond
	rc := newTestReorderContext(5, 16, timeout)

	// Gap at 5 never fills; 6 and 7 must not wait forever.
	admitFrame(t, rc, 6)
	admitFrame(t, rc, 7)

	if flushed, _ := rc.FlushExpired(time.Now()); flushed != 0 {
		t.Fatalf("Expected nothing flushed before timeout, got %d", flushed)
	}

	flushed, rearm := rc.FlushExpired(time.Now().Add(2 * timeout))
	if flushed != 2 {
		t.Fatalf("Expected both frames forced out, got %d", flushed)
	}
	if rearm {
		t.Error("Expected timer disarm with the buffer empty")
	}

	if got := drainSeqs(rc); len(got) != 2 || got[0] != 6 || got[1] != 7 {
		t.Fatalf("Expected drained {6,7}, got %v", got)
	}
	// Head has skipped the lost slot for good.
	if rc.HeadSeq() != 8 {
		t.Errorf("Expected head 8 after skipping seq 5, got %d", rc.HeadSeq())
	}

	// The skipped sequence number is now filtered as stale.
	entry, _ := NewFrameEntry(2, 0, 5, []byte("late"))
	if _, err := rc.Admit(entry); !utils.IsWmacError(err, utils.ErrOutOfWindow) {
		t.Errorf("Expected late frame for skipped slot to be rejected, got %v", err)
	}
}

func TestReorderContext_TimeoutUnblocksInOrderSuccessors(t *testing.T) {
	timeout := 20 * time.Millisecond
	rc := newTestReorderContext(0, 16, timeout)

	// 1 expires; 2 and 3 are contiguous behind it and ride out with
	// the forced advance even though they are not expired themselves.
	admitFrame(t, rc, 1)
	admitFrame(t, rc, 2)
	admitFrame(t, rc, 3)

	flushed, _ := rc.FlushExpired(time.Now().Add(2 * timeout))
	if flushed != 3 {
		t.Fatalf("Expected 3 released, got %d", flushed)
	}
	if got := drainSeqs(rc); len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("Expected drained {1,2,3}, got %v", got)
	}
	if rc.HeadSeq() != 4 {
		t.Errorf("Expected head 4, got %d", rc.HeadSeq())
	}
}

func TestReorderContext_WraparoundDelivery(t *testing.T) {
	rc := newTestReorderContext(4094, 8, time.Second)

	admitFrame(t, rc, 4095)
	admitFrame(t, rc, 0)
	admitFrame(t, rc, 1)
	if released := rc.TryAdvance(); released != 0 {
		t.Fatalf("Expected gap at 4094 to block delivery, got %d", released)
	}

	admitFrame(t, rc, 4094)
	if released := rc.TryAdvance(); released != 4 {
		t.Fatalf("Expected 4 released across the wrap, got %d", released)
	}

	got := drainSeqs(rc)
	want := []uint16{4094, 4095, 0, 1}
	if len(got) != len(want) {
		t.Fatalf("Expected %d drained, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Drain position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
	if rc.HeadSeq() != 2 {
		t.Errorf("Expected head 2 after the wrap, got %d", rc.HeadSeq())
	}
}

func TestReorderContext_NoDuplicateDrains(t *testing.T) {
	rc := newTestReorderContext(0, 64, time.Second)

	var delivered []uint16
	for _, seq := range []uint16{2, 0, 1, 4, 3} {
		admitFrame(t, rc, seq)
		rc.TryAdvance()
		delivered = append(delivered, drainSeqs(rc)...)
	}

	seen := make(map[uint16]bool)
	last := -1
	for _, seq := range delivered {
		if seen[seq] {
			t.Errorf("Sequence %d drained twice", seq)
		}
		seen[seq] = true
		if int(seq) < last {
			t.Errorf("Out-of-order drain: %d after %d", seq, last)
		}
		last = int(seq)
	}
	if len(delivered) != 5 {
		t.Errorf("Expected 5 delivered frames, got %d", len(delivered))
	}
}

func TestReorderContext_InactiveRejectsAdmit(t *testing.T) {
	rc := NewReorderContext(2, nil)

	entry, _ := NewFrameEntry(2, 0, 0, []byte("x"))
	if _, err := rc.Admit(entry); !utils.IsWmacError(err, utils.ErrInvalidState) {
		t.Errorf("Expected admit on unconfigured context to fail, got %v", err)
	}
}

func TestReorderContext_DeactivateFlushesInOrder(t *testing.T) {
	rc := newTestReorderContext(10, 16, time.Second)

	admitFrame(t, rc, 12)
	admitFrame(t, rc, 10)
	admitFrame(t, rc, 14)

	if flushed := rc.Deactivate(); flushed != 3 {
		t.Fatalf("Expected 3 flushed on deactivate, got %d", flushed)
	}

	got := drainSeqs(rc)
	want := []uint16{10, 12, 14}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Flush position %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	entry, _ := NewFrameEntry(2, 0, 15, []byte("x"))
	if _, err := rc.Admit(entry); !utils.IsWmacError(err, utils.ErrInvalidState) {
		t.Errorf("Expected admit after deactivate to fail, got %v", err)
	}
}

func TestReorderContext_TailTracksHighestAdmitted(t *testing.T) {
	rc := newTestReorderContext(0, 64, time.Second)

	admitFrame(t, rc, 5)
	admitFrame(t, rc, 30)
	admitFrame(t, rc, 12)

	if rc.TailSeq() != 30 {
		t.Errorf("Expected tail 30, got %d", rc.TailSeq())
	}
}
