package data

import "testing"

func TestSeqCompare_Wraparound(t *testing.T) {
	cases := []struct {
		a, b uint16
		sign int
	}{
		{0, 0, 0},
		{10, 10, 0},
		{1, 0, 1},
		{0, 1, -1},
		{0, 4095, 1},    // 0 is one ahead of 4095 across the wrap
		{4095, 0, -1},   // 4095 is one behind 0
		{2047, 0, 1},    // maximum unambiguous forward distance
		{2048, 0, -1},   // past half the space, compares behind
		{100, 4000, 1},  // wrapped ahead
		{4000, 100, -1}, // wrapped behind
	}

	for _, c := range cases {
		got := SeqCompare(c.a, c.b)
		switch {
		case c.sign == 0 && got != 0:
			t.Errorf("SeqCompare(%d, %d) = %d, want 0", c.a, c.b, got)
		case c.sign > 0 && got <= 0:
			t.Errorf("SeqCompare(%d, %d) = %d, want > 0", c.a, c.b, got)
		case c.sign < 0 && got >= 0:
			t.Errorf("SeqCompare(%d, %d) = %d, want < 0", c.a, c.b, got)
		}
	}
}

func TestSeqAdd_Wraparound(t *testing.T) {
	if got := SeqAdd(4095, 1); got != 0 {
		t.Errorf("SeqAdd(4095, 1) = %d, want 0", got)
	}
	if got := SeqAdd(4090, 10); got != 4 {
		t.Errorf("SeqAdd(4090, 10) = %d, want 4", got)
	}
	if got := SeqAdd(5, 1); got != 6 {
		t.Errorf("SeqAdd(5, 1) = %d, want 6", got)
	}
}

func TestSeqDiff_Wraparound(t *testing.T) {
	if got := SeqDiff(2, 4090); got != 8 {
		t.Errorf("SeqDiff(2, 4090) = %d, want 8", got)
	}
	if got := SeqDiff(10, 5); got != 5 {
		t.Errorf("SeqDiff(10, 5) = %d, want 5", got)
	}
	if got := SeqDiff(5, 5); got != 0 {
		t.Errorf("SeqDiff(5, 5) = %d, want 0", got)
	}
}

func TestIsSeqValid(t *testing.T) {
	// Plain window [100, 116)
	if !IsSeqValid(100, 100, 16) {
		t.Error("head itself should be valid")
	}
	if !IsSeqValid(100, 115, 16) {
		t.Error("last slot of the window should be valid")
	}
	if IsSeqValid(100, 116, 16) {
		t.Error("one past the window tail should be invalid")
	}
	if IsSeqValid(100, 99, 16) {
		t.Error("behind the head should be invalid")
	}

	// Window wrapping the sequence space: [4090, 10)
	if !IsSeqValid(4090, 4095, 16) {
		t.Error("pre-wrap slot should be valid")
	}
	if !IsSeqValid(4090, 2, 16) {
		t.Error("post-wrap slot should be valid")
	}
	if IsSeqValid(4090, 10, 16) {
		t.Error("one past a wrapped tail should be invalid")
	}
	if IsSeqValid(4090, 4089, 16) {
		t.Error("behind a wrapped head should be invalid")
	}
}
