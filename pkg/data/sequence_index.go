package data

import (
	"github.com/google/btree"

	"wmac/internal/utils"
)

const seqIndexDegree = 4

// SequenceIndex is an ordered container of frame entries keyed by
// 12-bit sequence number under wraparound-aware comparison. The
// container owns the entries it holds; removal and ownership transfer
// are the same operation. It performs no locking of its own -
// concurrency is the caller's responsibility.
type SequenceIndex struct {
	tree *btree.BTreeG[*FrameEntry]
}

// NewSequenceIndex creates an empty sequence index.
func NewSequenceIndex() *SequenceIndex {
	return &SequenceIndex{
		tree: btree.NewG(seqIndexDegree, func(a, b *FrameEntry) bool {
			return SeqCompare(a.SequenceNumber, b.SequenceNumber) < 0
		}),
	}
}

// Insert adds an entry in ordered position. It fails with a
// DuplicateFrame error if the sequence slot is already occupied; the
// caller must remove or reject first.
func (si *SequenceIndex) Insert(entry *FrameEntry) error {
	if _, occupied := si.tree.Get(entry); occupied {
		return utils.NewDuplicateFrameError(entry.SequenceNumber)
	}
	si.tree.ReplaceOrInsert(entry)
	return nil
}

// Find returns the entry with the exact sequence number, if present.
func (si *SequenceIndex) Find(seq uint16) (*FrameEntry, bool) {
	return si.tree.Get(&FrameEntry{SequenceNumber: seq})
}

// Remove detaches and returns the entry with the given sequence
// number, transferring ownership to the caller.
func (si *SequenceIndex) Remove(seq uint16) (*FrameEntry, bool) {
	return si.tree.Delete(&FrameEntry{SequenceNumber: seq})
}

// First returns the entry with the numerically earliest key under
// wraparound ordering without removing it.
func (si *SequenceIndex) First() (*FrameEntry, bool) {
	return si.tree.Min()
}

// PopFirst removes and returns the earliest entry.
func (si *SequenceIndex) PopFirst() (*FrameEntry, bool) {
	return si.tree.DeleteMin()
}

// Len returns the number of live entries.
func (si *SequenceIndex) Len() int {
	return si.tree.Len()
}

// Ascend visits every entry in ascending wraparound order. The
// iterator must not mutate the index.
func (si *SequenceIndex) Ascend(fn func(entry *FrameEntry) bool) {
	si.tree.Ascend(fn)
}

// Drain removes and returns every entry in ascending wraparound
// order, leaving the index empty.
func (si *SequenceIndex) Drain() []*FrameEntry {
	if si.tree.Len() == 0 {
		return nil
	}
	entries := make([]*FrameEntry, 0, si.tree.Len())
	si.tree.Ascend(func(entry *FrameEntry) bool {
		entries = append(entries, entry)
		return true
	})
	si.tree.Clear(false)
	return entries
}
