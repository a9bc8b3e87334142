package session

// WindowBitmap tracks admitted-but-undelivered sequence slots for a
// block-ack session. Capacity is fixed at construction time and sized
// to the maximum negotiated window, so callers size it per deployment
// instead of recompiling a global constant. Slots are indexed by
// sequence number modulo capacity, which is unambiguous while the live
// window never exceeds the capacity.
type WindowBitmap struct {
	bits     []uint64
	capacity uint16
	count    int
}

// NewWindowBitmap creates a bitmap with the given slot capacity.
func NewWindowBitmap(capacity uint16) *WindowBitmap {
	if capacity == 0 {
		capacity = 1
	}
	words := (int(capacity) + 63) / 64
	return &WindowBitmap{
		bits:     make([]uint64, words),
		capacity: capacity,
	}
}

func (wb *WindowBitmap) slot(seq uint16) (int, uint64) {
	idx := int(seq % wb.capacity)
	return idx / 64, 1 << uint(idx%64)
}

// Set marks the slot for seq as occupied.
func (wb *WindowBitmap) Set(seq uint16) {
	word, mask := wb.slot(seq)
	if wb.bits[word]&mask == 0 {
		wb.bits[word] |= mask
		wb.count++
	}
}

// Clear marks the slot for seq as free.
func (wb *WindowBitmap) Clear(seq uint16) {
	word, mask := wb.slot(seq)
	if wb.bits[word]&mask != 0 {
		wb.bits[word] &^= mask
		wb.count--
	}
}

// IsSet reports whether the slot for seq is occupied.
func (wb *WindowBitmap) IsSet(seq uint16) bool {
	word, mask := wb.slot(seq)
	return wb.bits[word]&mask != 0
}

// Count returns the number of occupied slots.
func (wb *WindowBitmap) Count() int {
	return wb.count
}

// Capacity returns the slot capacity.
func (wb *WindowBitmap) Capacity() uint16 {
	return wb.capacity
}

// Reset frees every slot.
func (wb *WindowBitmap) Reset() {
	for i := range wb.bits {
		wb.bits[i] = 0
	}
	wb.count = 0
}
