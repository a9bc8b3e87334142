package data

// DataLogger interface to avoid circular imports
type DataLogger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Transmitter is the external collaborator that puts an outbound frame
// on the air. Called once per entry drained from an
// AggregationContext, never while a context lock is held.
type Transmitter interface {
	Transmit(tid uint8, linkID uint8, frame []byte) error
}

// Deliverer is the external collaborator that receives in-order
// inbound frames. Called once per entry drained from a ReorderContext,
// in sequence order, never while a context lock is held.
type Deliverer interface {
	Deliver(tid uint8, linkID uint8, frame []byte)
}
