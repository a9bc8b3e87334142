package utils

import (
	"errors"
	"fmt"
)

// WMAC error codes - Aggregation path
const (
	ErrCapacityExceeded = "WMAC_CAPACITY_EXCEEDED"
	ErrAllocationFailed = "WMAC_ALLOCATION_FAILED"
)

// WMAC error codes - Reorder path
const (
	ErrOutOfWindow    = "WMAC_OUT_OF_WINDOW"
	ErrDuplicateFrame = "WMAC_DUPLICATE_FRAME"
)

// WMAC error codes - Session management
const (
	ErrInvalidState    = "WMAC_INVALID_STATE"
	ErrSessionExists   = "WMAC_SESSION_EXISTS"
	ErrSessionNotFound = "WMAC_SESSION_NOT_FOUND"
)

// WMAC error codes - System level
const (
	ErrInvalidTID           = "WMAC_INVALID_TID"
	ErrEngineClosed         = "WMAC_ENGINE_CLOSED"
	ErrConfigurationInvalid = "WMAC_CONFIG_INVALID"
)

// WmacError represents a WMAC-specific error
type WmacError struct {
	Code    string
	Message string
	Cause   error
}

func (e *WmacError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *WmacError) Unwrap() error {
	return e.Cause
}

// NewWmacError creates a new WMAC error
func NewWmacError(code, message string, cause error) *WmacError {
	return &WmacError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsWmacError checks if an error is a WMAC error with specific code
func IsWmacError(err error, code string) bool {
	var wmacErr *WmacError
	if errors.As(err, &wmacErr) {
		return wmacErr.Code == code
	}
	return false
}

// Common error constructors

func NewCapacityExceededError(tid uint8, frames, maxFrames, bytes, maxBytes int) error {
	return NewWmacError(ErrCapacityExceeded,
		fmt.Sprintf("aggregation capacity exceeded on TID %d: %d/%d frames, %d/%d bytes",
			tid, frames, maxFrames, bytes, maxBytes), nil)
}

func NewAllocationFailedError(reason string) error {
	return NewWmacError(ErrAllocationFailed, reason, nil)
}

func NewOutOfWindowError(seq, head, window uint16) error {
	return NewWmacError(ErrOutOfWindow,
		fmt.Sprintf("sequence %d outside window [%d, %d)", seq, head, (head+window)%SeqModulus), nil)
}

func NewDuplicateFrameError(seq uint16) error {
	return NewWmacError(ErrDuplicateFrame,
		fmt.Sprintf("sequence slot %d already occupied", seq), nil)
}

func NewInvalidStateError(operation, state string) error {
	return NewWmacError(ErrInvalidState,
		fmt.Sprintf("operation %s not permitted in state %s", operation, state), nil)
}

func NewSessionExistsError(tid uint8, peer string) error {
	return NewWmacError(ErrSessionExists,
		fmt.Sprintf("block-ack session already exists for TID %d peer %s", tid, peer), nil)
}

func NewSessionNotFoundError(tid uint8, peer string) error {
	return NewWmacError(ErrSessionNotFound,
		fmt.Sprintf("no block-ack session for TID %d peer %s", tid, peer), nil)
}

func NewInvalidTIDError(tid uint8) error {
	return NewWmacError(ErrInvalidTID,
		fmt.Sprintf("TID %d outside valid range 0-%d", tid, NumTIDs-1), nil)
}

func NewEngineClosedError() error {
	return NewWmacError(ErrEngineClosed, "engine is stopped", nil)
}

func NewConfigurationInvalidError(field string, value interface{}) error {
	return NewWmacError(ErrConfigurationInvalid,
		fmt.Sprintf("invalid configuration for %s: %v", field, value), nil)
}
