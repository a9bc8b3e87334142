package utils

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestWmacError_Format(t *testing.T) {
	err := NewWmacError(ErrInvalidTID, "bad tid", nil)
	if !strings.Contains(err.Error(), ErrInvalidTID) {
		t.Errorf("Error string should contain the code: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "bad tid") {
		t.Errorf("Error string should contain the message: %q", err.Error())
	}
}

func TestWmacError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewWmacError(ErrAllocationFailed, "wrapped", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !IsWmacError(wrapped, ErrAllocationFailed) {
		t.Error("IsWmacError should unwrap nested errors")
	}
}

func TestIsWmacError(t *testing.T) {
	err := NewCapacityExceededError(3, 64, 64, 1000, 65535)
	if !IsWmacError(err, ErrCapacityExceeded) {
		t.Error("Expected match on the capacity code")
	}
	if IsWmacError(err, ErrOutOfWindow) {
		t.Error("Codes must not cross-match")
	}
	if IsWmacError(nil, ErrCapacityExceeded) {
		t.Error("nil is not a coded error")
	}
	if IsWmacError(errors.New("plain"), ErrCapacityExceeded) {
		t.Error("Plain errors are not coded errors")
	}
}

func TestErrorConstructors_CarryContext(t *testing.T) {
	tests := []struct {
		err      error
		code     string
		contains []string
	}{
		{NewCapacityExceededError(3, 64, 64, 1000, 65535), ErrCapacityExceeded, []string{"TID 3", "64/64"}},
		{NewOutOfWindowError(100, 200, 64), ErrOutOfWindow, []string{"100", "200"}},
		{NewDuplicateFrameError(42), ErrDuplicateFrame, []string{"42"}},
		{NewInvalidStateError("admit", "SUSPENDED"), ErrInvalidState, []string{"admit", "SUSPENDED"}},
		{NewSessionExistsError(1, "peer-a"), ErrSessionExists, []string{"peer-a"}},
		{NewSessionNotFoundError(1, "peer-a"), ErrSessionNotFound, []string{"peer-a"}},
		{NewInvalidTIDError(9), ErrInvalidTID, []string{"9"}},
		{NewEngineClosedError(), ErrEngineClosed, nil},
		{NewConfigurationInvalidError("reorder.window_size", 0), ErrConfigurationInvalid, []string{"reorder.window_size"}},
	}

	for _, tt := range tests {
		if !IsWmacError(tt.err, tt.code) {
			t.Errorf("Expected code %s, got %v", tt.code, tt.err)
		}
		for _, fragment := range tt.contains {
			if !strings.Contains(tt.err.Error(), fragment) {
				t.Errorf("Error %q should mention %q", tt.err.Error(), fragment)
			}
		}
	}
}
