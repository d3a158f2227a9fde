// Package errormodel defines the error kinds used throughout the
// coordinator and its remote-call boundary. Errors carry the
// originating device name whenever one is known, so a caller never
// has to guess which device in a fleet failed.
package errormodel

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one of the fixed error kinds of spec.md §4.6/§7.
type Kind string

const (
	KindSyncFailed         Kind = "SyncFailed"
	KindDuplicateDevice    Kind = "DuplicateDevice"
	KindDeviceUnreachable  Kind = "DeviceUnreachable"
	KindSyncUnsupported    Kind = "SyncUnsupported"
	KindTxClippingRejected Kind = "TxClippingRejected"
	KindRxClippingDetected Kind = "RxClippingDetected"
	KindNotConfigured      Kind = "NotConfigured"
	KindShapeError         Kind = "ShapeError"
	KindLengthMismatch     Kind = "LengthMismatch"
)

// KindError is a distinct, fixed-kind failure not tied to a specific
// device (e.g. DuplicateDevice, ShapeError).
type KindError struct {
	Kind    Kind
	Message string
}

// ErrorKind lets the wire dispatcher tag an ErrorPayload with the
// failure's kind without internal/wire importing internal/errormodel.
func (e *KindError) ErrorKind() string { return string(e.Kind) }

func (e *KindError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// New builds a KindError.
func New(kind Kind, format string, args ...any) *KindError {
	return &KindError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// PerDeviceError wraps any remote or local failure with the
// originating device's name, per spec.md §4.6.
type PerDeviceError struct {
	DeviceName string
	Message    string
	Cause      error
}

func (e *PerDeviceError) Error() string {
	return fmt.Sprintf("usrp %s: %s", e.DeviceName, e.Message)
}

func (e *PerDeviceError) Unwrap() error { return e.Cause }

// NewPerDevice wraps cause with the device's identity.
func NewPerDevice(deviceName string, cause error) *PerDeviceError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &PerDeviceError{DeviceName: deviceName, Message: msg, Cause: cause}
}

// AggregatedError is produced by fan-out operations (execute, collect)
// when at least one device failed. It preserves iteration order.
type AggregatedError struct {
	Errors []*PerDeviceError
}

func (e *AggregatedError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, pe.Error())
	}
	return strings.Join(parts, "\n")
}

// NewAggregated returns nil if errs is empty, so call sites can do
// `if err := NewAggregated(errs); err != nil { return err }` without a
// separate length check.
func NewAggregated(errs []*PerDeviceError) error {
	if len(errs) == 0 {
		return nil
	}
	return &AggregatedError{Errors: errs}
}

// As is a thin re-export of errors.As for callers that only import
// this package.
func As(err error, target any) bool { return errors.As(err, target) }

// KindOf reports the Kind of err if it is a *KindError, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind, true
	}
	return "", false
}
