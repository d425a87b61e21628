package licensing

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code returned to callers.
type Code string

const (
	// CodeInvalidInput indicates a malformed or missing request field.
	CodeInvalidInput Code = "INVALID_INPUT"
	// CodeLicenseNotFound indicates no license exists for the given key.
	CodeLicenseNotFound Code = "LICENSE_NOT_FOUND"
	// CodeLicenseInvalidStatus indicates the license is revoked or suspended.
	CodeLicenseInvalidStatus Code = "LICENSE_INVALID_STATUS"
	// CodeDeviceAlreadyRegistered indicates the device is bound to a different license.
	CodeDeviceAlreadyRegistered Code = "DEVICE_ALREADY_REGISTERED"
	// CodeDeviceNotFound indicates no device exists for the given device ID.
	CodeDeviceNotFound Code = "DEVICE_NOT_FOUND"
	// CodeInvalidReason indicates an unrecognized backup reason.
	CodeInvalidReason Code = "INVALID_REASON"
	// CodeBackupNotFound indicates no backup exists for the given ID.
	CodeBackupNotFound Code = "BACKUP_NOT_FOUND"
	// CodeInvalidSnapshot indicates a backup payload that does not decode.
	CodeInvalidSnapshot Code = "INVALID_SNAPSHOT"
	// CodeIncompleteSnapshot indicates a backup payload missing the license or device sub-object.
	CodeIncompleteSnapshot Code = "INCOMPLETE_SNAPSHOT"
	// CodeInternal indicates an unexpected storage or serialization failure.
	CodeInternal Code = "INTERNAL"
)

// Error is a structured service error with a stable code and optional
// diagnostic details.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports code equality so sentinel comparisons via errors.Is work.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// WithDetail returns a copy of the error carrying an extra detail field.
func (e *Error) WithDetail(key string, value any) *Error {
	details := make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &Error{Code: e.Code, Message: e.Message, Details: details}
}

// NewError creates a structured error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinel errors for the core taxonomy. Use errors.Is against these;
// use WithDetail to attach diagnostics.
var (
	ErrInvalidInput            = NewError(CodeInvalidInput, "missing or malformed input")
	ErrLicenseNotFound         = NewError(CodeLicenseNotFound, "license not found")
	ErrLicenseInvalidStatus    = NewError(CodeLicenseInvalidStatus, "license is not activatable in its current status")
	ErrDeviceAlreadyRegistered = NewError(CodeDeviceAlreadyRegistered, "device is already registered to a different license")
	ErrDeviceNotFound          = NewError(CodeDeviceNotFound, "device not found")
	ErrInvalidReason           = NewError(CodeInvalidReason, "invalid backup reason")
	ErrBackupNotFound          = NewError(CodeBackupNotFound, "backup not found")
	ErrInvalidSnapshot         = NewError(CodeInvalidSnapshot, "backup snapshot does not decode")
	ErrIncompleteSnapshot      = NewError(CodeIncompleteSnapshot, "backup snapshot is missing license or device state")
)

// ErrorCode extracts the structured code from an error, defaulting to
// CodeInternal for unexpected failures.
func ErrorCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// ErrorDetails extracts the detail map from an error, or nil.
func ErrorDetails(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Details
	}
	return nil
}
