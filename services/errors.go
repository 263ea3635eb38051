package services

import (
	"errors"
	"fmt"
)

// ErrNotFound signals that a requested document does not exist. Lookups
// return it as a normal result; update/delete return it when the target
// vanished mid-operation.
var ErrNotFound = errors.New("not found")

// StorageError wraps a failed document-store round trip. No retry or backoff
// happens below this layer; callers decide.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}

// UpstreamKind classifies a collaborator failure well enough for callers to
// pick a response code.
type UpstreamKind string

const (
	UpstreamBadCredentials UpstreamKind = "bad_credentials"
	UpstreamRateLimited    UpstreamKind = "rate_limited"
	UpstreamInvalidInput   UpstreamKind = "invalid_input"
	UpstreamUnknown        UpstreamKind = "unknown"
)

// UpstreamError wraps a failed call to an external collaborator (vision
// model, blob store). The core never retries or compensates; a product can
// legitimately exist without a description when the upstream call failed.
type UpstreamError struct {
	Service string
	Kind    UpstreamKind
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Service, e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ValidationError carries field-level detail for malformed input. It is
// built at the HTTP boundary, before the stores are called.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Fields)
}
