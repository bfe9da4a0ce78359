package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a search request that failed validation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrIndexUnavailable signals a failed or timed-out index service call.
	// The whole request fails; callers may retry.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrDataConsistency signals a fused hit whose id has no row in the relational store.
	ErrDataConsistency = errors.New("index and store out of sync")
	// ErrMalformedHit signals an index hit missing a field the ranking depends on.
	ErrMalformedHit = errors.New("malformed index hit")
	// ErrSemanticSearchNotSupported signals that the index backend cannot run vector queries.
	ErrSemanticSearchNotSupported = errors.New("semantic search not supported by backend")

	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)

// DataConsistencyError carries the subject id that the index returned but the store does not know.
type DataConsistencyError struct {
	SubjectID string
}

func (e *DataConsistencyError) Error() string {
	return fmt.Sprintf("%s: subject %q not found in store", ErrDataConsistency.Error(), e.SubjectID)
}

func (e *DataConsistencyError) Unwrap() error { return ErrDataConsistency }

// NewDataConsistency creates a data consistency error for a subject id.
func NewDataConsistency(subjectID string) error {
	return &DataConsistencyError{SubjectID: subjectID}
}

// MalformedHitError describes which hit and which field were unusable.
type MalformedHitError struct {
	Branch string
	Key    string
	Field  string
}

func (e *MalformedHitError) Error() string {
	return fmt.Sprintf("%s: %s hit %q missing %s", ErrMalformedHit.Error(), e.Branch, e.Key, e.Field)
}

func (e *MalformedHitError) Unwrap() error { return ErrMalformedHit }

// NewMalformedHit creates a malformed hit error.
func NewMalformedHit(branch, key, field string) error {
	return &MalformedHitError{Branch: branch, Key: key, Field: field}
}
