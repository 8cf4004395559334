// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which binds a short identifier to the original
// URL it resolves to, and the errors shared by every layer.
package entity

import (
	"errors"
	"time"
)

var (
	// ErrInvalidURL is returned when the submitted URL is empty or is not an absolute URL.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInvalidID is returned when a caller-chosen identifier is empty.
	ErrInvalidID = errors.New("invalid short identifier")
	// ErrURLNotFound is returned when no URL is bound to the requested identifier.
	ErrURLNotFound = errors.New("url not found")
	// ErrAlreadyExists is returned when an identifier is already bound to another URL.
	ErrAlreadyExists = errors.New("short identifier already exists")
	// ErrAllocationExhausted is returned when no free identifier was found within the retry budget.
	ErrAllocationExhausted = errors.New("identifier allocation exhausted")
	// ErrStoreUnavailable is returned when the store timed out or could not be reached.
	// The operation is safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// URL represents a shortened URL.
type URL struct {
	ID          string    // ID is the short identifier, unique across the store.
	OriginalURL string    // OriginalURL is the absolute URL the identifier resolves to.
	CreatedAt   time.Time // CreatedAt is the timestamp when the record was created.
}

// Record is a raw identifier/URL pair used for bulk loading.
type Record struct {
	ID          string
	OriginalURL string
}
