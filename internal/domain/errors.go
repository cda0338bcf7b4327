package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrReferenceNotFound is returned when a record points at a user, contact or project that does not exist
	ErrReferenceNotFound = errors.New("referenced entity not found")
	// ErrRecordNotFound is returned when a mutation targets a record that does not exist
	ErrRecordNotFound = errors.New("financial record not found")
	// ErrStoreFailure marks an underlying persistence error
	ErrStoreFailure = errors.New("store failure")
	// ErrInvalidRule marks a commission rule with an unrecognized commission type
	ErrInvalidRule = errors.New("invalid commission rule")
	// ErrConflict is returned when a conditional write loses a race against another writer
	ErrConflict = errors.New("record was modified concurrently")
	// ErrInvalidStatus is returned for a fund status tag outside the four known values
	ErrInvalidStatus = errors.New("invalid fund status")
	// ErrRuleNotFound is returned when a commission rule or tip does not exist
	ErrRuleNotFound = errors.New("commission rule not found")
	// ErrInvalidRecord is returned when record input fails validation
	ErrInvalidRecord = errors.New("invalid financial record")
)

// ReferenceError names the dangling reference found at record creation
type ReferenceError struct {
	Entity string // "user", "contact" or "project"
	ID     int64
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// Unwrap makes errors.Is(err, ErrReferenceNotFound) hold
func (e *ReferenceError) Unwrap() error {
	return ErrReferenceNotFound
}

// StoreError wraps a persistence failure with the operation and record it concerned
type StoreError struct {
	Op       string
	RecordID int64
	Err      error
}

func (e *StoreError) Error() string {
	if e.RecordID != 0 {
		return fmt.Sprintf("%s record %d: %v", e.Op, e.RecordID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStoreFailure, e.Err}
}

// NewStoreError wraps err unless it already carries a ledger sentinel
func NewStoreError(op string, recordID int64, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrReferenceNotFound) || errors.Is(err, ErrStoreFailure) ||
		errors.Is(err, ErrInvalidRecord) || errors.Is(err, ErrInvalidStatus) {
		return err
	}
	return &StoreError{Op: op, RecordID: recordID, Err: err}
}
