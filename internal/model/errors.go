package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a player, faction or user lookup yields nothing.
	ErrNotFound = errors.New("not found")

	// ErrStore marks failures of the backing store: unreachable, corrupt, or a failed statement.
	ErrStore = errors.New("store failure")

	// ErrCacheDrift is returned when the faction cache and the store disagree.
	ErrCacheDrift = errors.New("faction cache out of sync with store")
)

// NotFoundError names the missing entity so callers can render it.
type NotFoundError struct {
	Entity string // "player", "faction", "user", "tenant"
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a NotFoundError.
func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// StoreError wraps a driver error as a store failure.
// Both errors.Is(err, ErrStore) and errors.Is(err, cause) hold.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() []error {
	return []error{ErrStore, e.Err}
}

// StoreFailure wraps err as a StoreError for operation op. Returns nil for a nil err.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err signals a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreFailure reports whether err came from the backing store.
func IsStoreFailure(err error) bool {
	return errors.Is(err, ErrStore)
}
