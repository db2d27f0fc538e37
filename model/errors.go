package model

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by repositories when no entity has the given id.
var ErrNotFound = errors.New("not found")

// UnknownNodeError reports a node id that is not in the registry.
type UnknownNodeError struct {
	ID string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node %q", e.ID)
}

// DuplicateNodeError reports an attempt to register an id twice.
type DuplicateNodeError struct {
	ID string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("node %q already registered", e.ID)
}

// InvalidOrderDataError reports malformed order input.
type InvalidOrderDataError struct {
	Field  string
	Reason string
}

func (e *InvalidOrderDataError) Error() string {
	return fmt.Sprintf("invalid order data: %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError reports a status change the lifecycle does not allow.
type InvalidTransitionError struct {
	From, To OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// InvalidAgreementError reports malformed agreement input.
type InvalidAgreementError struct {
	Reason string
}

func (e *InvalidAgreementError) Error() string {
	return "invalid agreement: " + e.Reason
}

// IsUnknownNode reports whether err wraps an UnknownNodeError.
func IsUnknownNode(err error) bool {
	var u *UnknownNodeError
	return errors.As(err, &u)
}
