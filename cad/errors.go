package cad

import "errors"

// ConstructionError reports an invalid geometric parameter combination
// detected while building or validating a module.
type ConstructionError struct {
	Reason string
}

func (e *ConstructionError) Error() string {
	return "construction failed: " + e.Reason
}

// IncompatibilityError reports an I/O kind that the current top or bottom
// configuration cannot carry.
type IncompatibilityError struct {
	Reason string
}

func (e *IncompatibilityError) Error() string {
	return "incompatible configuration: " + e.Reason
}

// CollisionError reports that auto-placement could not satisfy the
// non-overlap constraint between top inlets.
type CollisionError struct {
	Reason string
}

func (e *CollisionError) Error() string {
	return "placement collision: " + e.Reason
}

// ErrNothingSelected is returned when a delete is requested but no matching
// entry exists. Callers log it and carry on; it never aborts an edit.
var ErrNothingSelected = errors.New("no I/O selected")

// ErrReservedOutput is returned when a caller tries to delete or replace
// the default output.
var ErrReservedOutput = errors.New("default output is reserved")

// IsConstruction reports whether err is a ConstructionError.
func IsConstruction(err error) bool {
	var ce *ConstructionError
	return errors.As(err, &ce)
}

// IsIncompatibility reports whether err is an IncompatibilityError.
func IsIncompatibility(err error) bool {
	var ie *IncompatibilityError
	return errors.As(err, &ie)
}

// IsCollision reports whether err is a CollisionError.
func IsCollision(err error) bool {
	var ce *CollisionError
	return errors.As(err, &ce)
}
