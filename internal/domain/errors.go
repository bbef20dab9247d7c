package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrIllegalTransition = errors.New("illegal transition")
	ErrMissingComment    = errors.New("comment required")
	ErrNotFound          = errors.New("not found")
	// ErrConflict means the order changed between read and commit.
	ErrConflict     = errors.New("order modified concurrently")
	ErrInvalidInput = errors.New("invalid input")
)

// PermissionDeniedError indicates the role may not invoke the action.
type PermissionDeniedError struct {
	Role   Role
	Action Action
}

func (e PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %s may not invoke %s", e.Role, e.Action)
}

func (e PermissionDeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// IllegalTransitionError indicates the action is not legal from the order's status.
type IllegalTransitionError struct {
	Action Action
	Status Status
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("action %s is not allowed from status %s", e.Action, e.Status)
}

func (e IllegalTransitionError) Is(target error) bool { return target == ErrIllegalTransition }

// MissingCommentError indicates a justification was required but empty.
type MissingCommentError struct {
	Action Action
}

func (e MissingCommentError) Error() string {
	return fmt.Sprintf("action %s requires a comment", e.Action)
}

func (e MissingCommentError) Is(target error) bool { return target == ErrMissingComment }

// InvalidInputError reports a malformed field at an input boundary.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
