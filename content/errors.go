package content

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrCommentsDisabled      = errors.New("comments are disabled for this post")
	ErrParentNotFound        = errors.New("parent comment not found")
	ErrDuplicateSubscription = errors.New("email already has an active subscription")
	ErrStorageUnavailable    = errors.New("storage unavailable")

	// ErrDuplicate is returned by a Repository when a write violates a
	// unique constraint. The service translates it into a domain error.
	ErrDuplicate = errors.New("duplicate key")

	ErrCategoryCycle = &ValidationError{Field: "parent_id", Reason: "category cannot be its own ancestor"}
)

// ValidationError rejects malformed input with a field-level reason.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// DuplicateSlugError reports a slug already taken by another row.
type DuplicateSlugError struct {
	Slug string
}

func (e *DuplicateSlugError) Error() string {
	return fmt.Sprintf("slug %q is already in use", e.Slug)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
