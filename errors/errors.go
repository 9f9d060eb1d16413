package errors

import "fmt"

var (
	// ErrNotFound signals that a referenced document does not exist.
	// Surfaced distinctly from domain rules: it usually means a caller
	// bug or a stale cache on the client side.
	ErrNotFound = fmt.Errorf("record not found")

	// Enrollment domain rules. Expected, user-facing, never logged as failures.
	ErrAlreadyEnrolled    = fmt.Errorf("student already enrolled")
	ErrCourseFull         = fmt.Errorf("course has no available spots")
	ErrCourseNotAvailable = fmt.Errorf("course is not open for enrollment")

	// ErrContention is returned once the optimistic-transaction retry
	// budget is exhausted. Callers may simply try again.
	ErrContention = fmt.Errorf("transaction aborted by concurrent writes")

	// ErrInvalidEntity wraps a validation failure when an operation is
	// handed raw fields instead of an already-validated entity.
	ErrInvalidEntity = fmt.Errorf("entity validation failed")

	// ErrStoreClosed signals an operation against a closed document store.
	ErrStoreClosed = fmt.Errorf("document store is closed")
)
