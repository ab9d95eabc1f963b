package curriculum

import (
	"errors"
	"fmt"
)

// ErrNotFound matches every NotFoundError with errors.Is.
var ErrNotFound = errors.New("content not found")

// NotFoundError reports a lookup miss by id.
type NotFoundError struct {
	Kind string // "discipline" or "skill"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
