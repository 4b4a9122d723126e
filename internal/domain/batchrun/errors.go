package batchrun

import (
	"fmt"

	"github.com/google/uuid"
)

// ErrRunNotFound indicates a missing batch run
type ErrRunNotFound struct {
	RunID uuid.UUID
}

func (e ErrRunNotFound) Error() string {
	return fmt.Sprintf("batch run not found: %s", e.RunID)
}

// Is implements the errors.Is interface for ErrRunNotFound
func (e ErrRunNotFound) Is(target error) bool {
	t, ok := target.(ErrRunNotFound)
	if !ok {
		return false
	}
	return e.RunID == t.RunID || t.RunID == uuid.Nil
}
