package mapping

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
)

var (
	// ErrMappingConflict is matched by every *ConflictError.
	ErrMappingConflict = errors.New("mapping conflict")
	ErrUnknownGesture  = errors.New("unknown gesture")
	ErrUnknownAction   = errors.New("unknown action")
	ErrMalformed       = errors.New("malformed mapping")
)

// ConflictError reports an action bound to more than one gesture.
type ConflictError struct {
	Action   Action
	Gestures []gesture.Label
}

func (e *ConflictError) Error() string {
	names := make([]string, len(e.Gestures))
	for i, g := range e.Gestures {
		names[i] = string(g)
	}
	return fmt.Sprintf("action %q is already mapped to another gesture (%s)", e.Action, strings.Join(names, ", "))
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrMappingConflict
}
