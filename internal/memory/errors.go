package memory

import "fmt"

// ValidationError reports malformed input to a memory store operation.
// It is never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps a persistence failure of a memory store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("memory store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidateAppend checks the arguments of Store.Append.
func ValidateAppend(sessionID, characterID string, importance int) error {
	if sessionID == "" {
		return &ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if characterID == "" {
		return &ValidationError{Field: "character_id", Reason: "must not be empty"}
	}
	if importance < MinImportance || importance > MaxImportance {
		return &ValidationError{
			Field:  "importance",
			Reason: fmt.Sprintf("%d outside [%d,%d]", importance, MinImportance, MaxImportance),
		}
	}
	return nil
}

// ValidateDecay checks the arguments of Store.Decay.
func ValidateDecay(sessionID, characterID string, factor float64) error {
	if sessionID == "" {
		return &ValidationError{Field: "session_id", Reason: "must not be empty"}
	}
	if characterID == "" {
		return &ValidationError{Field: "character_id", Reason: "must not be empty"}
	}
	if !(factor > 0 && factor < 1) {
		return &ValidationError{Field: "factor", Reason: fmt.Sprintf("%v outside (0,1)", factor)}
	}
	return nil
}
