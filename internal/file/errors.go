package file

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFileNotFound signals that the file could not be located.
	ErrFileNotFound = errors.New("file not found")
	// ErrFileExists is returned when a record id is already taken in a table.
	ErrFileExists = errors.New("file already exists")
	// ErrFileTooLarge signals that the upload exceeds configured limits.
	ErrFileTooLarge = errors.New("file too large")
	// ErrMissingPayload is returned when an upload carries no file.
	ErrMissingPayload = errors.New("missing file payload")
	// ErrContentMissing means the row exists but its file is gone from disk.
	ErrContentMissing = errors.New("file content missing")
	// ErrInvalidRecord is matched by every ValidationError.
	ErrInvalidRecord = errors.New("invalid file record")
)

// ValidationError reports which fields broke the insert contract.
type ValidationError struct {
	Missing    []string
	Unexpected []string
	Malformed  []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected "+strings.Join(e.Unexpected, ", "))
	}
	if len(e.Malformed) > 0 {
		parts = append(parts, "malformed "+strings.Join(e.Malformed, ", "))
	}
	return fmt.Sprintf("%s: record must contain exactly [%s]: %s",
		ErrInvalidRecord, strings.Join(requiredFields, " "), strings.Join(parts, "; "))
}

// Is lets errors.Is(err, ErrInvalidRecord) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

func (e *ValidationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Unexpected) == 0 && len(e.Malformed) == 0
}
