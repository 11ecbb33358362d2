// Package fault holds the error taxonomy shared by extraction and batch runs.
package fault

import "errors"

// Field-level errors. They are recorded against one field and never abort
// the rest of the record.
var (
	ErrMarkerNotFound       = errors.New("marker not found")
	ErrOccurrenceOutOfRange = errors.New("occurrence out of range")
	ErrUnknownAction        = errors.New("unknown action")
	ErrActionParameter      = errors.New("action parameter error")
	ErrTypeConversion       = errors.New("type conversion error")
	ErrMissingSourceField   = errors.New("missing source field")
)

// File-level and batch-level errors.
var (
	// ErrFileRead aborts the parse of one file. Siblings are not affected.
	ErrFileRead = errors.New("file read error")
	// ErrWrite is fatal to the batch: rows written after it cannot be trusted.
	ErrWrite = errors.New("write error")
)

// ErrConfig marks an invalid rule set or run configuration. It is raised
// while loading, before any file is parsed.
var ErrConfig = errors.New("configuration error")
