package fault

import (
	"context"
	"errors"
)

// Kind is a short, stable classification used in reports and logs.
type Kind string

const (
	KindNone                 Kind = ""
	KindMarkerNotFound       Kind = "MarkerNotFound"
	KindOccurrenceOutOfRange Kind = "OccurrenceOutOfRange"
	KindUnknownAction        Kind = "UnknownAction"
	KindActionParameter      Kind = "ActionParameterError"
	KindTypeConversion       Kind = "TypeConversionError"
	KindMissingSourceField   Kind = "MissingSourceField"
	KindFileRead             Kind = "FileReadError"
	KindWrite                Kind = "WriteError"
	KindConfig               Kind = "ConfigError"
	KindCanceled             Kind = "Canceled"
	KindUnknown              Kind = "Unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrMarkerNotFound, KindMarkerNotFound},
	{ErrOccurrenceOutOfRange, KindOccurrenceOutOfRange},
	{ErrUnknownAction, KindUnknownAction},
	{ErrActionParameter, KindActionParameter},
	{ErrTypeConversion, KindTypeConversion},
	{ErrMissingSourceField, KindMissingSourceField},
	{ErrFileRead, KindFileRead},
	{ErrWrite, KindWrite},
	{ErrConfig, KindConfig},
}

// Classify maps err onto the taxonomy. It relies on sentinel errors only,
// never on message text.
func Classify(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCanceled
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}

// FieldLevel reports whether err belongs to a single field rather than a
// whole file or batch.
func FieldLevel(err error) bool {
	switch Classify(err) {
	case KindMarkerNotFound, KindOccurrenceOutOfRange, KindUnknownAction,
		KindActionParameter, KindTypeConversion, KindMissingSourceField:
		return true
	}
	return false
}
