// Package coerce converts extracted strings into the semantic type declared
// for a field and renders typed values back to text.
package coerce

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/flarebyte/clipper/internal/fault"
)

// Type is the declared semantic type of a field.
type Type string

const (
	String   Type = "string"
	Integer  Type = "integer"
	Float    Type = "float"
	Datetime Type = "datetime"
	Boolean  Type = "boolean"
)

// DatetimeLayout is the layout datetimes are parsed with and rendered in.
const DatetimeLayout = "2006/01/02 15:04:05"

// Older captures separate date and time with a comma.
var fallbackLayouts = []string{"2006-01-02,15:04:05"}

var typeAliases = map[string]Type{
	"string":   String,
	"str":      String,
	"integer":  Integer,
	"int":      Integer,
	"float":    Float,
	"datetime": Datetime,
	"boolean":  Boolean,
	"bool":     Boolean,
}

// ParseType resolves a type name as written in a rule file.
func ParseType(name string) (Type, error) {
	t, ok := typeAliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unsupported type %q", name)
	}
	return t, nil
}

// Coerce converts v to t. Numbers are parsed strictly: "12abc" and "1.5" as
// an integer both fail rather than being truncated.
func Coerce(v any, t Type) (any, error) {
	switch t {
	case String:
		return Format(v), nil
	case Integer:
		return toInteger(v)
	case Float:
		return toFloat(v)
	case Datetime:
		return toTime(v, nil)
	case Boolean:
		return toBool(v)
	}
	return nil, fmt.Errorf("%w: unsupported type %q", fault.ErrTypeConversion, t)
}

// CoerceIn is Coerce, except that datetimes are read in loc and returned in UTC.
func CoerceIn(v any, t Type, loc *time.Location) (any, error) {
	if t == Datetime && loc != nil {
		return toTime(v, loc)
	}
	return Coerce(v, t)
}

func toInteger(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) || math.IsNaN(x) {
			return nil, conversionError(v, Integer)
		}
		// float64(math.MaxInt64) rounds up to 1<<63.
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return nil, conversionError(v, Integer)
		}
		return int64(x), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil, conversionError(v, Integer)
		}
		return n, nil
	}
	return nil, conversionError(v, Integer)
}

func toFloat(v any) (any, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil, conversionError(v, Float)
		}
		return f, nil
	}
	return nil, conversionError(v, Float)
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return nil, conversionError(v, Boolean)
		}
		return b, nil
	}
	return nil, conversionError(v, Boolean)
}

func toTime(v any, loc *time.Location) (any, error) {
	switch x := v.(type) {
	case time.Time:
		if loc != nil {
			return x.UTC(), nil
		}
		return x, nil
	case string:
		s := strings.TrimSpace(x)
		if loc == nil {
			loc = time.UTC
		}
		for _, layout := range append([]string{DatetimeLayout}, fallbackLayouts...) {
			if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
				return ts.UTC(), nil
			}
		}
	}
	return nil, conversionError(v, Datetime)
}

func conversionError(v any, t Type) error {
	return fmt.Errorf("%w: %q is not a valid %s", fault.ErrTypeConversion, Format(v), t)
}

// Format renders a value in the form used for resolved sources, console and
// CSV output. Numbers use plain decimal notation.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(DatetimeLayout)
	}
	return fmt.Sprint(v)
}

// ParseOffset parses a fixed UTC offset such as "+08:00" or "-0530".
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "utc") || s == "Z" {
		return time.UTC, nil
	}
	for _, layout := range []string{"-07:00", "-0700", "-07"} {
		if ts, err := time.Parse(layout, s); err == nil {
			_, off := ts.Zone()
			return time.FixedZone(s, off), nil
		}
	}
	return nil, fmt.Errorf("invalid offset %q (want +HH:MM)", s)
}
