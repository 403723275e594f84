package schema

import (
	"regexp"

	"github.com/google/uuid"

	"github.com/c360/datalink/pkg/timestamp"
)

// Format names a refined string shape detected across a field's values.
type Format string

const (
	FormatNone      Format = ""
	FormatDate      Format = "date"
	FormatTimestamp Format = "timestamp"
	FormatEmail     Format = "email"
	FormatURL       Format = "url"
	FormatUUID      Format = "uuid"
)

// FormatCounts tallies format matches per field.
type FormatCounts map[Format]uint64

// formatOrder fixes the precedence when several formats clear the
// reporting threshold.
var formatOrder = []Format{FormatDate, FormatTimestamp, FormatEmail, FormatURL, FormatUUID}

// formatThreshold is the share of string observations a format needs
// before Format reports it.
const formatThreshold = 0.9

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	urlPattern   = regexp.MustCompile(`^https?://[^\s/$.?#].[^\s]*$`)
)

// detectFormat classifies one string value. Date and timestamp detection
// share the layouts pkg/timestamp parses, so a value that profiles as a
// date here round-trips through the same code the connectors use.
func detectFormat(v string) Format {
	if _, ok := timestamp.ParseDate(v); ok {
		return FormatDate
	}
	if _, ok := timestamp.ParseDateTime(v); ok {
		return FormatTimestamp
	}
	if emailPattern.MatchString(v) {
		return FormatEmail
	}
	if urlPattern.MatchString(v) {
		return FormatURL
	}
	if _, err := uuid.Parse(v); err == nil {
		return FormatUUID
	}
	return FormatNone
}

// observeFormat tallies the refined shape of one string observation.
func (f *FieldProfile) observeFormat(v string) {
	format := detectFormat(v)
	if format == FormatNone {
		return
	}
	if f.Formats == nil {
		f.Formats = make(FormatCounts)
	}
	f.Formats[format]++
}

// Format returns the refined shape shared by at least 90% of this field's
// string observations, or FormatNone.
func (f *FieldProfile) Format() Format {
	observed := f.TypeCounts[kindString]
	if observed == 0 || len(f.Formats) == 0 {
		return FormatNone
	}
	for _, format := range formatOrder {
		if float64(f.Formats[format]) >= formatThreshold*float64(observed) {
			return format
		}
	}
	return FormatNone
}
