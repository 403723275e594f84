package timestamp_test

import (
	"fmt"
	"time"

	"github.com/c360/datalink/pkg/timestamp"
)

// ExampleParse demonstrates parsing various timestamp formats
func ExampleParse() {
	// Parse RFC3339 string
	ts1 := timestamp.Parse("2023-01-15T12:30:45Z")
	fmt.Printf("RFC3339 parsed: %d\n", ts1)

	// Parse Unix seconds
	ts2 := timestamp.Parse(int64(1673784645))
	fmt.Printf("Unix seconds parsed: %d\n", ts2)

	// Parse Unix milliseconds
	ts3 := timestamp.Parse(int64(1673784645123))
	fmt.Printf("Unix milliseconds parsed: %d\n", ts3)

	// Output:
	// RFC3339 parsed: 1673785845000
	// Unix seconds parsed: 1673784645000
	// Unix milliseconds parsed: 1673784645123
}

// ExampleFormat demonstrates formatting timestamps for display
func ExampleFormat() {
	ts := int64(1673785845123)
	formatted := timestamp.Format(ts)
	fmt.Printf("Formatted: %s\n", formatted)

	// Zero timestamp returns empty string
	empty := timestamp.Format(0)
	fmt.Printf("Zero formatted: '%s'\n", empty)

	// Output:
	// Formatted: 2023-01-15T12:30:45Z
	// Zero formatted: ''
}

// ExampleToUnixMs demonstrates converting time.Time to milliseconds
func ExampleToUnixMs() {
	t := time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	ts := timestamp.ToUnixMs(t)
	fmt.Printf("time.Time to milliseconds: %d\n", ts)

	// Output:
	// time.Time to milliseconds: 1673785845123
}

// ExampleParseDate demonstrates calendar-date detection
func ExampleParseDate() {
	ms, ok := timestamp.ParseDate("2023-01-15")
	fmt.Printf("Date: %s ok=%v\n", timestamp.Format(ms), ok)

	// Full timestamps are not calendar dates
	_, ok = timestamp.ParseDate("2023-01-15T12:30:45Z")
	fmt.Printf("Datetime as date: ok=%v\n", ok)

	// Output:
	// Date: 2023-01-15T00:00:00Z ok=true
	// Datetime as date: ok=false
}

// ExampleParseDateTime demonstrates date+time detection
func ExampleParseDateTime() {
	ms, ok := timestamp.ParseDateTime("2023-01-15 12:30:45")
	fmt.Printf("Datetime: %s ok=%v\n", timestamp.Format(ms), ok)

	// Date-only strings are rejected
	_, ok = timestamp.ParseDateTime("2023-01-15")
	fmt.Printf("Date as datetime: ok=%v\n", ok)

	// Output:
	// Datetime: 2023-01-15T12:30:45Z ok=true
	// Date as datetime: ok=false
}

// ExampleBetween demonstrates calculating duration between timestamps
func ExampleBetween() {
	start := int64(1673785845123)
	end := start + (30 * time.Minute).Milliseconds()

	duration := timestamp.Between(start, end)
	fmt.Printf("Duration: %v\n", duration)

	// Zero timestamps return zero duration
	zeroDuration := timestamp.Between(0, end)
	fmt.Printf("With zero: %v\n", zeroDuration)

	// Output:
	// Duration: 30m0s
	// With zero: 0s
}
