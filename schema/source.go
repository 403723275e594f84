package schema

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/c360/datalink/errors"
)

// Record is one semi-structured record: field names mapped to scalar or
// nested values, in the shapes encoding/json produces.
type Record = map[string]any

// RecordSource is a finite, restartable stream of records. Next returns
// io.EOF after the final record; Reset rewinds to the first. Sources are
// not safe for concurrent use, so concurrent learners need one source
// each.
type RecordSource interface {
	Next(ctx context.Context) (Record, error)
	Reset() error
}

// SliceSource serves records from memory.
type SliceSource struct {
	records []Record
	pos     int
}

// NewSliceSource returns a source over the given records.
func NewSliceSource(records ...Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record, or io.EOF when exhausted.
func (s *SliceSource) Next(ctx context.Context) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.records) {
		return nil, io.EOF
	}
	record := s.records[s.pos]
	s.pos++
	return record, nil
}

// Reset rewinds to the first record.
func (s *SliceSource) Reset() error {
	s.pos = 0
	return nil
}

// maxLineBytes bounds a single line of newline-delimited JSON.
const maxLineBytes = 1 << 20

// JSONLSource streams newline-delimited JSON objects. Blank lines are
// ignored; lines that do not parse as objects are skipped and counted
// rather than failing the stream. Numbers decode as json.Number so large
// integers survive intact.
type JSONLSource struct {
	r         io.ReadSeeker
	scanner   *bufio.Scanner
	malformed int
}

// NewJSONLSource returns a source reading records from r.
func NewJSONLSource(r io.ReadSeeker) *JSONLSource {
	s := &JSONLSource{r: r}
	if r != nil {
		s.scanner = newLineScanner(r)
	}
	return s
}

func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return scanner
}

// Next returns the next record, or io.EOF when the input is exhausted.
func (s *JSONLSource) Next(ctx context.Context) (Record, error) {
	if s.scanner == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "JSONLSource", "Next", "nil reader")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, errors.WrapTransient(err, "JSONLSource", "Next", "scan line")
			}
			return nil, io.EOF
		}
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record Record
		decoder := json.NewDecoder(bytes.NewReader(line))
		decoder.UseNumber()
		if err := decoder.Decode(&record); err != nil || record == nil {
			s.malformed++
			continue
		}
		return record, nil
	}
}

// Reset rewinds to the beginning of the input and clears the malformed
// count.
func (s *JSONLSource) Reset() error {
	if s.r == nil {
		return errors.WrapInvalid(errors.ErrInvalidData, "JSONLSource", "Reset", "nil reader")
	}
	if _, err := s.r.Seek(0, io.SeekStart); err != nil {
		return errors.WrapTransient(err, "JSONLSource", "Reset", "seek start")
	}
	s.scanner = newLineScanner(s.r)
	s.malformed = 0
	return nil
}

// Malformed reports how many lines were skipped since the last reset.
func (s *JSONLSource) Malformed() int {
	return s.malformed
}

// wrapperKeys are envelope names APIs commonly place record arrays under,
// checked in order.
var wrapperKeys = []string{"data", "records", "items", "results", "rows", "entries", "content"}

// ExtractRecords pulls a record list out of a decoded payload: a bare
// array of objects, an envelope whose records sit under a wrapper key, or
// a single object treated as one record. Array elements that are not
// objects are dropped. Payloads with no records yield nil.
func ExtractRecords(payload any) []Record {
	switch v := payload.(type) {
	case []Record:
		if len(v) == 0 {
			return nil
		}
		return v
	case []any:
		return recordElements(v)
	case map[string]any:
		for _, key := range wrapperKeys {
			wrapped, ok := v[key]
			if !ok {
				continue
			}
			if list, ok := wrapped.([]any); ok {
				return recordElements(list)
			}
		}
		return []Record{v}
	default:
		return nil
	}
}

func recordElements(list []any) []Record {
	records := make([]Record, 0, len(list))
	for _, element := range list {
		if record, ok := element.(Record); ok {
			records = append(records, record)
		}
	}
	if len(records) == 0 {
		return nil
	}
	return records
}
