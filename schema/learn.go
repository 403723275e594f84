package schema

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/c360/datalink/errors"
)

// maxExactInt bounds the float64 range treated as integral. Beyond it a
// float64 cannot represent every integer, so values stay floats.
const maxExactInt = 1 << 53

// Learn consumes source to completion and returns the stream's profile.
// Values it cannot interpret count toward null rates; they never abort the
// pass. The result is independent of record order.
func Learn(ctx context.Context, source RecordSource) (*Profile, error) {
	if source == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Learner", "Learn", "nil record source")
	}
	profile := NewProfile()
	for {
		record, err := source.Next(ctx)
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				break
			}
			return nil, errors.WrapTransient(err, "Learner", "Learn", "read record")
		}
		profile.SampleCount++
		for key, value := range record {
			profile.observe(key, value)
		}
	}
	profile.finalize()
	return profile, nil
}

// observe records one value at path, recursing into nested objects and
// array elements.
func (p *Profile) observe(path string, value any) {
	f := p.field(path)
	switch v := value.(type) {
	case nil:
		f.TypeCounts[kindNull]++
	case bool:
		f.addScalar(kindBoolean, "b:"+strconv.FormatBool(v))
	case string:
		f.addString(v)
	case []byte:
		f.addString(string(v))
	case time.Time:
		f.addString(v.UTC().Format(time.RFC3339Nano))
	case int:
		f.addInt(int64(v))
	case int32:
		f.addInt(int64(v))
	case int64:
		f.addInt(v)
	case uint:
		f.addScalar(kindInteger, "i:"+strconv.FormatUint(uint64(v), 10))
	case uint32:
		f.addInt(int64(v))
	case uint64:
		f.addScalar(kindInteger, "i:"+strconv.FormatUint(v, 10))
	case float32:
		f.addFloat(float64(v))
	case float64:
		f.addFloat(v)
	case json.Number:
		f.addNumber(v)
	case map[string]any:
		f.TypeCounts[kindObject]++
		for key, child := range v {
			p.observe(path+"."+key, child)
		}
	case []any:
		f.TypeCounts[kindArray]++
		f.Repeated = true
		f.ElementCount += uint64(len(v))
		for _, element := range v {
			p.observe(path+ElementSuffix, element)
		}
	default:
		f.TypeCounts[kindNull]++
	}
}

// addScalar counts one typed observation and feeds the distinct sketch.
// Sketch keys are type-prefixed so "7" the string and 7 the integer stay
// distinct values.
func (f *FieldProfile) addScalar(k kind, distinct string) {
	f.TypeCounts[k]++
	if f.Distinct == nil {
		f.Distinct = NewSketch()
	}
	f.Distinct.Add(distinct)
}

func (f *FieldProfile) addString(v string) {
	f.addScalar(kindString, "s:"+v)
	f.observeFormat(v)
}

func (f *FieldProfile) addInt(v int64) {
	f.addScalar(kindInteger, "i:"+strconv.FormatInt(v, 10))
}

// addFloat counts integral floats as integers so 7 and 7.0 profile
// identically, mirroring fingerprint normalization.
func (f *FieldProfile) addFloat(v float64) {
	if math.IsNaN(v) {
		f.TypeCounts[kindNull]++
		return
	}
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < maxExactInt {
		f.addInt(int64(v))
		return
	}
	f.addScalar(kindFloat, "f:"+strconv.FormatFloat(v, 'g', -1, 64))
}

func (f *FieldProfile) addNumber(v json.Number) {
	if i, err := v.Int64(); err == nil {
		f.addInt(i)
		return
	}
	if fv, err := v.Float64(); err == nil {
		f.addFloat(fv)
		return
	}
	f.TypeCounts[kindNull]++
}
