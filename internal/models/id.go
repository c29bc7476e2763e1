package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID identifies users, conversations and messages. The backend is not
// consistent about how it serializes identifiers, so decoding accepts
// JSON numbers as well as numeric strings.
type ID int64

// ParseID coerces the loosely typed identifier forms seen on the wire
// (native integers, floats, numeric strings, json.Number) to an ID.
func ParseID(v any) (ID, error) {
	switch t := v.(type) {
	case ID:
		return t, nil
	case int:
		return ID(t), nil
	case int32:
		return ID(t), nil
	case int64:
		return ID(t), nil
	case uint:
		return fromUint(uint64(t))
	case uint32:
		return ID(t), nil
	case uint64:
		return fromUint(t)
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case json.Number:
		return parseIDString(t.String())
	case string:
		return parseIDString(t)
	case nil:
		return 0, fmt.Errorf("id is null")
	default:
		return 0, fmt.Errorf("unsupported id type %T", v)
	}
}

func fromUint(u uint64) (ID, error) {
	if u > math.MaxInt64 {
		return 0, fmt.Errorf("id %d out of range", u)
	}
	return ID(u), nil
}

func fromFloat(f float64) (ID, error) {
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("id %v is not integral", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, so the upper bound is exclusive
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("id %v out of range", f)
	}
	return ID(int64(f)), nil
}

func parseIDString(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return fromFloat(f)
}

// MustParseID is ParseID for literals in code and tests.
func MustParseID(v any) ID {
	id, err := ParseID(v)
	if err != nil {
		panic(err)
	}
	return id
}

// SameID reports whether two loosely typed identifiers denote the same
// numeric value. Values that cannot be coerced never match.
func SameID(a, b any) bool {
	x, err := ParseID(a)
	if err != nil {
		return false
	}
	y, err := ParseID(b)
	if err != nil {
		return false
	}
	return x == y
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(id), 10)), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseID(raw)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
