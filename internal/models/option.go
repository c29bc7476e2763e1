package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Option is the boundary form of an optional backend value. The wire
// encodes optionals as a bare value, a zero- or one-element array, null,
// or by omitting the field entirely; all of those collapse here once so
// callers only ever ask Get.
type Option[T any] struct {
	value   T
	present bool
	set     bool
}

// Some wraps a present value.
func Some[T any](v T) Option[T] {
	return Option[T]{value: v, present: true, set: true}
}

// None is an explicitly empty option.
func None[T any]() Option[T] {
	return Option[T]{set: true}
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.value, o.present
}

// Present reports whether a value is held.
func (o Option[T]) Present() bool { return o.present }

// Missing reports whether the field never appeared on the wire, as
// opposed to appearing as null or an empty array.
func (o Option[T]) Missing() bool { return !o.set }

// MarshalJSON uses the array form: [] when empty, [v] when present.
func (o Option[T]) MarshalJSON() ([]byte, error) {
	if !o.present {
		return []byte("[]"), nil
	}
	return json.Marshal([]T{o.value})
}

func (o *Option[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*o = Option[T]{set: true}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		switch len(items) {
		case 0:
			return nil
		case 1:
			if bytes.Equal(bytes.TrimSpace(items[0]), []byte("null")) {
				return nil
			}
			if err := json.Unmarshal(items[0], &o.value); err != nil {
				return err
			}
			o.present = true
			return nil
		default:
			return fmt.Errorf("option: expected at most one element, got %d", len(items))
		}
	}
	if err := json.Unmarshal(data, &o.value); err != nil {
		return err
	}
	o.present = true
	return nil
}
