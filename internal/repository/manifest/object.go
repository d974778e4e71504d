package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

var (
	errNotObject    = errors.New("expected a JSON object")
	errTrailingData = errors.New("trailing data after object")
)

// Object is a JSON object that remembers the order of its keys.
// Values are kept as raw JSON until they are replaced.
type Object struct {
	keys   []string
	values map[string]json.RawMessage
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{values: make(map[string]json.RawMessage)}
}

// Keys returns the keys in document order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

// Len returns the number of keys.
func (o *Object) Len() int {
	return len(o.keys)
}

// Raw returns the raw JSON value stored under key.
func (o *Object) Raw(key string) (json.RawMessage, bool) {
	value, ok := o.values[key]

	return value, ok
}

// GetString decodes the value under key as a string.
// The second result is false when the key is absent or holds something else.
func (o *Object) GetString(key string) (string, bool) {
	raw, ok := o.values[key]
	if !ok {
		return "", false
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}

	return value, true
}

// GetObject decodes the value under key as a nested Object.
func (o *Object) GetObject(key string) (*Object, bool) {
	raw, ok := o.values[key]
	if !ok {
		return nil, false
	}

	nested := NewObject()
	if err := nested.UnmarshalJSON(raw); err != nil {
		return nil, false
	}

	return nested, true
}

// Set stores value under key. Existing keys keep their position, new keys are appended.
func (o *Object) Set(key string, value any) error {
	raw, err := marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}

	if o.values == nil {
		o.values = make(map[string]json.RawMessage)
	}

	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}

	o.values[key] = raw

	return nil
}

// MarshalJSON implements json.Marshaler.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer

	buffer.WriteByte('{')

	for i, key := range o.keys {
		if i > 0 {
			buffer.WriteByte(',')
		}

		encodedKey, err := marshal(key)
		if err != nil {
			return nil, err
		}

		buffer.Write(encodedKey)
		buffer.WriteByte(':')
		buffer.Write(o.values[key])
	}

	buffer.WriteByte('}')

	return buffer.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Object) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	token, err := decoder.Token()
	if err != nil {
		return err
	}

	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return errNotObject
	}

	o.keys = o.keys[:0]
	o.values = make(map[string]json.RawMessage)

	for decoder.More() {
		token, err = decoder.Token()
		if err != nil {
			return err
		}

		key, ok := token.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", token)
		}

		var value json.RawMessage
		if err = decoder.Decode(&value); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}

		if _, seen := o.values[key]; !seen {
			o.keys = append(o.keys, key)
		}

		o.values[key] = value
	}

	// Closing brace.
	if _, err = decoder.Token(); err != nil {
		return err
	}

	if _, err = decoder.Token(); !errors.Is(err, io.EOF) {
		return errTrailingData
	}

	return nil
}

// marshal encodes v without HTML escaping and without the trailing newline
// json.Encoder appends.
func marshal(v any) ([]byte, error) {
	var buffer bytes.Buffer

	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buffer.Bytes(), []byte("\n")), nil
}
