package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FieldKind identifies the kind of value a content field holds.
type FieldKind string

const (
	FieldText    FieldKind = "text"
	FieldNumber  FieldKind = "number"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldRich    FieldKind = "rich-text"
)

// FieldValue is a tagged union over the value kinds a field can hold.
// Exactly one of the value slots is meaningful, selected by Kind.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Number float64
	Bool   bool
	Date   time.Time
	Rich   json.RawMessage // raw JSON document (blocks, embeds, marks)
}

// Text returns a text field value.
func Text(s string) FieldValue { return FieldValue{Kind: FieldText, Text: s} }

// Number returns a numeric field value.
func Number(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Number: n} }

// Boolean returns a boolean field value.
func Boolean(b bool) FieldValue { return FieldValue{Kind: FieldBoolean, Bool: b} }

// Date returns a date field value.
func Date(t time.Time) FieldValue { return FieldValue{Kind: FieldDate, Date: t} }

// Rich returns a rich-text field value holding a raw JSON document.
// The document is compacted so equality checks are byte-stable.
func Rich(raw json.RawMessage) FieldValue {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err == nil {
		raw = append(json.RawMessage(nil), buf.Bytes()...)
	}
	return FieldValue{Kind: FieldRich, Rich: raw}
}

// Equal reports whether two field values have the same kind and value.
func (v FieldValue) Equal(o FieldValue) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case FieldText:
		return v.Text == o.Text
	case FieldNumber:
		return v.Number == o.Number
	case FieldBoolean:
		return v.Bool == o.Bool
	case FieldDate:
		return v.Date.Equal(o.Date)
	case FieldRich:
		return bytes.Equal(v.Rich, o.Rich)
	}
	return false
}

// String renders the value for display.
func (v FieldValue) String() string {
	switch v.Kind {
	case FieldText:
		return v.Text
	case FieldNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case FieldBoolean:
		return strconv.FormatBool(v.Bool)
	case FieldDate:
		return v.Date.Format(time.RFC3339)
	case FieldRich:
		return string(v.Rich)
	}
	return ""
}

// MarshalJSON emits the plain wire value: dates as RFC3339 strings,
// rich text as its raw document, the rest as native JSON scalars.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case FieldText:
		return json.Marshal(v.Text)
	case FieldNumber:
		return json.Marshal(v.Number)
	case FieldBoolean:
		return json.Marshal(v.Bool)
	case FieldDate:
		return json.Marshal(v.Date.Format(time.RFC3339))
	case FieldRich:
		if len(v.Rich) == 0 {
			return []byte("null"), nil
		}
		return v.Rich, nil
	}
	return []byte("null"), nil
}

// FieldValueFromJSON classifies a raw wire value into the union.
// Strings that parse as exact RFC3339 become dates, other strings text;
// objects and arrays become rich text; null becomes empty text.
func FieldValueFromJSON(raw json.RawMessage) FieldValue {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Text("")
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Rich(trimmed)
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return Date(t)
		}
		return Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return Rich(trimmed)
		}
		return Boolean(b)
	case 'n':
		return Text("")
	case '{', '[':
		return Rich(trimmed)
	default:
		var n float64
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return Rich(trimmed)
		}
		return Number(n)
	}
}

// Field is a single key/value entry in a FieldMap.
type Field struct {
	Key   string
	Value FieldValue
}

// FieldMap is an ordered mapping from field key to field value.
// Order is insertion order and survives JSON round-trips, which keeps
// merge and comparison behavior well-defined.
type FieldMap []Field

// Get returns the value stored under key.
func (m FieldMap) Get(key string) (FieldValue, bool) {
	for i := range m {
		if m[i].Key == key {
			return m[i].Value, true
		}
	}
	return FieldValue{}, false
}

// Set replaces the value under key in place, or appends the key when absent.
func (m *FieldMap) Set(key string, v FieldValue) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Value = v
			return
		}
	}
	*m = append(*m, Field{Key: key, Value: v})
}

// Delete removes key from the map. Reports whether the key was present.
func (m *FieldMap) Delete(key string) bool {
	for i := range *m {
		if (*m)[i].Key == key {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the field keys in order.
func (m FieldMap) Keys() []string {
	keys := make([]string, len(m))
	for i := range m {
		keys[i] = m[i].Key
	}
	return keys
}

// Clone returns a deep copy of the map.
func (m FieldMap) Clone() FieldMap {
	if m == nil {
		return nil
	}
	out := make(FieldMap, len(m))
	copy(out, m)
	for i := range out {
		if out[i].Value.Kind == FieldRich {
			out[i].Value.Rich = append(json.RawMessage(nil), out[i].Value.Rich...)
		}
	}
	return out
}

// Merge returns a copy of m with patch applied on top: existing keys are
// replaced in place, new keys are appended in patch order. Neither input
// is mutated.
func (m FieldMap) Merge(patch FieldMap) FieldMap {
	out := m.Clone()
	if out == nil && len(patch) > 0 {
		out = FieldMap{}
	}
	for _, f := range patch {
		out.Set(f.Key, f.Value)
	}
	return out
}

// Equal reports whether two maps hold the same keys in the same order
// with equal values.
func (m FieldMap) Equal(o FieldMap) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if m[i].Key != o[i].Key || !m[i].Value.Equal(o[i].Value) {
			return false
		}
	}
	return true
}

// MarshalJSON emits a JSON object preserving field order.
func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping the key order of the document.
func (m *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected JSON object, got %v", tok)
	}
	out := FieldMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("fields: expected object key, got %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, Field{Key: key, Value: FieldValueFromJSON(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}
