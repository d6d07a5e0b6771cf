// Package webhook normalizes the heterogeneous event payloads delivered by
// the voice-AI platform into flat call records. Payloads are arbitrary JSON:
// any field may be missing, null, or of an unexpected type, so all access
// goes through a total accessor that reports absence explicitly instead of
// coercing.
package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies the JSON type of a Value.
type Kind int

const (
	// Absent means the path did not resolve: a segment was missing or an
	// intermediate value was not an object. Distinct from Null.
	Absent Kind = iota
	Null
	String
	Number
	Bool
	Object
	Array
)

// Value is a typed view of one node in the payload tree. Accessors return
// (zero, false) on any type mismatch; they never panic or coerce.
type Value struct {
	raw  any
	kind Kind
}

func wrap(raw any) Value {
	switch raw.(type) {
	case nil:
		return Value{kind: Null}
	case string:
		return Value{raw: raw, kind: String}
	case float64:
		return Value{raw: raw, kind: Number}
	case bool:
		return Value{raw: raw, kind: Bool}
	case map[string]any:
		return Value{raw: raw, kind: Object}
	case []any:
		return Value{raw: raw, kind: Array}
	default:
		// json.Unmarshal into any never produces other types; treat
		// anything unexpected as absent.
		return Value{kind: Absent}
	}
}

// absent is the explicit not-present sentinel.
var absent = Value{kind: Absent}

// IsAbsent reports whether the path did not resolve to any value.
func (v Value) IsAbsent() bool { return v.kind == Absent }

// IsNull reports whether the value is JSON null.
func (v Value) IsNull() bool { return v.kind == Null }

// Kind returns the JSON type of the value.
func (v Value) Kind() Kind { return v.kind }

// String returns the value as a string if it is one.
func (v Value) String() (string, bool) {
	s, ok := v.raw.(string)
	return s, ok
}

// Number returns the value as a float64 if it is a JSON number.
func (v Value) Number() (float64, bool) {
	f, ok := v.raw.(float64)
	return f, ok
}

// Bool returns the value as a bool if it is one.
func (v Value) Bool() (bool, bool) {
	b, ok := v.raw.(bool)
	return b, ok
}

// Object returns the value as an object if it is one.
func (v Value) Object() (map[string]any, bool) {
	m, ok := v.raw.(map[string]any)
	return m, ok
}

// Array returns the value as an array if it is one.
func (v Value) Array() ([]any, bool) {
	a, ok := v.raw.([]any)
	return a, ok
}

// JSON re-encodes the value and returns it as a string pointer, or nil when
// the value is absent or null. Used for side-channel columns stored verbatim.
func (v Value) JSON() *string {
	if v.kind == Absent || v.kind == Null {
		return nil
	}
	b, err := json.Marshal(v.raw)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

// get resolves a dotted path against a decoded JSON node.
func get(node any, path string) Value {
	cur := node
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return absent
		}
		next, ok := obj[seg]
		if !ok {
			return absent
		}
		cur = next
	}
	return wrap(cur)
}

// Envelope wraps one decoded webhook body. The platform nests the event under
// a top-level "message" object; older payload shapes put the same fields at
// the root. Get resolves against the message, GetRoot against the whole body.
type Envelope struct {
	root    map[string]any
	message map[string]any
	raw     []byte
}

// Parse decodes a webhook body. It fails only on malformed JSON or a
// non-object body; missing fields are handled downstream.
func Parse(body []byte) (*Envelope, error) {
	var root map[string]any
	if err := json.Unmarshal(body, &root); err != nil {
		return nil, fmt.Errorf("parsing webhook body: %w", err)
	}
	if root == nil {
		return nil, fmt.Errorf("parsing webhook body: empty object")
	}

	message := root
	if m, ok := root["message"].(map[string]any); ok {
		message = m
	}

	return &Envelope{root: root, message: message, raw: body}, nil
}

// Get resolves a dotted path relative to the event message.
func (e *Envelope) Get(path string) Value {
	return get(e.message, path)
}

// GetRoot resolves a dotted path relative to the whole request body.
func (e *Envelope) GetRoot(path string) Value {
	return get(e.root, path)
}

// Raw returns the original request body.
func (e *Envelope) Raw() []byte {
	return e.raw
}
