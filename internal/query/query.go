// Package query matches and edits node payloads by gjson path.
//
// A payload is viewed through its JSON form: strings holding valid JSON are
// used as-is, []byte likewise, and anything else is marshalled with
// encoding/json.
//
//	root.FindAll(query.Path("price.usd", 42), true)
//	root.Find(query.Exists("tags.#(=="+`"hot"`+")"), true)
//	next, err := query.Set(n.Data(), "price.usd", 43)
package query

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/nflow/internal/flow"
)

// Raw returns the JSON form of a payload. A nil payload has no JSON form.
func Raw(payload any) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, nil
	case string:
		if gjson.Valid(v) {
			return []byte(v), nil
		}
	case []byte:
		if gjson.ValidBytes(v) {
			return v, nil
		}
	case json.RawMessage:
		return v, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return raw, nil
}

// Get returns the value at path in n's payload.
func Get(n *flow.Node, path string) gjson.Result {
	if n == nil {
		return gjson.Result{}
	}
	raw, err := Raw(n.Data())
	if err != nil || raw == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(raw, path)
}

// Exists matches nodes whose payload has a value at path.
func Exists(path string) flow.Matcher {
	return flow.MatchFunc(func(n *flow.Node) bool {
		return Get(n, path).Exists()
	})
}

// Path matches nodes whose payload value at path equals want. Numbers
// compare numerically, booleans and strings by value, nil matches JSON
// null. Any other want is compared against the raw JSON of the value.
func Path(path string, want any) flow.Matcher {
	return flow.MatchFunc(func(n *flow.Node) bool {
		return Equal(Get(n, path), want)
	})
}

// Equal reports whether a gjson result holds want.
func Equal(r gjson.Result, want any) bool {
	if !r.Exists() {
		return false
	}
	switch w := want.(type) {
	case nil:
		return r.Type == gjson.Null
	case string:
		return r.Type == gjson.String && r.Str == w
	case bool:
		return (r.Type == gjson.True || r.Type == gjson.False) && r.Bool() == w
	case int:
		return r.Type == gjson.Number && r.Num == float64(w)
	case int64:
		return r.Type == gjson.Number && r.Num == float64(w)
	case float64:
		return r.Type == gjson.Number && r.Num == w
	case float32:
		return r.Type == gjson.Number && r.Num == float64(w)
	}
	raw, err := json.Marshal(want)
	if err != nil {
		return false
	}
	return gjson.ParseBytes(raw).Raw == r.Raw
}

// Set returns a copy of payload with value stored at path. The input
// payload is never modified. The result is decoded from JSON, so objects
// become map[string]any and numbers float64.
func Set(payload any, path string, value any) (any, error) {
	raw, err := Raw(payload)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		raw = []byte("{}")
	}
	out, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", path, err)
	}
	return decode(out)
}

// Delete returns a copy of payload without the value at path.
func Delete(payload any, path string) (any, error) {
	raw, err := Raw(payload)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	out, err := sjson.DeleteBytes(raw, path)
	if err != nil {
		return nil, fmt.Errorf("delete %q: %w", path, err)
	}
	return decode(out)
}

// ParseValue interprets command-line text: JSON literals (numbers, true,
// false, null, objects, arrays, quoted strings) decode to their value and
// anything else is a plain string.
func ParseValue(s string) any {
	if _, err := strconv.ParseFloat(s, 64); err == nil || gjson.Valid(s) {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func decode(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
