package queryexpr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Token is the canonical representation of a single query operation.
//
// Attribute is nil, a string, or a []string. Values holds canonical values only:
// string, bool, json.Number, []any (nested lists such as geometry), or Token
// (children of the composite methods). Numbers are always json.Number so a
// token survives a serialize/deserialize round trip unchanged.
type Token struct {
	Method    string `json:"method"`
	Attribute any    `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// Serialize encodes the token in its compact wire form,
// {"method":"equal","attribute":"status","values":["published"]}.
// Absent attribute and values are omitted.
func (t Token) Serialize() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(t); err != nil {
		return "", errors.Wrapf(err, "serialize %s token", t.Method)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// String returns the serialized form, or a placeholder when the token holds
// non-canonical values.
func (t Token) String() string {
	s, err := t.Serialize()
	if err != nil {
		return fmt.Sprintf("%%!(INVALID TOKEN %s)", t.Method)
	}
	return s
}

// Deserialize decodes a serialized token. Nested tokens of the composite
// methods are rebuilt as Token values.
func Deserialize(s string) (Token, error) {
	raw, err := decodeJSON([]byte(s))
	if err != nil {
		return Token{}, newError(CodeMalformedJSON, nil, "invalid token JSON: %v", err)
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return Token{}, newError(CodeInvalidDescriptor, nil, "token must be a JSON object")
	}
	return tokenFromObject(obj)
}

// SerializeAll serializes a sequence, preserving order.
func SerializeAll(tokens []Token) ([]string, error) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		s, err := t.Serialize()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func tokenFromObject(obj map[string]any) (Token, error) {
	for key := range obj {
		switch key {
		case "method", "attribute", "values":
		default:
			return Token{}, newError(CodeInvalidDescriptor, map[string]any{"field": key},
				"unexpected token field %q", key)
		}
	}

	method, ok := obj["method"].(string)
	if !ok || method == "" {
		return Token{}, newError(CodeInvalidDescriptor, map[string]any{"field": "method"},
			"token method must be a non-empty string")
	}
	t := Token{Method: method}

	attr, err := attributeValue(obj["attribute"])
	if err != nil {
		return Token{}, err
	}
	t.Attribute = attr

	switch raw := obj["values"].(type) {
	case nil:
	case []any:
		values := make([]any, 0, len(raw))
		for _, v := range raw {
			if child, isObj := v.(map[string]any); isObj {
				if !isComposite(method) {
					return Token{}, newError(CodeInvalidDescriptor, map[string]any{"method": method},
						"%s values cannot contain objects", method)
				}
				nested, err := tokenFromObject(child)
				if err != nil {
					return Token{}, err
				}
				values = append(values, nested)
				continue
			}
			cv, err := canonicalValue(v)
			if err != nil {
				return Token{}, err
			}
			values = append(values, cv)
		}
		if len(values) > 0 {
			t.Values = values
		}
	default:
		return Token{}, newError(CodeInvalidDescriptor, map[string]any{"field": "values"},
			"token values must be an array")
	}
	return t, nil
}

// attributeValue normalizes a decoded attribute to nil, string or []string.
func attributeValue(v any) (any, error) {
	switch a := v.(type) {
	case nil:
		return nil, nil
	case string:
		return a, nil
	case []string:
		return append([]string(nil), a...), nil
	case []any:
		names := make([]string, 0, len(a))
		for _, item := range a {
			s, ok := item.(string)
			if !ok {
				return nil, newError(CodeInvalidDescriptor, map[string]any{"field": "attribute"},
					"attribute list must contain only strings")
			}
			names = append(names, s)
		}
		return names, nil
	default:
		return nil, newError(CodeInvalidDescriptor, map[string]any{"field": "attribute"},
			"attribute must be a string or a list of strings")
	}
}

// canonicalValue converts a Go or decoded JSON value into the canonical value
// set. Slices are copied so a token never aliases caller memory.
func canonicalValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool, json.Number:
		return x, nil
	case Token:
		return x.clone(), nil
	case int:
		return json.Number(strconv.Itoa(x)), nil
	case int32:
		return json.Number(strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return json.Number(strconv.FormatInt(x, 10)), nil
	case uint:
		return json.Number(strconv.FormatUint(uint64(x), 10)), nil
	case uint32:
		return json.Number(strconv.FormatUint(uint64(x), 10)), nil
	case uint64:
		return json.Number(strconv.FormatUint(x, 10)), nil
	case float32:
		return floatNumber(float64(x))
	case float64:
		return floatNumber(x)
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	case []any:
		out := make([]any, 0, len(x))
		for _, item := range x {
			cv, err := canonicalValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	case nil:
		return nil, newError(CodeInvalidArgumentShape, nil, "null is not a valid query value")
	default:
		return nil, newError(CodeInvalidArgumentShape, map[string]any{"type": fmt.Sprintf("%T", v)},
			"unsupported query value of type %T", v)
	}
}

func floatNumber(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, newError(CodeInvalidArgumentShape, nil, "query value %v is not a finite number", f)
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

func (t Token) clone() Token {
	out := Token{Method: t.Method, Attribute: t.Attribute}
	if names, ok := t.Attribute.([]string); ok {
		out.Attribute = append([]string(nil), names...)
	}
	if t.Values != nil {
		out.Values = cloneValues(t.Values)
	}
	return out
}

func cloneValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case []any:
			out[i] = cloneValues(x)
		case Token:
			out[i] = x.clone()
		default:
			out[i] = x
		}
	}
	return out
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number.
func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}
