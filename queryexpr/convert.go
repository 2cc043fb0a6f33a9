package queryexpr

import (
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/xeipuuv/gojsonschema"

	"github.com/stnguyen90/appwrite-explorer/internal/logger"
)

// descriptorSchemaJSON is the structural contract of one descriptor object.
// Method-specific arity is checked by the catalog afterwards.
const descriptorSchemaJSON = `{
	"type": "object",
	"required": ["method"],
	"properties": {
		"method": {"type": "string", "minLength": 1},
		"attribute": {
			"type": ["string", "array", "null"],
			"items": {"type": "string"}
		},
		"values": {"type": ["array", "null"]}
	}
}`

var descriptorSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(descriptorSchemaJSON))
})

// Convert maps a JSON array of {method, attribute, values} descriptors to
// serialized tokens, order preserved.
//
// Malformed JSON fails with MALFORMED_JSON and a non-array with NOT_AN_ARRAY,
// both before any descriptor is looked at. Descriptors naming an unknown method
// are handled by the engine's UnknownPolicy.
func (e *Engine) Convert(input string) ([]string, error) {
	c, err := e.ConvertDetailed(input)
	if err != nil {
		return nil, err
	}
	return c.Tokens, nil
}

// ConvertDetailed is Convert that also reports which descriptors were skipped.
func (e *Engine) ConvertDetailed(input string) (*Conversion, error) {
	run := &conversionRun{engine: e, log: true}
	tokens, err := run.guarded([]byte(input))
	if err != nil {
		return nil, err
	}
	return &Conversion{Tokens: tokens, Skipped: run.skipped}, nil
}

// ValidateDescriptors runs the conversion pipeline without logging or
// returning tokens. It returns nil exactly when Convert would succeed on the
// same input, and never panics.
func (e *Engine) ValidateDescriptors(input string) error {
	run := &conversionRun{engine: e}
	_, err := run.guarded([]byte(input))
	return err
}

// conversionRun carries the state of one Convert or ValidateDescriptors call.
type conversionRun struct {
	engine  *Engine
	log     bool
	skipped []Skipped
}

// guarded converts the top-level input, turning a panic into an error.
func (r *conversionRun) guarded(data []byte) (tokens []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			tokens, err = nil, newError(CodeInvalidDescriptor, nil, "conversion aborted: %v", p)
		}
	}()
	return r.convert(data, strconv.Itoa)
}

// convert decodes a JSON array of descriptors and converts each one. Nested
// composite children come back through here as single-element arrays;
// pathOf names the descriptor at each index for diagnostics.
func (r *conversionRun) convert(data []byte, pathOf func(int) string) ([]string, error) {
	raw, err := decodeJSON(data)
	if err != nil {
		return nil, newError(CodeMalformedJSON, nil, "Invalid JSON format: %v", err)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, newError(CodeNotAnArray, nil, "Queries must be an array")
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		s, err := r.descriptor(item, pathOf(i))
		if err != nil {
			return nil, err
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// descriptor converts one descriptor at path. It returns "" when the
// descriptor was skipped.
func (r *conversionRun) descriptor(item any, path string) (string, error) {
	schema, err := descriptorSchema()
	if err != nil {
		return "", errors.Wrap(err, "compile descriptor schema")
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(item))
	if err != nil {
		return "", errors.Wrapf(err, "validate query %s", path)
	}
	if !result.Valid() {
		first := result.Errors()[0]
		return "", newError(CodeInvalidDescriptor,
			map[string]any{"index": path, "field": first.Field()},
			"query %s: %s", path, first.String())
	}

	d, err := descriptorFromObject(item.(map[string]any))
	if err != nil {
		return "", errors.Wrapf(err, "query %s", path)
	}

	catalog := r.engine.catalog
	m, ok := catalog.Lookup(d.Method)
	if !ok {
		if r.engine.unknown == UnknownFail {
			return "", errors.Wrapf(catalog.unknownMethod(d.Method), "query %s", path)
		}
		r.skip(path, d.Method, "unknown method")
		return "", nil
	}

	if m.Shape == ShapeComposite && len(d.Values) > 0 {
		children, err := r.children(d.Values, path)
		if err != nil {
			return "", err
		}
		if len(children) == 0 {
			r.skip(path, d.Method, "no nested query survived conversion")
			return "", nil
		}
		d.Values = children
	}

	t, err := catalog.FromDescriptor(d)
	if err != nil {
		return "", errors.Wrapf(err, "query %s", path)
	}
	return t.Serialize()
}

// children converts each nested descriptor as a one-element array and decodes
// the resulting serialized tokens back into tokens.
func (r *conversionRun) children(values []any, path string) ([]any, error) {
	out := make([]any, 0, len(values))
	for i, v := range values {
		childPath := path + ".values." + strconv.Itoa(i)
		data, err := json.Marshal([]any{v})
		if err != nil {
			return nil, errors.Wrapf(err, "encode query %s", childPath)
		}
		serialized, err := r.convert(data, func(int) string { return childPath })
		if err != nil {
			return nil, err
		}
		for _, s := range serialized {
			t, err := Deserialize(s)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *conversionRun) skip(path, method, reason string) {
	r.skipped = append(r.skipped, Skipped{Path: path, Method: method, Reason: reason})
	if r.log {
		r.engine.logger.Warnw("Skipping query descriptor",
			logger.FieldMethod, method,
			logger.FieldPath, path,
			logger.FieldReason, reason)
	}
}
