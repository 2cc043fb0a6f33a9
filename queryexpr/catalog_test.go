package queryexpr

import (
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	names := c.Names()
	assert.Len(t, names, 46)
	assert.Equal(t, "equal", names[0])
	assert.Equal(t, "and", names[len(names)-1])

	groups := map[Group]int{}
	for _, name := range names {
		m, ok := c.Lookup(name)
		require.True(t, ok)
		groups[m.Group]++
		assert.NotEmpty(t, m.Description, name)
		assert.NotEmpty(t, m.Example, name)
	}
	assert.Equal(t, map[Group]int{
		GroupComparison: 8,
		GroupText:       8,
		GroupNull:       2,
		GroupOrder:      3,
		GroupPagination: 4,
		GroupSelection:  1,
		GroupTemporal:   6,
		GroupGeo:        12,
		GroupLogical:    2,
	}, groups)
}

func TestDefaultCatalog_Independent(t *testing.T) {
	a := DefaultCatalog()
	a.Register(Method{Name: "regex", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString})

	_, ok := DefaultCatalog().Lookup("regex")
	assert.False(t, ok)
}

func TestCatalogBuild(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		name   string
		method string
		args   []any
		want   Token
	}{
		{"equal scalar", "equal", []any{"status", "published"},
			Token{Method: "equal", Attribute: "status", Values: []any{"published"}}},
		{"equal list", "equal", []any{"status", []any{"a", "b"}},
			Token{Method: "equal", Attribute: "status", Values: []any{"a", "b"}}},
		{"contains string slice", "contains", []any{"tags", []string{"go"}},
			Token{Method: "contains", Attribute: "tags", Values: []any{"go"}}},
		{"between", "between", []any{"age", 18, 65},
			Token{Method: "between", Attribute: "age", Values: []any{json.Number("18"), json.Number("65")}}},
		{"isNull", "isNull", []any{"deletedAt"},
			Token{Method: "isNull", Attribute: "deletedAt"}},
		{"orderRandom", "orderRandom", nil,
			Token{Method: "orderRandom"}},
		{"limit", "limit", []any{10},
			Token{Method: "limit", Values: []any{json.Number("10")}}},
		{"limit written with exponent", "limit", []any{json.Number("1e1")},
			Token{Method: "limit", Values: []any{json.Number("10")}}},
		{"offset written with fraction", "offset", []any{json.Number("20.0")},
			Token{Method: "offset", Values: []any{json.Number("20")}}},
		{"cursorAfter", "cursorAfter", []any{"abc"},
			Token{Method: "cursorAfter", Values: []any{"abc"}}},
		{"select", "select", []any{[]any{"a", "b"}},
			Token{Method: "select", Values: []any{"a", "b"}}},
		{"createdBetween", "createdBetween", []any{"2024-01-01", "2024-12-31T23:59:59.000"},
			Token{Method: "createdBetween", Values: []any{"2024-01-01", "2024-12-31T23:59:59.000"}}},
		{"distance default meters", "distanceLessThan", []any{"loc", []any{1, 2}, 100},
			Token{Method: "distanceLessThan", Attribute: "loc", Values: []any{
				[]any{[]any{json.Number("1"), json.Number("2")}, json.Number("100"), true},
			}}},
		{"distance explicit meters", "distanceEqual", []any{"loc", []any{1, 2}, 5, false},
			Token{Method: "distanceEqual", Attribute: "loc", Values: []any{
				[]any{[]any{json.Number("1"), json.Number("2")}, json.Number("5"), false},
			}}},
		{"polygon", "overlaps", []any{"area", []any{[]any{0, 0}, []any{0, 1}, []any{1, 1}, []any{0, 0}}},
			Token{Method: "overlaps", Attribute: "area", Values: []any{
				[]any{
					[]any{json.Number("0"), json.Number("0")},
					[]any{json.Number("0"), json.Number("1")},
					[]any{json.Number("1"), json.Number("1")},
					[]any{json.Number("0"), json.Number("0")},
				},
			}}},
		{"or from serialized children", "or", []any{[]any{
			`{"method":"equal","attribute":"a","values":["1"]}`,
			map[string]any{"method": "isNull", "attribute": "b"},
		}}, Token{Method: "or", Values: []any{
			Token{Method: "equal", Attribute: "a", Values: []any{"1"}},
			Token{Method: "isNull", Attribute: "b"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.Build(tt.method, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogBuild_ShapeErrors(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		name    string
		method  string
		args    []any
		wantMsg string
	}{
		{"missing value", "equal", []any{"a"}, "equal expects (attribute, value | value[]): got 1 argument(s)"},
		{"list for single-value method", "lessThan", []any{"a", []any{1, 2}}, "lessThan expects (attribute, value)"},
		{"empty list", "equal", []any{"a", []any{}}, "at least one value is required"},
		{"numeric attribute", "equal", []any{1, "x"}, "attribute must be a non-empty string"},
		{"empty attribute", "isNull", []any{""}, "attribute must be a non-empty string"},
		{"null value", "equal", []any{"a", nil}, "null is not a valid query value"},
		{"object value", "equal", []any{"a", map[string]any{"x": 1}}, "expected string | number | boolean, got object"},
		{"extra argument", "isNull", []any{"a", "b"}, "isNull expects (attribute)"},
		{"arguments to orderRandom", "orderRandom", []any{"a"}, "orderRandom expects (no arguments)"},
		{"negative limit", "limit", []any{-1}, "expected integer >= 0"},
		{"fractional offset", "offset", []any{1.5}, "expected integer >= 0"},
		{"string limit", "limit", []any{"10"}, `got string "10"`},
		{"empty cursor", "cursorAfter", []any{""}, "expected string"},
		{"select scalar", "select", []any{"a"}, "attributes must be a list"},
		{"select empty", "select", []any{[]any{}}, "at least one attribute is required"},
		{"select number", "select", []any{[]any{"a", 1}}, "attribute 1 must be a non-empty string"},
		{"bad date", "createdBefore", []any{"yesterday"}, "expected date"},
		{"range arity", "updatedBetween", []any{"2024-01-01"}, "updatedBetween expects (start, end)"},
		{"text kind", "startsWith", []any{"name", 5}, "expected string, got number 5"},
		{"geometry scalar", "intersects", []any{"area", 5}, "geometry must be a list of coordinates"},
		{"geometry triple", "touches", []any{"area", []any{1, 2, 3}}, "a coordinate must be [longitude, latitude]"},
		{"geometry empty", "crosses", []any{"area", []any{}}, "geometry must be a non-empty list"},
		{"distance not numeric", "distanceEqual", []any{"loc", []any{1, 2}, "far"}, "distance must be a number"},
		{"meters not bool", "distanceEqual", []any{"loc", []any{1, 2}, 1, "yes"}, "meters must be a boolean"},
		{"composite scalar", "and", []any{"x"}, "queries must be a list"},
		{"composite empty", "or", []any{[]any{}}, "at least one nested query is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Build(tt.method, tt.args...)
			require.Error(t, err)
			assert.Equal(t, CodeInvalidArgumentShape, CodeOf(err))
			assert.True(t, errors.Is(err, ErrInvalidArgumentShape))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestCatalogBuild_CompositeChildErrors(t *testing.T) {
	c := DefaultCatalog()

	_, err := c.Build("or", []any{`{"method":"limit","values":[-1]}`})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidArgumentShape, CodeOf(err))
	assert.Contains(t, err.Error(), "or query 0")

	_, err = c.Build("and", []any{42})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidExpressionItem, CodeOf(err))
}

func TestCatalogBuild_UnknownMethod(t *testing.T) {
	_, err := DefaultCatalog().Build("equl", "a", "b")
	require.Error(t, err)
	assert.Equal(t, CodeUnknownMethod, CodeOf(err))
	assert.True(t, errors.Is(err, ErrUnknownMethod))
	assert.Equal(t, `unknown query method "equl"`, err.Error())
	assert.Contains(t, Diagnostic(err), "did you mean equal")
}

func TestCatalogRestrictWithout(t *testing.T) {
	c := DefaultCatalog()

	r, err := c.Restrict("limit", "equal", "or")
	require.NoError(t, err)
	assert.Equal(t, []string{"equal", "limit", "or"}, r.Names())

	_, err = r.Build("offset", 1)
	assert.Equal(t, CodeUnknownMethod, CodeOf(err))

	_, err = c.Restrict("limt")
	require.Error(t, err)
	assert.Contains(t, Diagnostic(err), "did you mean limit")

	w := c.Without("or", "and", "nope")
	assert.Len(t, w.Names(), 44)
	_, ok := w.Lookup("or")
	assert.False(t, ok)
	assert.Len(t, c.Names(), 46)
}

func TestCatalogRegister_Custom(t *testing.T) {
	c := NewCatalog(Method{Name: "regex", Group: GroupText, Shape: ShapeAttrValue, Kind: KindString})
	tok, err := c.Build("regex", "name", "^a")
	require.NoError(t, err)
	assert.Equal(t, `{"method":"regex","attribute":"name","values":["^a"]}`, tok.String())

	c.Register(Method{Name: "regex", Group: GroupText, Shape: ShapeAttrOnly})
	assert.Equal(t, []string{"regex"}, c.Names())
	_, err = c.Build("regex", "name", "^a")
	assert.Error(t, err)
}

func TestCatalogFromDescriptor(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		name string
		in   Descriptor
		want Token
	}{
		{"limit", Descriptor{Method: "limit", Values: []any{json.Number("25")}},
			Token{Method: "limit", Values: []any{json.Number("25")}}},
		{"equal list", Descriptor{Method: "equal", Attribute: "s", Values: []any{"a", "b"}},
			Token{Method: "equal", Attribute: "s", Values: []any{"a", "b"}}},
		{"select via attribute", Descriptor{Method: "select", Attribute: []any{"a", "b"}},
			Token{Method: "select", Values: []any{"a", "b"}}},
		{"select via values", Descriptor{Method: "select", Values: []any{"a"}},
			Token{Method: "select", Values: []any{"a"}}},
		{"distance without meters", Descriptor{Method: "distanceGreaterThan", Attribute: "loc",
			Values: []any{[]any{[]any{1, 2}, 10}}},
			Token{Method: "distanceGreaterThan", Attribute: "loc", Values: []any{
				[]any{[]any{json.Number("1"), json.Number("2")}, json.Number("10"), true},
			}}},
		{"composite descriptors", Descriptor{Method: "and", Values: []any{
			map[string]any{"method": "greaterThan", "attribute": "n", "values": []any{json.Number("1")}},
			Token{Method: "lessThan", Attribute: "n", Values: []any{json.Number("9")}},
		}}, Token{Method: "and", Values: []any{
			Token{Method: "greaterThan", Attribute: "n", Values: []any{json.Number("1")}},
			Token{Method: "lessThan", Attribute: "n", Values: []any{json.Number("9")}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.FromDescriptor(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalogFromDescriptor_Errors(t *testing.T) {
	c := DefaultCatalog()
	tests := []struct {
		name string
		in   Descriptor
		code Code
	}{
		{"unknown", Descriptor{Method: "frobnicate"}, CodeUnknownMethod},
		{"attribute on limit", Descriptor{Method: "limit", Attribute: "x", Values: []any{1}}, CodeInvalidArgumentShape},
		{"two limits", Descriptor{Method: "limit", Values: []any{1, 2}}, CodeInvalidArgumentShape},
		{"values on isNull", Descriptor{Method: "isNull", Attribute: "a", Values: []any{1}}, CodeInvalidArgumentShape},
		{"between one value", Descriptor{Method: "between", Attribute: "a", Values: []any{1}}, CodeInvalidArgumentShape},
		{"distance flat values", Descriptor{Method: "distanceEqual", Attribute: "a", Values: []any{[]any{1, 2}, 3}}, CodeInvalidArgumentShape},
		{"distance short entry", Descriptor{Method: "distanceEqual", Attribute: "a", Values: []any{[]any{[]any{1, 2}}}}, CodeInvalidArgumentShape},
		{"composite no values", Descriptor{Method: "or"}, CodeInvalidArgumentShape},
		{"bad attribute", Descriptor{Method: "isNull", Attribute: 5}, CodeInvalidDescriptor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.FromDescriptor(tt.in)
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestCatalogValidate(t *testing.T) {
	c := DefaultCatalog()

	assert.NoError(t, c.Validate(Token{Method: "limit", Values: []any{json.Number("1")}}))
	assert.Error(t, c.Validate(Token{Method: "limit", Values: []any{1}}), "non-canonical number")
	assert.Error(t, c.Validate(Token{Method: "and", Values: []any{"x"}}))

	err := c.Validate(Token{Method: "or", Values: []any{
		Token{Method: "equal", Attribute: "a", Values: []any{"1"}},
		Token{Method: "equal"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "or query 1")
}

func TestCatalogDescribe(t *testing.T) {
	rows := DefaultCatalog().Describe()
	require.Len(t, rows, 46)

	first := rows[0]
	for _, field := range DescribeFields {
		assert.Contains(t, first, field)
	}
	assert.Equal(t, "equal", first["method"])
	assert.Equal(t, "comparison", first["group"])
	assert.Equal(t, "Query.equal(attribute, value | value[])", first["signature"])
}

func TestMethodSignature(t *testing.T) {
	c := DefaultCatalog()
	want := map[string]string{
		"limit":            "Query.limit(value)",
		"orderRandom":      "Query.orderRandom(no arguments)",
		"select":           "Query.select(attributes[])",
		"distanceLessThan": "Query.distanceLessThan(attribute, geometry[], distance, meters?)",
		"or":               "Query.or(queries[])",
	}
	for name, sig := range want {
		m, ok := c.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, sig, m.Signature())
	}
}
