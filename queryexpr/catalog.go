package queryexpr

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Group is the behavioral family a method belongs to.
type Group string

// Method groups.
const (
	GroupComparison Group = "comparison"
	GroupText       Group = "text"
	GroupNull       Group = "null"
	GroupOrder      Group = "order"
	GroupPagination Group = "pagination"
	GroupSelection  Group = "selection"
	GroupTemporal   Group = "temporal"
	GroupGeo        Group = "geo"
	GroupLogical    Group = "logical"
)

// Shape is the arity contract of a method: how positional builder arguments
// and descriptor fields map onto a token's attribute and values.
type Shape int

const (
	ShapeAttrValue Shape = iota // (attribute, value) -> values [value]; with List, value may be a list
	ShapeAttrRange              // (attribute, start, end) -> values [start, end]
	ShapeAttrOnly               // (attribute) -> no values
	ShapeNone                   // () -> neither attribute nor values
	ShapeScalar                 // (value) -> values [value], no attribute
	ShapeNames                  // ([names]) -> values names, no attribute
	ShapeRange                  // (start, end) -> values [start, end], no attribute
	ShapeDistance               // (attribute, geometry, distance, meters?) -> values [[geometry, distance, meters]]
	ShapeGeometry               // (attribute, geometry) -> values [geometry]
	ShapeComposite              // ([queries]) -> values [token, ...]
)

// Expected describes the argument list the shape accepts.
func (s Shape) Expected(list bool) string {
	switch s {
	case ShapeAttrValue:
		if list {
			return "attribute, value | value[]"
		}
		return "attribute, value"
	case ShapeAttrRange:
		return "attribute, start, end"
	case ShapeAttrOnly:
		return "attribute"
	case ShapeNone:
		return "no arguments"
	case ShapeScalar:
		return "value"
	case ShapeNames:
		return "attributes[]"
	case ShapeRange:
		return "start, end"
	case ShapeDistance:
		return "attribute, geometry[], distance, meters?"
	case ShapeGeometry:
		return "attribute, geometry[]"
	case ShapeComposite:
		return "queries[]"
	default:
		return "unknown"
	}
}

// Kind constrains the scalar values a method accepts.
type Kind int

const (
	KindAny    Kind = iota // string, number or boolean
	KindString             // non-empty string
	KindNumber             // any finite number
	KindCount              // non-negative integer
	KindDate               // RFC 3339 timestamp or YYYY-MM-DD date
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindCount:
		return "integer >= 0"
	case KindDate:
		return "date"
	default:
		return "string | number | boolean"
	}
}

// Method describes one builder: its name, arity and value constraints.
type Method struct {
	Name        string
	Group       Group
	Shape       Shape
	Kind        Kind
	List        bool // ShapeAttrValue only: accepts a list of values as well as a single one
	Description string
	Example     string
}

// Signature renders the call form shown in method listings.
func (m Method) Signature() string {
	return fmt.Sprintf("Query.%s(%s)", m.Name, m.Shape.Expected(m.List))
}

// Catalog is an explicit registry of builder methods. The evaluator and the
// converter dispatch through it, so a deployment can extend or restrict the set
// of accepted methods without touching either.
//
// A Catalog is not safe for concurrent mutation; register everything before use.
type Catalog struct {
	methods map[string]Method
	order   []string // method names in registration order
}

// NewCatalog creates a catalog holding the given methods.
func NewCatalog(methods ...Method) *Catalog {
	c := &Catalog{methods: make(map[string]Method, len(methods))}
	for _, m := range methods {
		c.Register(m)
	}
	return c
}

// Register adds or replaces a method.
func (c *Catalog) Register(m Method) {
	if _, exists := c.methods[m.Name]; !exists {
		c.order = append(c.order, m.Name)
	}
	c.methods[m.Name] = m
}

// Lookup returns the named method.
func (c *Catalog) Lookup(name string) (Method, bool) {
	m, ok := c.methods[name]
	return m, ok
}

// Names returns method names in registration order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Restrict returns a new catalog holding only the named methods.
// Naming a method the catalog does not know is an error.
func (c *Catalog) Restrict(names ...string) (*Catalog, error) {
	keep := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := c.methods[name]; !ok {
			return nil, c.unknownMethod(name)
		}
		keep[name] = true
	}
	out := NewCatalog()
	for _, name := range c.order {
		if keep[name] {
			out.Register(c.methods[name])
		}
	}
	return out, nil
}

// Without returns a new catalog minus the named methods. Unknown names are ignored.
func (c *Catalog) Without(names ...string) *Catalog {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	out := NewCatalog()
	for _, name := range c.order {
		if !drop[name] {
			out.Register(c.methods[name])
		}
	}
	return out
}

// Describe lists every method in registration order as JSON-serializable rows.
func (c *Catalog) Describe() []map[string]any {
	rows := make([]map[string]any, 0, len(c.order))
	for _, name := range c.order {
		m := c.methods[name]
		rows = append(rows, map[string]any{
			"method":      m.Name,
			"group":       string(m.Group),
			"signature":   m.Signature(),
			"description": m.Description,
			"example":     m.Example,
		})
	}
	return rows
}

// DescribeFields is the column order of Describe rows.
var DescribeFields = []string{"method", "group", "signature", "description", "example"}

// unknownMethod builds the error for a name missing from the catalog,
// with a hint listing close matches.
func (c *Catalog) unknownMethod(name string) error {
	return c.withSuggestions(
		newError(CodeUnknownMethod, map[string]any{"method": name}, "unknown query method %q", name), name)
}

func (c *Catalog) withSuggestions(err error, name string) error {
	if suggestions := c.suggest(name); len(suggestions) > 0 {
		return errors.WithHintf(err, "did you mean %s?", strings.Join(suggestions, ", "))
	}
	return err
}

func (c *Catalog) suggest(name string) []string {
	if name == "" {
		return nil
	}
	ranks := fuzzy.RankFindFold(name, c.order)
	sort.Sort(ranks)
	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == 3 {
			break
		}
	}
	return out
}

// Build constructs a token from positional builder arguments, the way the
// expression form `name(args...)` calls it. Arguments are canonicalized first:
// Go ints and floats become json.Number, []string becomes []any.
func (c *Catalog) Build(name string, args ...any) (Token, error) {
	m, ok := c.methods[name]
	if !ok {
		return Token{}, c.unknownMethod(name)
	}
	canon := make([]any, len(args))
	for i, a := range args {
		switch x := a.(type) {
		case map[string]any:
			canon[i] = x
		case []any:
			// Lists may carry objects or serialized tokens (composite children),
			// which canonicalValue rejects; the shape lowering handles them.
			canon[i] = x
		default:
			cv, err := canonicalValue(a)
			if err != nil {
				return Token{}, shapeError(m, "argument %d: %s", i+1, err.Error())
			}
			canon[i] = cv
		}
	}
	t, err := c.lower(m, canon)
	if err != nil {
		return Token{}, err
	}
	c.normalizeCounts(t)
	if err := c.check(m, t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// FromDescriptor constructs a token from a data-shaped descriptor. For the
// composite methods, Values must hold children already convertible to tokens
// (Token, serialized token string, or descriptor object).
func (c *Catalog) FromDescriptor(d Descriptor) (Token, error) {
	m, ok := c.methods[d.Method]
	if !ok {
		return Token{}, c.unknownMethod(d.Method)
	}
	attr, err := attributeValue(d.Attribute)
	if err != nil {
		return Token{}, err
	}
	t := Token{Method: m.Name, Attribute: attr}

	switch m.Shape {
	case ShapeComposite:
		children, err := c.children(m, d.Values)
		if err != nil {
			return Token{}, err
		}
		t.Values = children
	case ShapeNames:
		// select may name its attributes in either field.
		if names, isList := attr.([]string); isList && len(d.Values) == 0 {
			t.Attribute = nil
			t.Values = make([]any, len(names))
			for i, name := range names {
				t.Values[i] = name
			}
			break
		}
		if t.Values, err = canonicalValues(m, d.Values); err != nil {
			return Token{}, err
		}
	case ShapeDistance:
		if len(d.Values) != 1 {
			return Token{}, shapeError(m, "values must hold one [geometry, distance, meters?] entry, got %d", len(d.Values))
		}
		entry, isList := d.Values[0].([]any)
		if !isList || len(entry) < 2 || len(entry) > 3 {
			return Token{}, shapeError(m, "values[0] must be [geometry, distance, meters?]")
		}
		vals, err := canonicalValues(m, entry)
		if err != nil {
			return Token{}, err
		}
		if t, err = c.lower(m, append([]any{attr}, vals...)); err != nil {
			return Token{}, err
		}
	default:
		if t.Values, err = canonicalValues(m, d.Values); err != nil {
			return Token{}, err
		}
	}

	c.normalizeCounts(t)
	if err := c.check(m, t); err != nil {
		return Token{}, err
	}
	return t, nil
}

// Validate checks an existing token, including nested composite children,
// against the catalog.
func (c *Catalog) Validate(t Token) error {
	m, ok := c.methods[t.Method]
	if !ok {
		return c.unknownMethod(t.Method)
	}
	return c.check(m, t)
}

// TokenOf coerces a value into a token: a Token is validated, a string is
// deserialized, an object is treated as a descriptor.
func (c *Catalog) TokenOf(v any) (Token, error) {
	switch x := v.(type) {
	case Token:
		t := x.clone()
		c.normalizeCounts(t)
		if err := c.Validate(t); err != nil {
			return Token{}, err
		}
		return t, nil
	case string:
		t, err := Deserialize(x)
		if err != nil {
			return Token{}, err
		}
		c.normalizeCounts(t)
		if err := c.Validate(t); err != nil {
			return Token{}, err
		}
		return t, nil
	case map[string]any:
		d, err := descriptorFromObject(x)
		if err != nil {
			return Token{}, err
		}
		return c.FromDescriptor(d)
	default:
		return Token{}, newError(CodeInvalidExpressionItem, nil, "%s is not a query", describeValue(v))
	}
}

func (c *Catalog) children(m Method, values []any) ([]any, error) {
	if len(values) == 0 {
		return nil, shapeError(m, "at least one nested query is required")
	}
	out := make([]any, 0, len(values))
	for i, v := range values {
		child, err := c.TokenOf(v)
		if err != nil {
			return nil, errors.Wrapf(err, "%s query %d", m.Name, i)
		}
		out = append(out, child)
	}
	return out, nil
}

func canonicalValues(m Method, values []any) ([]any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]any, 0, len(values))
	for i, v := range values {
		cv, err := canonicalValue(v)
		if err != nil {
			return nil, shapeError(m, "value %d: %s", i, err.Error())
		}
		out = append(out, cv)
	}
	return out, nil
}

// lower maps positional arguments onto a token according to the method's shape.
func (c *Catalog) lower(m Method, args []any) (Token, error) {
	t := Token{Method: m.Name}
	want := func(n int) error {
		if len(args) != n {
			return shapeError(m, "got %d argument(s)", len(args))
		}
		return nil
	}

	switch m.Shape {
	case ShapeAttrValue:
		if err := want(2); err != nil {
			return Token{}, err
		}
		t.Attribute = args[0]
		if list, isList := args[1].([]any); isList {
			if !m.List {
				return Token{}, shapeError(m, "value must be a single value, not a list")
			}
			vals, err := canonicalValues(m, list)
			if err != nil {
				return Token{}, err
			}
			t.Values = vals
		} else {
			t.Values = []any{args[1]}
		}
	case ShapeAttrRange:
		if err := want(3); err != nil {
			return Token{}, err
		}
		t.Attribute = args[0]
		t.Values = []any{args[1], args[2]}
	case ShapeAttrOnly:
		if err := want(1); err != nil {
			return Token{}, err
		}
		t.Attribute = args[0]
	case ShapeNone:
		if err := want(0); err != nil {
			return Token{}, err
		}
	case ShapeScalar:
		if err := want(1); err != nil {
			return Token{}, err
		}
		t.Values = []any{args[0]}
	case ShapeNames:
		if err := want(1); err != nil {
			return Token{}, err
		}
		list, isList := args[0].([]any)
		if !isList {
			return Token{}, shapeError(m, "attributes must be a list")
		}
		vals, err := canonicalValues(m, list)
		if err != nil {
			return Token{}, err
		}
		t.Values = vals
	case ShapeRange:
		if err := want(2); err != nil {
			return Token{}, err
		}
		t.Values = []any{args[0], args[1]}
	case ShapeDistance:
		if len(args) != 3 && len(args) != 4 {
			return Token{}, shapeError(m, "got %d argument(s)", len(args))
		}
		geometry, err := geometryArg(m, args[1])
		if err != nil {
			return Token{}, err
		}
		meters := any(true)
		if len(args) == 4 {
			meters = args[3]
		}
		t.Attribute = args[0]
		t.Values = []any{[]any{geometry, args[2], meters}}
	case ShapeGeometry:
		if err := want(2); err != nil {
			return Token{}, err
		}
		geometry, err := geometryArg(m, args[1])
		if err != nil {
			return Token{}, err
		}
		t.Attribute = args[0]
		t.Values = []any{geometry}
	case ShapeComposite:
		if err := want(1); err != nil {
			return Token{}, err
		}
		list, isList := args[0].([]any)
		if !isList {
			return Token{}, shapeError(m, "queries must be a list")
		}
		children, err := c.children(m, list)
		if err != nil {
			return Token{}, err
		}
		t.Values = children
	}
	return t, nil
}

func geometryArg(m Method, v any) (any, error) {
	list, isList := v.([]any)
	if !isList {
		return nil, shapeError(m, "geometry must be a list of coordinates")
	}
	return canonicalValue(list)
}

// check enforces the method's contract on a constructed token.
func (c *Catalog) check(m Method, t Token) error {
	if t.Method != m.Name {
		return shapeError(m, "token method is %q", t.Method)
	}

	needsAttr := false
	switch m.Shape {
	case ShapeAttrValue, ShapeAttrRange, ShapeAttrOnly, ShapeDistance, ShapeGeometry:
		needsAttr = true
	}
	if needsAttr {
		name, ok := t.Attribute.(string)
		if !ok || name == "" {
			return shapeError(m, "attribute must be a non-empty string")
		}
	} else if t.Attribute != nil {
		return shapeError(m, "takes no attribute")
	}

	switch m.Shape {
	case ShapeAttrValue:
		if len(t.Values) == 0 {
			return shapeError(m, "at least one value is required")
		}
		if !m.List && len(t.Values) != 1 {
			return shapeError(m, "exactly one value is required, got %d", len(t.Values))
		}
		return checkScalars(m, t.Values)
	case ShapeAttrRange, ShapeRange:
		if len(t.Values) != 2 {
			return shapeError(m, "exactly two values are required, got %d", len(t.Values))
		}
		return checkScalars(m, t.Values)
	case ShapeAttrOnly, ShapeNone:
		if len(t.Values) != 0 {
			return shapeError(m, "takes no values")
		}
	case ShapeScalar:
		if len(t.Values) != 1 {
			return shapeError(m, "exactly one value is required, got %d", len(t.Values))
		}
		return checkScalars(m, t.Values)
	case ShapeNames:
		if len(t.Values) == 0 {
			return shapeError(m, "at least one attribute is required")
		}
		for i, v := range t.Values {
			if s, ok := v.(string); !ok || s == "" {
				return shapeError(m, "attribute %d must be a non-empty string", i)
			}
		}
	case ShapeDistance:
		if len(t.Values) != 1 {
			return shapeError(m, "values must hold one [geometry, distance, meters] entry")
		}
		entry, ok := t.Values[0].([]any)
		if !ok || len(entry) != 3 {
			return shapeError(m, "values[0] must be [geometry, distance, meters]")
		}
		if err := checkGeometry(m, entry[0]); err != nil {
			return err
		}
		if _, ok := entry[1].(json.Number); !ok {
			return shapeError(m, "distance must be a number")
		}
		if _, ok := entry[2].(bool); !ok {
			return shapeError(m, "meters must be a boolean")
		}
	case ShapeGeometry:
		if len(t.Values) != 1 {
			return shapeError(m, "values must hold exactly one geometry")
		}
		return checkGeometry(m, t.Values[0])
	case ShapeComposite:
		if len(t.Values) == 0 {
			return shapeError(m, "at least one nested query is required")
		}
		for i, v := range t.Values {
			child, ok := v.(Token)
			if !ok {
				return shapeError(m, "value %d is not a query", i)
			}
			if err := c.Validate(child); err != nil {
				return errors.Wrapf(err, "%s query %d", m.Name, i)
			}
		}
	}
	return nil
}

func checkScalars(m Method, values []any) error {
	for i, v := range values {
		if err := checkKind(m, v); err != nil {
			return shapeError(m, "value %d: %s", i, err.Error())
		}
	}
	return nil
}

func checkKind(m Method, v any) error {
	switch m.Kind {
	case KindAny:
		switch v.(type) {
		case string, bool, json.Number:
			return nil
		}
	case KindString:
		if s, ok := v.(string); ok && s != "" {
			return nil
		}
	case KindNumber:
		if _, ok := v.(json.Number); ok {
			return nil
		}
	case KindCount:
		if n, ok := v.(json.Number); ok {
			if _, ok := countOf(n); ok {
				return nil
			}
		}
	case KindDate:
		if s, ok := v.(string); ok && isDate(s) {
			return nil
		}
	}
	return errors.Newf("expected %s, got %s", m.Kind, describeValue(v))
}

// countOf reads a non-negative integer count. Integral numbers written with a
// fraction or exponent (10.0, 1e1) are accepted.
func countOf(n json.Number) (int64, bool) {
	if i, err := n.Int64(); err == nil {
		return i, i >= 0
	}
	f, err := n.Float64()
	if err != nil || f < 0 || f > 1<<53 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// normalizeCounts rewrites count values of t, and of its nested queries, to
// their integer text. t must own its values.
func (c *Catalog) normalizeCounts(t Token) {
	m, ok := c.methods[t.Method]
	if !ok {
		return
	}
	for i, v := range t.Values {
		switch x := v.(type) {
		case Token:
			c.normalizeCounts(x)
		case json.Number:
			if m.Kind != KindCount {
				continue
			}
			if n, ok := countOf(x); ok {
				t.Values[i] = json.Number(strconv.FormatInt(n, 10))
			}
		}
	}
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05.000", "2006-01-02T15:04:05", "2006-01-02"}

func isDate(s string) bool {
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// checkGeometry accepts a coordinate pair or arbitrarily nested non-empty
// lists of coordinate pairs (line, polygon).
func checkGeometry(m Method, v any) error {
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		return shapeError(m, "geometry must be a non-empty list")
	}
	if _, isNum := list[0].(json.Number); isNum {
		if len(list) != 2 {
			return shapeError(m, "a coordinate must be [longitude, latitude]")
		}
		for _, n := range list {
			if _, ok := n.(json.Number); !ok {
				return shapeError(m, "coordinates must be numbers")
			}
		}
		return nil
	}
	for _, item := range list {
		if err := checkGeometry(m, item); err != nil {
			return err
		}
	}
	return nil
}

func descriptorFromObject(obj map[string]any) (Descriptor, error) {
	method, ok := obj["method"].(string)
	if !ok || method == "" {
		return Descriptor{}, newError(CodeInvalidDescriptor, map[string]any{"field": "method"},
			"descriptor method must be a non-empty string")
	}
	d := Descriptor{Method: method, Attribute: obj["attribute"]}
	switch v := obj["values"].(type) {
	case nil:
	case []any:
		d.Values = v
	default:
		return Descriptor{}, newError(CodeInvalidDescriptor, map[string]any{"field": "values"},
			"descriptor values must be an array")
	}
	return d, nil
}

func describeValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return fmt.Sprintf("string %q", x)
	case json.Number:
		return "number " + x.String()
	case bool:
		return fmt.Sprintf("boolean %t", x)
	case []any:
		return "list"
	case map[string]any:
		return "object"
	case Token:
		return "query " + x.Method
	default:
		return fmt.Sprintf("%T", v)
	}
}

func isComposite(method string) bool {
	return method == "or" || method == "and"
}
