package queryexpr

// Pos represents a position in the input string.
type Pos struct {
	Offset int `json:"offset"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Descriptor is the data-shaped form of one query: {method, attribute?, values?}.
// For the composite methods, Values holds nested descriptors rather than scalars.
type Descriptor struct {
	Method    string `json:"method"`
	Attribute any    `json:"attribute,omitempty"` // string or []string
	Values    []any  `json:"values,omitempty"`
}

// Result is the outcome of evaluating a textual expression.
// On failure Tokens is empty and Error holds the human-readable reason;
// Err keeps the typed error for errors.Is / CodeOf.
type Result struct {
	Tokens []string `json:"tokens"`
	Error  string   `json:"error,omitempty"`
	Err    error    `json:"-"`
}

// Skipped records a descriptor the converter ignored instead of failing the batch.
type Skipped struct {
	Path   string `json:"path"` // index path, e.g. "2" or "2.values.0"
	Method string `json:"method"`
	Reason string `json:"reason"`
}

// Conversion is the detailed outcome of converting a descriptor array.
type Conversion struct {
	Tokens  []string  `json:"tokens"`
	Skipped []Skipped `json:"skipped,omitempty"`
}
