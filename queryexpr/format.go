package queryexpr

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cockroachdb/errors"
)

// OutputMode selects how command results are rendered.
type OutputMode int

const (
	// JSONOutput renders indented JSON.
	JSONOutput OutputMode = iota
	// CompactOutput renders line-oriented text: one token per line, tables as CSV.
	CompactOutput
)

// ParseOutputMode maps "json" or "compact" (any case) to an OutputMode.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(s) {
	case "json":
		return JSONOutput, nil
	case "compact":
		return CompactOutput, nil
	default:
		return 0, errors.Newf("unknown format %q: use \"json\" or \"compact\"", s)
	}
}

// Render formats result in the given mode. fieldOrder fixes column order for
// tabular compact output and is ignored for JSON.
func Render(result any, mode OutputMode, fieldOrder []string) ([]byte, error) {
	if mode == CompactOutput {
		return FormatCompact(result, fieldOrder)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// FormatCompact formats a result in compact text form.
//
// A token sequence ([]string) is printed one token per line.
// A Result prints its tokens the same way, or "error:<message>" on failure.
// Lists of maps become a CSV-style table with a header row in fieldOrder.
// A single map becomes key:value lines.
// Anything else falls back to JSON.
func FormatCompact(result any, fieldOrder []string) ([]byte, error) {
	switch v := result.(type) {
	case []string:
		return tokenLines(v), nil
	case Result:
		if v.Error != "" {
			return keyValues(map[string]any{"error": v.Error}, nil), nil
		}
		return tokenLines(v.Tokens), nil
	case *Conversion:
		return tokenLines(v.Tokens), nil
	case []map[string]any:
		return table(v, fieldOrder)
	case []any:
		rows := make([]map[string]any, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return json.Marshal(v)
			}
			rows[i] = row
		}
		return table(rows, fieldOrder)
	case map[string]any:
		return keyValues(v, fieldOrder), nil
	default:
		return json.Marshal(result)
	}
}

func tokenLines(tokens []string) []byte {
	if len(tokens) == 0 {
		return nil
	}
	return []byte(strings.Join(tokens, "\n") + "\n")
}

// columns picks the fields to print for row: order when it names at least
// one of row's keys, otherwise every key of row sorted.
func columns(row map[string]any, order []string) []string {
	known := func(field string) bool {
		_, ok := row[field]
		return ok
	}
	if slices.ContainsFunc(order, known) {
		return order
	}
	return slices.Sorted(maps.Keys(row))
}

// table writes rows as CSV under a header line. Columns come from the first
// row when order does not apply to it.
func table(rows []map[string]any, order []string) ([]byte, error) {
	header := order
	if len(rows) > 0 {
		header = columns(rows[0], order)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, "write header")
	}
	record := make([]string, len(header))
	for n, row := range rows {
		for i, field := range header {
			record[i] = cell(row[field])
		}
		if err := w.Write(record); err != nil {
			return nil, errors.Wrapf(err, "write row %d", n)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flush table")
	}
	return buf.Bytes(), nil
}

var lineBreaks = strings.NewReplacer("\n", `\n`, "\r", `\r`)

// keyValues writes one field:value line per column of m. Line breaks inside
// values are escaped so every field stays on its own line.
func keyValues(m map[string]any, order []string) []byte {
	var b strings.Builder
	for _, field := range columns(m, order) {
		b.WriteString(field)
		b.WriteByte(':')
		lineBreaks.WriteString(&b, cell(m[field]))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// cell renders a value as text; lists and objects are written as JSON and
// tokens in their serialized form.
func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string, []any, map[string]any:
		if data, err := json.Marshal(x); err == nil {
			return string(data)
		}
	}
	return fmt.Sprint(v)
}
