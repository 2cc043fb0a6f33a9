package queryexpr

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Node
	}{
		{
			name:  "single call in a list",
			input: `[equal("a", 1)]`,
			want: &List{
				Items: []Node{&Call{
					Name: "equal",
					Args: []Node{
						&Literal{Value: "a", Pos: Pos{Offset: 7, Line: 1, Column: 8}},
						&Literal{Value: json.Number("1"), Pos: Pos{Offset: 12, Line: 1, Column: 13}},
					},
					Pos: Pos{Offset: 1, Line: 1, Column: 2},
				}},
				Pos: Pos{Offset: 0, Line: 1, Column: 1},
			},
		},
		{
			name:  "qualified call",
			input: "Query.limit(10)",
			want: &Call{
				Namespace: "Query",
				Name:      "limit",
				Args:      []Node{&Literal{Value: json.Number("10"), Pos: Pos{Offset: 12, Line: 1, Column: 13}}},
				Pos:       Pos{Offset: 0, Line: 1, Column: 1},
			},
		},
		{
			name:  "call without arguments",
			input: "orderRandom()",
			want:  &Call{Name: "orderRandom", Pos: Pos{Offset: 0, Line: 1, Column: 1}},
		},
		{
			name:  "empty list",
			input: "[]",
			want:  &List{Pos: Pos{Offset: 0, Line: 1, Column: 1}},
		},
		{
			name:  "trailing comma",
			input: "[1,]",
			want: &List{
				Items: []Node{&Literal{Value: json.Number("1"), Pos: Pos{Offset: 1, Line: 1, Column: 2}}},
				Pos:   Pos{Offset: 0, Line: 1, Column: 1},
			},
		},
		{
			name:  "keywords",
			input: "[true, false, null]",
			want: &List{
				Items: []Node{
					&Literal{Value: true, Pos: Pos{Offset: 1, Line: 1, Column: 2}},
					&Literal{Value: false, Pos: Pos{Offset: 7, Line: 1, Column: 8}},
					&Literal{Value: nil, Pos: Pos{Offset: 14, Line: 1, Column: 15}},
				},
				Pos: Pos{Offset: 0, Line: 1, Column: 1},
			},
		},
		{
			name:  "object with identifier and string keys",
			input: `{method: "limit", "values": [1],}`,
			want: &Object{
				Members: []Member{
					{Key: "method", Value: &Literal{Value: "limit", Pos: Pos{Offset: 9, Line: 1, Column: 10}},
						Pos: Pos{Offset: 1, Line: 1, Column: 2}},
					{Key: "values", Value: &List{
						Items: []Node{&Literal{Value: json.Number("1"), Pos: Pos{Offset: 29, Line: 1, Column: 30}}},
						Pos:   Pos{Offset: 28, Line: 1, Column: 29},
					}, Pos: Pos{Offset: 18, Line: 1, Column: 19}},
				},
				Pos: Pos{Offset: 0, Line: 1, Column: 1},
			},
		},
		{
			name:  "empty object",
			input: "{}",
			want:  &Object{Members: []Member{}, Pos: Pos{Offset: 0, Line: 1, Column: 1}},
		},
		{
			name:  "multiline",
			input: "[\n  limit(1),\n  offset(2)\n]",
			want: &List{
				Items: []Node{
					&Call{Name: "limit",
						Args: []Node{&Literal{Value: json.Number("1"), Pos: Pos{Offset: 10, Line: 2, Column: 9}}},
						Pos:  Pos{Offset: 4, Line: 2, Column: 3}},
					&Call{Name: "offset",
						Args: []Node{&Literal{Value: json.Number("2"), Pos: Pos{Offset: 23, Line: 3, Column: 10}}},
						Pos:  Pos{Offset: 16, Line: 3, Column: 3}},
				},
				Pos: Pos{Offset: 0, Line: 1, Column: 1},
			},
		},
		{
			name:  "comments are skipped",
			input: "// page one\n[/* first */ limit(1)]",
			want: &List{
				Items: []Node{&Call{Name: "limit",
					Args: []Node{&Literal{Value: json.Number("1"), Pos: Pos{Offset: 31, Line: 2, Column: 20}}},
					Pos:  Pos{Offset: 25, Line: 2, Column: 14}}},
				Pos: Pos{Offset: 12, Line: 2, Column: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				gotJSON, _ := json.Marshal(got)
				wantJSON, _ := json.Marshal(tt.want)
				t.Errorf("Parse(%q)\ngot:  %s\nwant: %s", tt.input, gotJSON, wantJSON)
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "   \n\t", "// nothing here", "/* block */", "// a\n/* b */\n"} {
		node, err := Parse(input)
		if err != nil {
			t.Errorf("Parse(%q): unexpected error: %v", input, err)
		}
		if node != nil {
			t.Errorf("Parse(%q) = %#v, want nil", input, node)
		}
	}
}

func TestParse_Literals(t *testing.T) {
	tests := []struct {
		input string
		want  any
	}{
		{`"plain"`, "plain"},
		{`'single'`, "single"},
		{`'it\'s'`, "it's"},
		{`"say \"hi\""`, `say "hi"`},
		{`"tab\there"`, "tab\there"},
		{`"a\\b\/c"`, `a\b/c`},
		{`"\u00e9"`, "é"},
		{`"\ud83d\ude00"`, "😀"},
		{`"\ud83d"`, "\ufffd"},
		{`"日本"`, "日本"},
		{"0", json.Number("0")},
		{"-1.5e3", json.Number("-1.5e3")},
		{"2E+10", json.Number("2E+10")},
		{"0.25", json.Number("0.25")},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			node, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			lit, ok := node.(*Literal)
			if !ok {
				t.Fatalf("got %T, want *Literal", node)
			}
			if lit.Value != tt.want {
				t.Errorf("Value = %#v, want %#v", lit.Value, tt.want)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
		wantPos Pos
	}{
		{"missing value after comma", `[equal("a",]`, "expected a value", Pos{Offset: 11, Line: 1, Column: 12}},
		{"unclosed call", `[equal("a"`, "expected ',' or ')'", Pos{Offset: 10, Line: 1, Column: 11}},
		{"unclosed list", `[limit(1)`, "expected ',' or ']'", Pos{Offset: 9, Line: 1, Column: 10}},
		{"missing comma", `[limit(1) offset(2)]`, "expected ',' or ']'", Pos{Offset: 10, Line: 1, Column: 11}},
		{"trailing input", `[limit(1)] x`, "unexpected input after expression", Pos{Offset: 11, Line: 1, Column: 12}},
		{"bare identifier", `[foo]`, "foo is not defined", Pos{Offset: 1, Line: 1, Column: 2}},
		{"dangling qualifier", `[Query.]`, "expected identifier", Pos{Offset: 7, Line: 1, Column: 8}},
		{"qualifier without call", `Query.limit`, "expected '('", Pos{Offset: 11, Line: 1, Column: 12}},
		{"numeric object key", `{1: 2}`, "expected object key", Pos{Offset: 1, Line: 1, Column: 2}},
		{"missing colon", `{a 2}`, "expected ':'", Pos{Offset: 3, Line: 1, Column: 4}},
		{"unterminated string", `["abc`, "unterminated string literal", Pos{Offset: 1, Line: 1, Column: 2}},
		{"newline in string", "[\"ab\ncd\"]", "unterminated string literal", Pos{Offset: 1, Line: 1, Column: 2}},
		{"bad escape", `"a\qb"`, "invalid escape sequence", Pos{Offset: 2, Line: 1, Column: 3}},
		{"bad unicode escape", `"\u12g4"`, "invalid unicode escape", Pos{Offset: 1, Line: 1, Column: 2}},
		{"unterminated comment", "[limit(1)] /* x", "unterminated block comment", Pos{Offset: 11, Line: 1, Column: 12}},
		{"lone slash", "[1 / 2]", `unexpected character "/"`, Pos{Offset: 3, Line: 1, Column: 4}},
		{"unexpected character", "[@]", `unexpected character "@"`, Pos{Offset: 1, Line: 1, Column: 2}},
		{"leading zero", "[01]", "malformed number", Pos{Offset: 1, Line: 1, Column: 2}},
		{"trailing dot", "[1.]", "malformed number", Pos{Offset: 1, Line: 1, Column: 2}},
		{"lone minus", "[-]", "malformed number", Pos{Offset: 1, Line: 1, Column: 2}},
		{"digits then letters", "[1abc]", "malformed number", Pos{Offset: 1, Line: 1, Column: 2}},
		{"empty exponent", "[1e]", "malformed number", Pos{Offset: 1, Line: 1, Column: 2}},
		{"error on second line", "[\n  @]", `unexpected character "@"`, Pos{Offset: 4, Line: 2, Column: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if pe.Pos != tt.wantPos {
				t.Errorf("Pos = %+v, want %+v", pe.Pos, tt.wantPos)
			}
			if !errors.Is(err, ErrEvaluationFailure) {
				t.Error("parse errors must unwrap to ErrEvaluationFailure")
			}
		})
	}
}

func TestParseError_StructuredFields(t *testing.T) {
	_, err := Parse(`[equal("a",]`)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Got != "]" {
		t.Errorf("Got = %q, want %q", pe.Got, "]")
	}
	if pe.Expected == "" {
		t.Error("expected ParseError.Expected to be non-empty")
	}
	want := `parse error at 1:12: expected a value (got "]", expected call, array, object, string or number)`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	_, err = Parse(`[limit(1)`)
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Got != "end of input" {
		t.Errorf("Got = %q, want end of input", pe.Got)
	}
}

func TestParse_DepthLimit(t *testing.T) {
	ok := strings.Repeat("[", maxDepth) + strings.Repeat("]", maxDepth)
	if _, err := Parse(ok); err != nil {
		t.Fatalf("%d levels: unexpected error: %v", maxDepth, err)
	}

	deep := strings.Repeat("[", maxDepth+1) + strings.Repeat("]", maxDepth+1)
	_, err := Parse(deep)
	if err == nil {
		t.Fatalf("%d levels: expected error", maxDepth+1)
	}
	if !strings.Contains(err.Error(), "nested deeper than 64 levels") {
		t.Errorf("unexpected error: %v", err)
	}

	calls := strings.Repeat("and([", 40) + "isNull(\"a\")" + strings.Repeat("])", 40)
	if _, err := Parse(calls); err == nil {
		t.Error("nested calls past the limit: expected error")
	}
}

func TestTokenizer_LineTracking(t *testing.T) {
	tz := newTokenizer("ab\ncd\n\nef")
	tests := []struct {
		offset int
		want   Pos
	}{
		{0, Pos{Offset: 0, Line: 1, Column: 1}},
		{2, Pos{Offset: 2, Line: 1, Column: 3}},
		{3, Pos{Offset: 3, Line: 2, Column: 1}},
		{6, Pos{Offset: 6, Line: 3, Column: 1}},
		{8, Pos{Offset: 8, Line: 4, Column: 2}},
	}
	for _, tt := range tests {
		if got := tz.posAt(tt.offset); got != tt.want {
			t.Errorf("posAt(%d) = %+v, want %+v", tt.offset, got, tt.want)
		}
	}
}

func FuzzParse(f *testing.F) {
	f.Add(`[Query.equal("status", "published"), Query.limit(10)]`)
	f.Add(`[equal("a", [1, 2.5, -3e2]), isNull("b")]`)
	f.Add(`[Query.or([Query.equal("a", "1"), Query.lessThan("n", 2)])]`)
	f.Add(`{method: "limit", values: [1]}`)
	f.Add("")
	f.Add("// comment only")
	f.Add(`["é😀", 'x\'y']`)
	f.Add("[\n  limit(1),\n]")
	f.Add("[[[[[]]]]]")
	f.Add(`[distanceLessThan("loc", [40.7, -74.0], 1000, true)]`)

	f.Fuzz(func(t *testing.T, input string) {
		node, err := Parse(input)
		if err != nil {
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Errorf("error is %T, want *ParseError", err)
			}
			if pe != nil && (pe.Pos.Line < 1 || pe.Pos.Column < 1) {
				t.Errorf("invalid error position %+v", pe.Pos)
			}
			return
		}
		if node != nil && node.Position().Line < 1 {
			t.Errorf("invalid node position %+v", node.Position())
		}
	})
}
