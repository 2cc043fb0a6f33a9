package queryexpr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// notAnArrayMessage is shown when an expression evaluates to something other than an array.
const notAnArrayMessage = "Code must return an array of queries"

// Evaluate parses text as an array of builder calls and returns the serialized
// tokens in the order the expression lists them.
//
// Blank text (or text holding only comments) is an empty sequence with no error.
// On any failure Tokens is empty and Error carries the diagnostic; Evaluate
// never panics.
func (e *Engine) Evaluate(text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			err := newError(CodeEvaluationFailure, nil, "evaluation aborted: %v", r)
			res = Result{Tokens: []string{}, Error: err.Error(), Err: err}
		}
	}()

	tokens, err := e.evaluate(text)
	if err != nil {
		return Result{Tokens: []string{}, Error: Diagnostic(err), Err: err}
	}
	return Result{Tokens: tokens}
}

func (e *Engine) evaluate(text string) ([]string, error) {
	root, err := Parse(text)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return []string{}, nil
	}

	v, err := e.eval(root)
	if err != nil {
		return nil, err
	}
	items, ok := v.([]any)
	if !ok {
		return nil, newError(CodeNotAnArray, nil, notAnArrayMessage)
	}

	out := make([]string, 0, len(items))
	for i, item := range items {
		t, err := e.item(i, item)
		if err != nil {
			return nil, err
		}
		s, err := t.Serialize()
		if err != nil {
			return nil, errors.Wrapf(err, "item at index %d", i)
		}
		out = append(out, s)
	}
	return out, nil
}

// item coerces one element of the evaluated array into a token. Builder calls
// already produced tokens; strings must hold a serialized token; objects are
// read as descriptors. An object that is not a descriptor of a known method
// is an invalid item; a known method with bad arguments keeps its shape error.
func (e *Engine) item(i int, v any) (Token, error) {
	switch x := v.(type) {
	case Token:
		return x, nil
	case string:
		t, err := e.catalog.TokenOf(x)
		if err != nil {
			return Token{}, invalidItem(i, err)
		}
		return t, nil
	case map[string]any:
		t, err := e.catalog.TokenOf(x)
		switch {
		case err == nil:
			return t, nil
		case errors.Is(err, ErrInvalidDescriptor), errors.Is(err, ErrUnknownMethod):
			return Token{}, invalidItem(i, err)
		default:
			return Token{}, errors.Wrapf(err, "item at index %d", i)
		}
	default:
		return Token{}, invalidItem(i, nil)
	}
}

func invalidItem(i int, cause error) *Error {
	details := map[string]any{"index": i}
	if cause != nil {
		details["cause"] = cause.Error()
	}
	return newError(CodeInvalidExpressionItem, details, "Item at index %d is not a valid query string", i)
}

func (e *Engine) eval(n Node) (any, error) {
	switch n := n.(type) {
	case *Literal:
		return n.Value, nil
	case *List:
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			v, err := e.eval(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case *Object:
		out := make(map[string]any, len(n.Members))
		for _, m := range n.Members {
			v, err := e.eval(m.Value)
			if err != nil {
				return nil, err
			}
			out[m.Key] = v
		}
		return out, nil
	case *Call:
		return e.call(n)
	default:
		return nil, newError(CodeEvaluationFailure, nil, "unsupported expression node %T", n)
	}
}

// call resolves a builder call against the catalog. The namespace, when given,
// must be the engine's; no other name is bound.
func (e *Engine) call(c *Call) (Token, error) {
	if c.Namespace != "" && c.Namespace != e.namespace {
		return Token{}, &ParseError{
			Message:  fmt.Sprintf("%s is not defined", c.Namespace),
			Pos:      c.Pos,
			Got:      c.Namespace,
			Expected: e.namespace,
		}
	}
	if _, ok := e.catalog.Lookup(c.Name); !ok {
		err := newError(CodeEvaluationFailure,
			map[string]any{"method": c.Name, "line": c.Pos.Line, "column": c.Pos.Column},
			"line %d, column %d: %s.%s is not a function", c.Pos.Line, c.Pos.Column, e.namespace, c.Name)
		return Token{}, e.catalog.withSuggestions(err, c.Name)
	}

	args := make([]any, 0, len(c.Args))
	for _, a := range c.Args {
		v, err := e.eval(a)
		if err != nil {
			return Token{}, err
		}
		args = append(args, v)
	}
	t, err := e.catalog.Build(c.Name, args...)
	if err != nil {
		return Token{}, errors.Wrapf(err, "line %d, column %d", c.Pos.Line, c.Pos.Column)
	}
	return t, nil
}
