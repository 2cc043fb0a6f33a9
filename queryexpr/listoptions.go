package queryexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultLimit is the page size used when none is given.
const DefaultLimit = 25

// Order directions accepted by ListOptions.OrderType.
const (
	OrderASC  = "ASC"
	OrderDESC = "DESC"
)

// ListOptions is the pagination and ordering state of a list page, plus the
// query sequence authored in its filter box.
type ListOptions struct {
	Limit      int      `json:"limit"`
	Offset     int      `json:"offset"`
	OrderField string   `json:"orderField,omitempty"`
	OrderType  string   `json:"orderType,omitempty"`
	Queries    []string `json:"queries,omitempty"`
}

// DefaultListOptions returns the first page, unordered and unfiltered.
func DefaultListOptions() ListOptions {
	return ListOptions{Limit: DefaultLimit, OrderType: OrderASC}
}

// Validate checks limit, offset and order type.
// Conventions: limit > 0, offset >= 0, order type ASC or DESC (any case, empty is ASC).
func (o ListOptions) Validate() error {
	if o.Limit <= 0 {
		return &Error{
			Code:    CodeInvalidArgumentShape,
			Message: fmt.Sprintf("limit must be > 0, got %d", o.Limit),
			Details: map[string]any{"param": "limit", "value": o.Limit},
		}
	}
	if o.Offset < 0 {
		return &Error{
			Code:    CodeInvalidArgumentShape,
			Message: fmt.Sprintf("offset must be >= 0, got %d", o.Offset),
			Details: map[string]any{"param": "offset", "value": o.Offset},
		}
	}
	if _, err := o.direction(); err != nil {
		return err
	}
	return nil
}

func (o ListOptions) direction() (string, error) {
	switch strings.ToUpper(o.OrderType) {
	case "", OrderASC:
		return "orderAsc", nil
	case OrderDESC:
		return "orderDesc", nil
	default:
		return "", &Error{
			Code:    CodeInvalidArgumentShape,
			Message: fmt.Sprintf("order type must be 'ASC' or 'DESC', got %q", o.OrderType),
			Details: map[string]any{"param": "orderType", "value": o.OrderType},
		}
	}
}

// Tokens lowers the options to a query sequence: limit, offset, the order
// token when OrderField is set, then the authored queries in order. Each
// authored query must be a serialized token the catalog accepts.
func (o ListOptions) Tokens(c *Catalog) ([]string, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	var tokens []Token
	limit, err := c.Build("limit", o.Limit)
	if err != nil {
		return nil, err
	}
	offset, err := c.Build("offset", o.Offset)
	if err != nil {
		return nil, err
	}
	tokens = append(tokens, limit, offset)

	if o.OrderField != "" {
		method, _ := o.direction()
		order, err := c.Build(method, o.OrderField)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, order)
	}

	for i, q := range o.Queries {
		t, err := c.TokenOf(q)
		if err != nil {
			return nil, invalidItem(i, err)
		}
		tokens = append(tokens, t)
	}
	return SerializeAll(tokens)
}

// ParseListArgs reads list options from key=value arguments:
//
//	limit=25 offset=50 order=name:desc
//
// The order direction defaults to asc. Unset keys keep DefaultListOptions values.
func ParseListArgs(args []string) (ListOptions, error) {
	opts := DefaultListOptions()
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return opts, &Error{
				Code:    CodeInvalidArgumentShape,
				Message: fmt.Sprintf("expected key=value, got %q", arg),
				Details: map[string]any{"arg": arg},
			}
		}
		switch key {
		case "limit", "offset":
			n, err := strconv.Atoi(value)
			if err != nil {
				return opts, &Error{
					Code:    CodeInvalidArgumentShape,
					Message: fmt.Sprintf("%s must be an integer, got %q", key, value),
					Details: map[string]any{"param": key, "value": value},
				}
			}
			if key == "limit" {
				opts.Limit = n
			} else {
				opts.Offset = n
			}
		case "order":
			field, dir, _ := strings.Cut(value, ":")
			opts.OrderField = field
			opts.OrderType = strings.ToUpper(dir)
			if opts.OrderType == "" {
				opts.OrderType = OrderASC
			}
		default:
			return opts, &Error{
				Code:    CodeInvalidArgumentShape,
				Message: fmt.Sprintf("unknown list option %q", key),
				Details: map[string]any{"arg": arg},
			}
		}
	}
	return opts, opts.Validate()
}
