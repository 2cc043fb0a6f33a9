// Package cobraext provides Cobra command factories for the query engine.
// It isolates the github.com/spf13/cobra dependency so that users who don't
// need CLI integration never import it.
package cobraext

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/stnguyen90/appwrite-explorer/queryexpr"
)

// EngineProvider returns the engine a command runs against. It is called when
// the command executes, after persistent flags and config have been applied.
type EngineProvider func() *queryexpr.Engine

// Static returns a provider that always yields e.
func Static(e *queryexpr.Engine) EngineProvider {
	return func() *queryexpr.Engine { return e }
}

const formatUsage = `Output format (required): "json" or "compact"`

// readInput returns arg, or all of stdin when arg is "-".
func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", errors.Wrap(err, "read stdin")
	}
	return string(data), nil
}

func write(cmd *cobra.Command, result any, format string, fieldOrder []string) error {
	mode, err := queryexpr.ParseOutputMode(format)
	if err != nil {
		return err
	}
	data, err := queryexpr.Render(result, mode, fieldOrder)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(string(data), "\n"))
	return err
}

// EvalCommand creates an "eval" subcommand that evaluates a textual query
// expression such as [Query.equal("status", "published"), Query.limit(10)].
// The result is printed even on failure; the command then returns the error.
func EvalCommand(engine EngineProvider) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "eval <expression|->",
		Short: "Evaluate a query expression into serialized tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := queryexpr.ParseOutputMode(format); err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			res := engine().Evaluate(text)
			if err := write(cmd, res, format, nil); err != nil {
				return err
			}
			return res.Err
		},
	}

	cmd.Flags().StringVar(&format, "format", "", formatUsage)
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

// ConvertCommand creates a "convert" subcommand that maps a JSON array of
// {method, attribute, values} descriptors to serialized tokens. In JSON
// output, skipped descriptors are listed next to the tokens.
func ConvertCommand(engine EngineProvider) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "convert <json|->",
		Short: "Convert JSON query descriptors into serialized tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := queryexpr.ParseOutputMode(format); err != nil {
				return err
			}
			input, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			conv, err := engine().ConvertDetailed(input)
			if err != nil {
				return err
			}
			return write(cmd, conv, format, nil)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", formatUsage)
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

// ValidateCommand creates a "validate" subcommand that checks JSON query
// descriptors without converting them. It prints the verdict and fails when
// the input is invalid.
func ValidateCommand(engine EngineProvider) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "validate <json|->",
		Short: "Check JSON query descriptors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := queryexpr.ParseOutputMode(format); err != nil {
				return err
			}
			input, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			verr := engine().ValidateDescriptors(input)
			verdict := map[string]any{"valid": verr == nil}
			var order []string
			if verr != nil {
				verdict["error"] = queryexpr.Diagnostic(verr)
				verdict["code"] = string(queryexpr.CodeOf(verr))
				order = []string{"valid", "code", "error"}
			}
			if err := write(cmd, verdict, format, order); err != nil {
				return err
			}
			return verr
		},
	}

	cmd.Flags().StringVar(&format, "format", "", formatUsage)
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

// MethodsCommand creates a "methods" subcommand listing the catalog, optionally
// limited to one group.
func MethodsCommand(engine EngineProvider) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "methods [group]",
		Short: "List the query methods the engine accepts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := engine().Catalog().Describe()
			if len(args) == 1 {
				filtered := rows[:0]
				for _, row := range rows {
					if row["group"] == args[0] {
						filtered = append(filtered, row)
					}
				}
				if len(filtered) == 0 {
					return errors.Newf("no methods in group %q", args[0])
				}
				rows = filtered
			}
			return write(cmd, rows, format, queryexpr.DescribeFields)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", formatUsage)
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

// ListCommand creates a "list" subcommand that builds the query sequence of a
// list page from key=value options (limit=25 offset=0 order=name:desc) and an
// optional filter expression.
func ListCommand(engine EngineProvider) *cobra.Command {
	var (
		format string
		where  string
	)

	cmd := &cobra.Command{
		Use:   "list [limit=N] [offset=N] [order=field[:asc|desc]]",
		Short: "Build the query sequence for a paginated list request",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := queryexpr.ParseOutputMode(format); err != nil {
				return err
			}
			opts, err := queryexpr.ParseListArgs(args)
			if err != nil {
				return err
			}
			e := engine()
			if where != "" {
				text, err := readInput(cmd, where)
				if err != nil {
					return err
				}
				res := e.Evaluate(text)
				if res.Err != nil {
					return errors.Wrap(res.Err, "--where")
				}
				opts.Queries = res.Tokens
			}
			tokens, err := opts.Tokens(e.Catalog())
			if err != nil {
				return err
			}
			return write(cmd, tokens, format, nil)
		},
	}

	cmd.Flags().StringVar(&format, "format", "", formatUsage)
	cmd.Flags().StringVar(&where, "where", "", "Filter expression appended after pagination and ordering (\"-\" reads stdin)")
	_ = cmd.MarkFlagRequired("format")
	return cmd
}

// AddCommands adds the eval, convert, validate, methods and list commands as
// subcommands of parent.
func AddCommands(parent *cobra.Command, engine EngineProvider) {
	parent.AddCommand(EvalCommand(engine))
	parent.AddCommand(ConvertCommand(engine))
	parent.AddCommand(ValidateCommand(engine))
	parent.AddCommand(MethodsCommand(engine))
	parent.AddCommand(ListCommand(engine))
}
