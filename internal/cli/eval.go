package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
)

func newEvalCmd() *cobra.Command {
	var (
		vars     []string
		template string
	)
	cmd := &cobra.Command{
		Use:   "eval FORMULA",
		Short: "Evaluate a formula against an item",
		Long: "Evaluate FORMULA in the scope of a single item. The item takes its\n" +
			"attributes from --template and from --var NAME=VALUE assignments.",
		Example: "  docmodel eval 'WIDTH * 2' --var WIDTH=21\n  docmodel eval AREA --template shape",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, args[0], template, vars)
		},
	}
	cmd.Flags().StringArrayVar(&vars, "var", nil, "attribute assignment NAME=VALUE (repeatable)")
	cmd.Flags().StringVar(&template, "template", "", "template the item inherits from")
	return cmd
}

func runEval(cmd *cobra.Command, formula, template string, vars []string) error {
	store, err := loadTemplates()
	if err != nil {
		return err
	}
	d, err := newDocument("", store, false)
	if err != nil {
		return err
	}
	item, err := d.NewItem("")
	if err != nil {
		return err
	}
	l := item.Attributes()
	if template != "" {
		if err := store.Apply(l, template); err != nil {
			return err
		}
	}
	for _, v := range vars {
		at, err := parseVar(v)
		if err != nil {
			return err
		}
		l.Add(at)
	}
	materializeFormulas(l)
	d.Evaluate()

	term, err := d.Evaluator().Compile(formula, item)
	if err != nil {
		return fmt.Errorf("compile %q: %w", formula, err)
	}
	value := term.Value()
	if flags.jsonMode {
		return printJSON(cmd, map[string]any{"formula": term.String(), "value": value})
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
	return nil
}

// parseVar turns NAME=VALUE into an attribute. Numbers and booleans are
// recognized; anything else is a string.
func parseVar(s string) (*attr.Attribute, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return nil, fmt.Errorf("invalid --var %q: want NAME=VALUE", s)
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return attr.NewString(name, raw), nil
	}
	if f, err := cast.ToFloat64E(trimmed); err == nil {
		return attr.NewNumber(name, f), nil
	}
	if b, err := cast.ToBoolE(trimmed); err == nil {
		return attr.NewBoolean(name, b), nil
	}
	return attr.NewString(name, raw), nil
}
