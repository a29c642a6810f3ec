package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
)

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates [NAME]",
		Short: "List templates or show one template's attributes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := loadTemplates()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return listTemplates(cmd, store)
			}
			return showTemplate(cmd, store, args[0])
		},
	}
}

func listTemplates(cmd *cobra.Command, store *attr.TemplateStore) error {
	names := store.Names()
	if flags.jsonMode {
		return printJSON(cmd, names)
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No templates defined.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

// showTemplate prints every attribute a list inherits from the template,
// parent chain included.
func showTemplate(cmd *cobra.Command, store *attr.TemplateStore, name string) error {
	t, ok := store.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", attr.ErrUnknownTemplate, name)
	}
	view := store.Arena().NewList(attr.TypeList)
	defer store.Arena().Release(view.Handle())
	if err := store.Apply(view, name); err != nil {
		return err
	}
	parent, _ := store.NameOf(t.Parent())
	rows := attributeRows(view)

	if flags.jsonMode {
		return printJSON(cmd, map[string]any{
			"name":       name,
			"parent":     parent,
			"attributes": rows,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "template %s", name)
	if parent != "" {
		fmt.Fprintf(out, " (parent %s)", parent)
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tVALUE\tFORMULA")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, r.Type, formatValue(r.Value), r.Formula)
	}
	return w.Flush()
}
