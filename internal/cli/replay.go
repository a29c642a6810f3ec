package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docmodel/internal/document"
	"github.com/mesh-intelligence/docmodel/internal/sqlite"
)

func newReplayCmd() *cobra.Command {
	var showTree bool
	cmd := &cobra.Command{
		Use:   "replay [DOC_ID]",
		Short: "List journaled documents or rebuild one from its command stream",
		Long: "Without arguments, list the documents recorded in the journal.\n" +
			"With DOC_ID, replay its journaled commands into a fresh document\n" +
			"and print the resulting item attributes.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := attachJournal()
			if err != nil {
				return err
			}
			defer func() { _ = j.Detach() }()

			if len(args) == 0 {
				return listDocuments(cmd, j)
			}
			return replayDocument(cmd, j, args[0], showTree)
		},
	}
	cmd.Flags().BoolVar(&showTree, "tree", false, "print each item's attribute list as a persistence tree")
	return cmd
}

func listDocuments(cmd *cobra.Command, j *sqlite.Journal) error {
	docs, err := j.Documents()
	if err != nil {
		return err
	}
	if flags.jsonMode {
		return printJSON(cmd, docs)
	}
	if len(docs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No journaled documents.")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOCUMENT\tENTRIES\tLAST")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%d\t%s\n", d.DocumentID, d.Entries, d.LastAt.Format(time.RFC3339))
	}
	return w.Flush()
}

// itemReport is the output form of one replayed item.
type itemReport struct {
	ID         string         `json:"id"`
	Parent     string         `json:"parent,omitempty"`
	Attributes []attributeRow `json:"attributes"`
	Tree       map[string]any `json:"tree,omitempty"`
}

// replayDocument rebuilds docID and prints its items. Entries that fail to
// apply are reported after the items.
func replayDocument(cmd *cobra.Command, j *sqlite.Journal, docID string, showTree bool) error {
	store, err := loadTemplates()
	if err != nil {
		return err
	}
	d, err := newDocument(docID, store, true)
	if err != nil {
		return err
	}
	replayErr := j.Replay(docID, d.Stack(), d.Context())
	d.Evaluate()

	reports, err := itemReports(d, showTree)
	if err != nil {
		return err
	}
	undo, redo := d.Stack().Len()
	if flags.jsonMode {
		if err := printJSON(cmd, map[string]any{
			"document": docID,
			"undo":     undo,
			"redo":     redo,
			"items":    reports,
		}); err != nil {
			return err
		}
		return replayErr
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "document %s (undo %d, redo %d)\n", docID, undo, redo)
	for _, r := range reports {
		fmt.Fprintf(out, "item %s\n", r.ID)
		for _, a := range r.Attributes {
			fmt.Fprintf(out, "  %s = %s\n", a.Name, formatValue(a.Value))
		}
		if r.Tree != nil {
			fmt.Fprintf(out, "  tree: %s\n", formatValue(r.Tree))
		}
	}
	if replayErr != nil {
		return fmt.Errorf("replay %s: %w", docID, replayErr)
	}
	return nil
}

func itemReports(d *document.Document, showTree bool) ([]itemReport, error) {
	ids := d.Items()
	reports := make([]itemReport, 0, len(ids))
	for _, id := range ids {
		it, ok := d.Item(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", document.ErrItemNotFound, id)
		}
		r := itemReport{
			ID:         id,
			Parent:     it.Parent(),
			Attributes: attributeRows(it.Attributes()),
		}
		if showTree {
			r.Tree = it.Attributes().Save().Record()
		}
		reports = append(reports, r)
	}
	return reports, nil
}
