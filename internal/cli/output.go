package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/docmodel/internal/document"
	"github.com/mesh-intelligence/docmodel/pkg/attr"
	"github.com/mesh-intelligence/docmodel/pkg/registry"
)

// printJSON writes v as indented JSON followed by a newline.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatValue renders a document value for text output.
func formatValue(v any) string {
	if v == nil {
		return "undefined"
	}
	switch x := v.(type) {
	case string:
		return fmt.Sprintf("%q", x)
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
	}
	return cast.ToString(v)
}

// attributeRow is the output form of one resolved attribute.
type attributeRow struct {
	Name      string `json:"name"`
	Display   string `json:"display_name,omitempty"`
	Type      string `json:"type"`
	Value     any    `json:"value"`
	Formula   string `json:"formula,omitempty"`
	Inherited bool   `json:"inherited,omitempty"`
}

// attributeRows lists every attribute visible on l.
func attributeRows(l *attr.List) []attributeRow {
	names := l.VisibleNames()
	rows := make([]attributeRow, 0, len(names))
	for _, n := range names {
		r, ok := l.Get(n)
		if !ok {
			continue
		}
		_, local := l.Lookup(n)
		rows = append(rows, attributeRow{
			Name:      r.Name(),
			Display:   r.DisplayName(),
			Type:      r.TypeName(),
			Value:     r.Value(),
			Formula:   r.Expression().Formula(),
			Inherited: !local,
		})
	}
	return rows
}

// loadTemplates builds a template store on a fresh arena from the
// configured presets file. A missing file yields an empty store.
func loadTemplates() (*attr.TemplateStore, error) {
	store := attr.NewTemplateStore(attr.NewArena(registry.Default()))
	path, err := resolveTemplatesFile()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger().Debug("no templates file", "path", path)
		return store, nil
	}
	if _, err := store.LoadPresetsFile(path); err != nil {
		return nil, fmt.Errorf("load templates %s: %w", path, err)
	}
	return store, nil
}

// newDocument returns a document sharing store.
func newDocument(id string, store *attr.TemplateStore, createMissing bool) (*document.Document, error) {
	return document.New(document.Config{
		ID:            id,
		Factory:       store.Arena().Factory(),
		Templates:     store,
		CreateMissing: createMissing,
		Logger:        logger(),
	})
}

// materializeFormulas copies inherited formula attributes onto l so they
// evaluate in the item's own scope.
func materializeFormulas(l *attr.List) {
	for _, n := range l.VisibleNames() {
		if _, local := l.Lookup(n); local {
			continue
		}
		r, ok := l.Get(n)
		if !ok || r.Expression().Formula() == "" {
			continue
		}
		l.SetAttributeValue(n, r.Expression())
	}
}
