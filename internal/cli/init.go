package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/docmodel/pkg/attr"
)

// sampleTemplates is written to templates.yaml by init when missing.
var sampleTemplates = attr.PresetFile{
	Templates: []attr.PresetTemplate{
		{
			Name: "shape",
			Attributes: []attr.PresetAttribute{
				{Name: "WIDTH", Type: "number", Value: 100.0, Min: ptr(0.0)},
				{Name: "HEIGHT", Type: "number", Value: 50.0, Min: ptr(0.0)},
				{Name: "AREA", Type: "number", Formula: "WIDTH * HEIGHT"},
			},
		},
		{
			Name:   "box",
			Parent: "shape",
			Attributes: []attr.PresetAttribute{
				{Name: "LABEL", DisplayName: "Label", Type: "string", Value: "box"},
			},
		},
	},
}

func ptr[T any](v T) *T { return &v }

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration, templates and the journal",
		Long:  "Create the configuration and data directories, write default config.yaml\nand templates.yaml when missing, then initialize the command journal.",
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	tplPath, err := resolveTemplatesFile()
	if err != nil {
		return err
	}
	if err := writeTemplatesIfMissing(tplPath); err != nil {
		return fmt.Errorf("write templates: %w", err)
	}

	j, err := attachJournal()
	if err != nil {
		return err
	}
	if err := j.Detach(); err != nil {
		return fmt.Errorf("finalize journal: %w", err)
	}

	dataDir, _ := resolveDataDir()
	if flags.jsonMode {
		return printJSON(cmd, map[string]string{
			"config_dir":     sess.configDir,
			"data_dir":       dataDir,
			"templates_file": tplPath,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), "docmodel initialized successfully")
	return nil
}

// writeTemplatesIfMissing writes the sample presets to path unless it
// exists.
func writeTemplatesIfMissing(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(&sampleTemplates)
	if err != nil {
		return fmt.Errorf("marshal templates: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
