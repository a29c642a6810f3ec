package attr

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/docmodel/pkg/constraint"
)

// PresetFile is the YAML layout of a template presets file.
//
//	templates:
//	  - name: box
//	    attributes:
//	      - name: WIDTH
//	        type: number
//	        value: 200
//	        min: 0
//	      - name: HEIGHT
//	        type: number
//	        formula: WIDTH*0.5
type PresetFile struct {
	Templates []PresetTemplate `yaml:"templates"`
}

// PresetTemplate describes one template. Parent names a template defined
// earlier in the same file or already present in the store.
type PresetTemplate struct {
	Name       string            `yaml:"name"`
	Parent     string            `yaml:"parent,omitempty"`
	Attributes []PresetAttribute `yaml:"attributes"`
}

// PresetAttribute describes one template attribute. Min and Max install a
// number range constraint on number attributes.
type PresetAttribute struct {
	Name        string   `yaml:"name"`
	DisplayName string   `yaml:"display_name,omitempty"`
	Type        string   `yaml:"type"`
	Value       any      `yaml:"value,omitempty"`
	Formula     string   `yaml:"formula,omitempty"`
	Locked      bool     `yaml:"locked,omitempty"`
	Transient   bool     `yaml:"transient,omitempty"`
	Min         *float64 `yaml:"min,omitempty"`
	Max         *float64 `yaml:"max,omitempty"`
}

// presetTypes maps the short type names used in preset files to
// registered attribute types.
var presetTypes = map[string]string{
	"boolean":   TypeBoolean,
	"number":    TypeNumber,
	"string":    TypeString,
	"object":    TypeObject,
	"map":       TypeMap,
	"reference": TypeReference,
}

// LoadPresetsFile reads a presets file from path.
func (s *TemplateStore) LoadPresetsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets: %w", err)
	}
	defer f.Close()
	return s.LoadPresets(f)
}

// LoadPresets decodes a presets document and defines its templates in
// order. Returns the names of the templates defined. Nothing is defined
// when the document fails to validate.
func (s *TemplateStore) LoadPresets(r io.Reader) ([]string, error) {
	var pf PresetFile
	if err := yaml.NewDecoder(r).Decode(&pf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	built := make([][]*Attribute, len(pf.Templates))
	seen := make(map[string]bool, len(pf.Templates))
	for i, pt := range pf.Templates {
		if pt.Name == "" {
			return nil, fmt.Errorf("%w: template %d has no name", ErrInvalidPreset, i)
		}
		if _, ok := s.byName[pt.Name]; ok || seen[pt.Name] {
			return nil, fmt.Errorf("%w: %s", ErrTemplateExists, pt.Name)
		}
		if pt.Parent != "" && !seen[pt.Parent] {
			if _, ok := s.byName[pt.Parent]; !ok {
				return nil, fmt.Errorf("%w: %s (parent of %s)", ErrUnknownTemplate, pt.Parent, pt.Name)
			}
		}
		seen[pt.Name] = true
		for _, pa := range pt.Attributes {
			at, err := s.presetAttribute(pa)
			if err != nil {
				return nil, fmt.Errorf("template %s: %w", pt.Name, err)
			}
			built[i] = append(built[i], at)
		}
	}

	names := make([]string, 0, len(pf.Templates))
	for i, pt := range pf.Templates {
		t, err := s.Define(pt.Name)
		if err != nil {
			return names, err
		}
		if pt.Parent != "" {
			t.SetParent(s.byName[pt.Parent].handle)
		}
		for _, at := range built[i] {
			t.Update(at)
		}
		names = append(names, pt.Name)
	}
	return names, nil
}

func (s *TemplateStore) presetAttribute(pa PresetAttribute) (*Attribute, error) {
	if pa.Name == "" {
		return nil, fmt.Errorf("%w: attribute has no name", ErrInvalidPreset)
	}
	typeName, ok := presetTypes[pa.Type]
	if !ok {
		typeName = pa.Type
	}
	at, ok := s.arena.factory.Create(typeName).(*Attribute)
	if !ok {
		return nil, fmt.Errorf("%w: %s (attribute %s)", ErrUnknownType, pa.Type, pa.Name)
	}
	at.name = pa.Name
	at.displayName = pa.DisplayName
	at.transient = pa.Transient

	e := at.expression
	if pa.Min != nil || pa.Max != nil {
		if typeName != TypeNumber {
			return nil, fmt.Errorf("%w: range on non-number attribute %s", ErrInvalidPreset, pa.Name)
		}
		lo, hi := -math.MaxFloat64, math.MaxFloat64
		if pa.Min != nil {
			lo = *pa.Min
		}
		if pa.Max != nil {
			hi = *pa.Max
		}
		e.SetConstraint(constraint.NewNumberRange(lo, hi))
	}
	if pa.Value != nil {
		e.SetValue(e.Constraint().Value(pa.Value))
	}
	if pa.Formula != "" {
		e.SetFormula(pa.Formula)
	}
	e.SetLocked(pa.Locked)
	return at, nil
}
