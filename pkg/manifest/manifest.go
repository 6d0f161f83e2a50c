// Package manifest reads and writes bootsift.yaml, the YAML description of
// the category tables.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/rules"
)

// DefaultFile is the manifest name looked up when none is given.
const DefaultFile = "bootsift.yaml"

// Version is the only manifest version understood.
const Version = 1

// Manifest represents a bootsift.yaml configuration file.
type Manifest struct {
	Version    int        `yaml:"version"           json:"version"`
	OutDir     string     `yaml:"out_dir,omitempty" json:"out_dir,omitempty"`
	Categories []Category `yaml:"categories"        json:"categories"`
}

// Category is one category definition in the manifest.
type Category struct {
	Name   string    `yaml:"name"             json:"name"`
	Output string    `yaml:"output,omitempty" json:"output,omitempty"` // default <name>.log
	Issues string    `yaml:"issues,omitempty" json:"issues,omitempty"` // default <name>_issues.log
	Stage1 []Pattern `yaml:"stage1"           json:"stage1"`
	Stage2 []Pattern `yaml:"stage2"           json:"stage2"`
}

// Pattern is a rule as written in the manifest: either a plain string, whose
// kind depends on the stage (substring in stage1, regex in stage2), or a
// single-key mapping naming the kind explicitly.
type Pattern struct {
	Kind  rules.Kind `json:"kind,omitempty"`
	Value string     `json:"value"`
}

// UnmarshalYAML accepts "text", {substring: text} and {regex: text}.
func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		p.Kind = ""
		return node.Decode(&p.Value)
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		if len(m) != 1 {
			return fmt.Errorf("line %d: rule must have exactly one of substring or regex", node.Line)
		}
		for k, v := range m {
			p.Kind = rules.Kind(k)
			p.Value = v
		}
		return nil
	default:
		return fmt.Errorf("line %d: rule must be a string or a mapping", node.Line)
	}
}

// MarshalYAML writes plain strings when the kind is implicit.
func (p Pattern) MarshalYAML() (any, error) {
	if p.Kind == "" {
		return p.Value, nil
	}
	return map[string]string{string(p.Kind): p.Value}, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest. It does not validate it.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal encodes m as YAML.
func Marshal(m *Manifest) ([]byte, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return []byte(b.String()), nil
}

// Save writes m to path, creating parent directories.
func Save(path string, m *Manifest) error {
	data, err := Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// FromDefinitions builds a manifest from rule tables. Rules whose kind is the
// stage default are written as plain strings.
func FromDefinitions(defs []rules.Definition) *Manifest {
	m := &Manifest{Version: Version}
	for _, d := range defs {
		m.Categories = append(m.Categories, Category{
			Name:   d.Name,
			Stage1: patterns(d.Route, rules.KindSubstring),
			Stage2: patterns(d.Filter, rules.KindRegex),
		})
	}
	return m
}

// ToCategories converts the manifest into pipeline categories. Missing
// artifact names get the defaults; ${out_dir} is replaced by the absolute
// form of outDir.
func (m *Manifest) ToCategories(outDir string) []core.Category {
	cats := make([]core.Category, 0, len(m.Categories))
	for _, c := range m.Categories {
		cats = append(cats, core.Category{
			Name:   c.Name,
			Route:  toRules(c.Stage1, rules.KindSubstring),
			Filter: toRules(c.Stage2, rules.KindRegex),
			Output: artifactName(c.Output, core.OutputName(c.Name), outDir),
			Issues: artifactName(c.Issues, core.IssuesName(c.Name), outDir),
		})
	}
	return cats
}

func artifactName(name, fallback, outDir string) string {
	if name == "" {
		return fallback
	}
	return interpolate(name, outDir)
}

// interpolate replaces ${out_dir} references.
func interpolate(s, outDir string) string {
	if !strings.Contains(s, "${out_dir}") {
		return s
	}
	abs, err := filepath.Abs(outDir)
	if err != nil {
		abs = outDir
	}
	return filepath.Clean(strings.ReplaceAll(s, "${out_dir}", abs))
}

func patterns(rs []rules.Rule, implicit rules.Kind) []Pattern {
	ps := make([]Pattern, 0, len(rs))
	for _, r := range rs {
		p := Pattern{Kind: r.Kind, Value: r.Pattern}
		if r.Kind == implicit {
			p.Kind = ""
		}
		ps = append(ps, p)
	}
	return ps
}

func toRules(ps []Pattern, implicit rules.Kind) []rules.Rule {
	rs := make([]rules.Rule, 0, len(ps))
	for _, p := range ps {
		kind := p.Kind
		if kind == "" {
			kind = implicit
		}
		rs = append(rs, rules.Rule{Kind: kind, Pattern: p.Value})
	}
	return rs
}
