package manifest

import (
	"fmt"
	"path/filepath"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/rules"
)

// Validate checks the manifest for structural correctness and returns every
// problem found. Artifact paths are compared as they would resolve under outDir.
func Validate(m *Manifest, outDir string) []error {
	var errs []error

	if m.Version != Version {
		errs = append(errs, fmt.Errorf("version must be %d, got %d", Version, m.Version))
	}

	if len(m.Categories) == 0 {
		errs = append(errs, fmt.Errorf("manifest must define at least one category"))
	}

	names := make(map[string]bool)
	paths := make(map[string]string)
	spool := filepath.Clean(core.ArtifactPath(outDir, core.JournalSpool))
	claim := func(owner, name string) {
		p := filepath.Clean(core.ArtifactPath(outDir, name))
		if p == spool {
			errs = append(errs, fmt.Errorf("category %q: artifact %s is reserved for the journal spool", owner, p))
			return
		}
		if prev, ok := paths[p]; ok {
			errs = append(errs, fmt.Errorf("category %q: artifact %s already used by %q", owner, p, prev))
			return
		}
		paths[p] = owner
	}

	for i, c := range m.ToCategories(outDir) {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("category %d: name is required", i))
			continue
		}
		if names[c.Name] {
			errs = append(errs, fmt.Errorf("category %q: duplicate name", c.Name))
			continue
		}
		names[c.Name] = true

		claim(c.Name, c.Output)
		claim(c.Name, c.Issues)

		if _, err := rules.Compile(c.Name, rules.StageRoute, c.Route); err != nil {
			errs = append(errs, fmt.Errorf("stage1: %w", err))
		}
		if _, err := rules.Compile(c.Name, rules.StageFilter, c.Filter); err != nil {
			errs = append(errs, fmt.Errorf("stage2: %w", err))
		}
	}

	return errs
}
