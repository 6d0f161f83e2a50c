package core

import (
	"fmt"
	"path/filepath"

	"github.com/modoterra/bootsift/pkg/rules"
)

// Category is one classification bucket: its two rule lists and the file
// names of the artifacts it owns.
type Category struct {
	Name   string       `json:"name"`
	Route  []rules.Rule `json:"route"`
	Filter []rules.Rule `json:"filter"`
	Output string       `json:"output"` // route artifact, relative to the output directory
	Issues string       `json:"issues"` // filter artifact, relative to the output directory
}

// JournalSpool is the file the journal source dumps the boot log into. No
// category artifact may use it.
const JournalSpool = "journal_boot.log"

// OutputName returns the default route artifact name for a category.
func OutputName(name string) string { return name + ".log" }

// IssuesName returns the default filter artifact name for a category.
func IssuesName(name string) string { return name + "_issues.log" }

// FromDefinitions converts rule tables into categories with default artifact names.
func FromDefinitions(defs []rules.Definition) []Category {
	cats := make([]Category, 0, len(defs))
	for _, d := range defs {
		cats = append(cats, Category{
			Name:   d.Name,
			Route:  d.Route,
			Filter: d.Filter,
			Output: OutputName(d.Name),
			Issues: IssuesName(d.Name),
		})
	}
	return cats
}

// DefaultCategories returns the eight built-in boot log categories.
func DefaultCategories() []Category {
	return FromDefinitions(rules.Defaults())
}

// Entry is one row of the compiled dispatch table.
type Entry struct {
	Category Category
	Route    *rules.Set
	Filter   *rules.Set
}

// Table is the immutable dispatch table iterated by both pipeline stages.
type Table struct {
	entries []Entry
}

// Compile compiles every category's rule lists. It fails on the first bad
// rule, duplicate category name, or artifact path claimed twice; the error is
// classified fatal.
func Compile(cats []Category) (*Table, error) {
	if len(cats) == 0 {
		return nil, Fatal("compile", "", "", ErrNoCategories)
	}

	names := make(map[string]bool, len(cats))
	paths := make(map[string]string, 2*len(cats))
	claim := func(cat, p string) error {
		if p == "" {
			return fmt.Errorf("category %q: empty artifact name", cat)
		}
		key := filepath.Clean(p)
		if key == JournalSpool {
			return fmt.Errorf("%w: %s is reserved for the journal spool", ErrArtifactConflict, p)
		}
		if owner, ok := paths[key]; ok {
			return fmt.Errorf("%w: %s claimed by %q and %q", ErrArtifactConflict, p, owner, cat)
		}
		paths[key] = cat
		return nil
	}

	t := &Table{entries: make([]Entry, 0, len(cats))}
	for _, c := range cats {
		if c.Name == "" {
			return nil, Fatal("compile", "", "", ErrUnnamedCategory)
		}
		if names[c.Name] {
			return nil, Fatal("compile", c.Name, "", fmt.Errorf("%w: %s", ErrDuplicateCategory, c.Name))
		}
		names[c.Name] = true

		if err := claim(c.Name, c.Output); err != nil {
			return nil, Fatal("compile", c.Name, c.Output, err)
		}
		if err := claim(c.Name, c.Issues); err != nil {
			return nil, Fatal("compile", c.Name, c.Issues, err)
		}

		route, err := rules.Compile(c.Name, rules.StageRoute, c.Route)
		if err != nil {
			return nil, Fatal("compile", c.Name, "", err)
		}
		filter, err := rules.Compile(c.Name, rules.StageFilter, c.Filter)
		if err != nil {
			return nil, Fatal("compile", c.Name, "", err)
		}
		t.entries = append(t.entries, Entry{Category: c, Route: route, Filter: filter})
	}
	return t, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(cats []Category) *Table {
	t, err := Compile(cats)
	if err != nil {
		panic(err)
	}
	return t
}

// Entries returns the table rows in declaration order. Callers must not modify them.
func (t *Table) Entries() []Entry { return t.entries }

// Len returns the number of categories.
func (t *Table) Len() int { return len(t.entries) }

// Names returns the category names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.entries))
	for i, e := range t.entries {
		names[i] = e.Category.Name
	}
	return names
}

// Lookup returns the entry for the named category.
func (t *Table) Lookup(name string) (Entry, bool) {
	for _, e := range t.entries {
		if e.Category.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
