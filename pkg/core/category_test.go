package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modoterra/bootsift/pkg/rules"
)

func TestDefaultCategoriesArtifactNames(t *testing.T) {
	cats := DefaultCategories()
	require.Len(t, cats, 8)
	for _, c := range cats {
		assert.Equal(t, c.Name+".log", c.Output)
		assert.Equal(t, c.Name+"_issues.log", c.Issues)
	}
	assert.Equal(t, "startup_timing_issues.log", cats[0].Issues)
}

func TestCompileDefaultTable(t *testing.T) {
	table, err := Compile(DefaultCategories())
	require.NoError(t, err)
	assert.Equal(t, 8, table.Len())
	assert.Equal(t, rules.StartupTiming, table.Names()[0])

	e, ok := table.Lookup(rules.Authentication)
	require.True(t, ok)
	assert.Equal(t, rules.StageRoute, e.Route.Stage())
	assert.Equal(t, rules.StageFilter, e.Filter.Stage())

	_, ok = table.Lookup("nope")
	assert.False(t, ok)
}

func TestCompileRejects(t *testing.T) {
	valid := func(name string) Category {
		return Category{
			Name:   name,
			Route:  []rules.Rule{rules.Substring("x")},
			Filter: []rules.Rule{rules.Regex("x")},
			Output: OutputName(name),
			Issues: IssuesName(name),
		}
	}

	tests := []struct {
		name string
		cats []Category
		want error
	}{
		{"empty table", nil, ErrNoCategories},
		{"duplicate name", []Category{valid("a"), valid("a")}, ErrDuplicateCategory},
		{"unnamed", []Category{{Route: valid("a").Route}}, ErrUnnamedCategory},
		{"shared artifact", func() []Category {
			b := valid("b")
			b.Output = "a.log"
			return []Category{valid("a"), b}
		}(), ErrArtifactConflict},
		{"journal spool", func() []Category {
			a := valid("a")
			a.Issues = JournalSpool
			return []Category{a}
		}(), ErrArtifactConflict},
		{"bad regex", func() []Category {
			c := valid("a")
			c.Filter = []rules.Rule{rules.Regex("(")}
			return []Category{c}
		}(), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.cats)
			require.Error(t, err)
			assert.True(t, IsFatal(err), "compile errors abort the run")
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCompileBadPatternNamesCategory(t *testing.T) {
	cats := DefaultCategories()
	cats[5].Filter = append(cats[5].Filter, rules.Regex("interface [a-z"))

	_, err := Compile(cats)
	require.Error(t, err)

	var ce *rules.CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, rules.Networking, ce.Category)
	assert.Equal(t, "interface [a-z", ce.Pattern)
}

func TestClassifiedError(t *testing.T) {
	err := Degraded("open input", "warnings", "/tmp/warnings.log", assert.AnError)
	assert.False(t, IsFatal(err))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "open input [warnings] /tmp/warnings.log: "+assert.AnError.Error(), err.Error())

	assert.True(t, IsFatal(Fatal("persist timing", "", "time_taken.txt", assert.AnError)))
	assert.False(t, IsFatal(nil))
	assert.Equal(t, "fatal", ClassFatal.String())
	assert.Equal(t, "degraded", ClassDegraded.String())
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, "out/a.log", ArtifactPath("out", "a.log"))
	assert.Equal(t, "/abs/a.log", ArtifactPath("out", "/abs/a.log"))
}
