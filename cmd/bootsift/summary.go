package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/modoterra/bootsift/pkg/core"
	"github.com/modoterra/bootsift/pkg/executor"
	"github.com/modoterra/bootsift/pkg/pipeline"
	"github.com/modoterra/bootsift/pkg/tally"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	nameCol  = lipgloss.NewStyle().Width(18)
	countCol = lipgloss.NewStyle().Width(9).Align(lipgloss.Right)
)

// renderSummary prints one row per category with its line counts per pass.
func renderSummary(w io.Writer, table *core.Table, res pipeline.Result) {
	fmt.Fprintln(w, headerStyle.Render(
		nameCol.Render("CATEGORY")+countCol.Render("ROUTED")+countCol.Render("ISSUES")+"  STATUS"))

	for _, name := range table.Names() {
		route, routed := res.Route.Lookup(name)
		filter, filtered := res.Filter.Lookup(name)

		row := nameCol.Render(name) +
			countCol.Render(count(route, routed)) +
			countCol.Render(count(filter, filtered))

		var problems []string
		for _, o := range []executor.Outcome{route, filter} {
			if o.Err != nil {
				problems = append(problems, fmt.Sprintf("%s: %v", o.Stage, o.Err))
			}
		}
		if len(problems) == 0 {
			row += "  " + okStyle.Render("ok")
		} else {
			row += "  " + failedStyle.Render("skipped") + " " + dimStyle.Render(strings.Join(problems, "; "))
		}
		fmt.Fprintln(w, row)
	}

	if res.TimingFile != "" {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("elapsed %.6fs, timing in %s, run %s", res.Elapsed.Seconds(), res.TimingFile, res.RunID)))
	}
}

func count(o executor.Outcome, ran bool) string {
	if !ran {
		return "-"
	}
	if o.Err != nil {
		return "!"
	}
	return fmt.Sprint(o.Stats.LinesOut)
}

// renderCounts prints one line per counted file.
func renderCounts(w io.Writer, entries []tally.Entry) {
	for _, e := range entries {
		switch {
		case e.Missing:
			fmt.Fprintln(w, dimStyle.Render(e.String()))
		case e.Err != nil:
			fmt.Fprintln(w, failedStyle.Render(e.String()))
		default:
			fmt.Fprintln(w, e.String())
		}
	}
}
