package presentation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/nsresolve/internal/namespace"
)

// DiffOp classifies a line of a mapping diff.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffRemoved
	DiffAdded
)

// DiffLine is one "key=type" line of a mapping diff.
type DiffLine struct {
	Op   DiffOp
	Text string
}

var (
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// DiffMappings compares two mapping tables line by line. Each mapping is
// rendered as "key=type" in key order, so a changed type shows up as a
// removal followed by an addition. Resolution state is ignored.
func DiffMappings(before, after []namespace.Mapping) []DiffLine {
	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(mappingText(before), mappingText(after))
	diffs := dmp.DiffMain(oldChars, newChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var out []DiffLine
	for _, d := range diffs {
		op := DiffEqual
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			op = DiffRemoved
		case diffmatchpatch.DiffInsert:
			op = DiffAdded
		}
		for _, line := range strings.Split(d.Text, "\n") {
			if line == "" {
				continue
			}
			out = append(out, DiffLine{Op: op, Text: line})
		}
	}
	return out
}

// Changed reports whether a diff has any added or removed lines.
func Changed(lines []DiffLine) bool {
	for _, l := range lines {
		if l.Op != DiffEqual {
			return true
		}
	}
	return false
}

func mappingText(mappings []namespace.Mapping) string {
	sorted := append([]namespace.Mapping(nil), mappings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	var b strings.Builder
	for _, m := range sorted {
		b.WriteString(m.Key)
		b.WriteByte('=')
		b.WriteString(m.TypeName)
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatDiff writes the changed lines of a diff in unified style. Unchanged
// lines are omitted.
func (f *Formatter) FormatDiff(lines []DiffLine) error {
	if !Changed(lines) {
		_, err := fmt.Fprintln(f.writer, "  (no changes)")
		return err
	}
	for _, l := range lines {
		var s string
		switch l.Op {
		case DiffAdded:
			s = addedStyle.Render("+ " + l.Text)
		case DiffRemoved:
			s = removedStyle.Render("- " + l.Text)
		default:
			continue
		}
		if _, err := fmt.Fprintln(f.writer, s); err != nil {
			return err
		}
	}
	return nil
}
