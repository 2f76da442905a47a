package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/nsresolve/internal/journal"
	"github.com/zjrosen/nsresolve/internal/namespace"
)

// Format selects how a Formatter renders values.
type Format string

const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatTable Format = "table"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json, yaml or table)", s)
	}
}

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
	format Format
}

// NewFormatter creates a new JSON formatter
func NewFormatter(writer io.Writer) *Formatter {
	return NewFormatterWithFormat(writer, FormatJSON)
}

// NewFormatterWithFormat creates a formatter for the given format.
func NewFormatterWithFormat(writer io.Writer, format Format) *Formatter {
	return &Formatter{
		writer: writer,
		format: format,
	}
}

// FormatMappings formats the mapping table of a resolver.
func (f *Formatter) FormatMappings(mappings []namespace.Mapping) error {
	if mappings == nil {
		mappings = []namespace.Mapping{}
	}
	return f.render(mappings, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(mappings))
		for _, m := range mappings {
			rows = append(rows, []string{m.Key, m.TypeName, strconv.FormatBool(m.Resolved)})
		}
		return []string{"KEY", "TYPE", "RESOLVED"}, rows
	})
}

// FormatResolutions formats the outcome of resolving keys.
func (f *Formatter) FormatResolutions(results []ResolutionDTO) error {
	return f.render(results, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(results))
		for _, r := range results {
			status := "ok"
			switch {
			case r.Error != "":
				status = failureStyle.Render(r.Error)
			case !r.Found:
				status = "unknown key"
			}
			rows = append(rows, []string{r.Key, r.Type, strings.Join(r.Elements, ", "), status})
		}
		return []string{"KEY", "TYPE", "ELEMENTS", "STATUS"}, rows
	})
}

// FormatScopes formats configured scopes.
func (f *Formatter) FormatScopes(scopes []ScopeDTO) error {
	return f.render(scopes, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(scopes))
		for _, s := range scopes {
			rows = append(rows, []string{s.Name, s.ResourcePath, strconv.FormatBool(s.Builtin), strings.Join(s.Roots, ", ")})
		}
		return []string{"SCOPE", "RESOURCE", "BUILTIN", "ROOTS"}, rows
	})
}

// FormatTypes formats registered handler types.
func (f *Formatter) FormatTypes(types []TypeDTO) error {
	return f.render(types, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(types))
		for _, t := range types {
			status := "ok"
			if t.Error != "" {
				status = t.Error
			}
			rows = append(rows, []string{t.Name, t.GoType, strconv.FormatBool(t.Element), status})
		}
		return []string{"NAME", "GO TYPE", "ELEMENT", "STATUS"}, rows
	})
}

// FormatHistory formats journal entries.
func (f *Formatter) FormatHistory(entries []journal.Entry) error {
	if entries == nil {
		entries = []journal.Entry{}
	}
	return f.render(entries, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			subject := e.Key
			if e.Kind == "loaded" {
				subject = fmt.Sprintf("%d mappings", e.Count)
			}
			rows = append(rows, []string{
				e.CreatedAt.Local().Format(time.DateTime),
				e.ResolverID,
				e.Kind,
				subject,
				e.TypeName,
				e.Duration.Round(time.Microsecond).String(),
				e.Error,
			})
		}
		return []string{"TIME", "RESOLVER", "KIND", "KEY", "TYPE", "DURATION", "ERROR"}, rows
	})
}

// FormatResult formats an arbitrary value as JSON
func (f *Formatter) FormatResult(result any) error {
	return f.encodeJSON(result)
}

func (f *Formatter) render(v any, rows func() ([]string, [][]string)) error {
	switch f.format {
	case FormatYAML:
		enc := yaml.NewEncoder(f.writer)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable:
		headers, body := rows()
		return f.table(headers, body)
	default:
		return f.encodeJSON(v)
	}
}

func (f *Formatter) encodeJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (f *Formatter) table(headers []string, rows [][]string) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	_, err := fmt.Fprintln(f.writer, t.String())
	return err
}

// CountDTO is the number of journal entries of one kind.
type CountDTO struct {
	Kind  string `json:"kind" yaml:"kind"`
	Count int    `json:"count" yaml:"count"`
}

// FormatCounts formats per-kind entry counts, sorted by kind.
func (f *Formatter) FormatCounts(counts map[string]int) error {
	dtos := make([]CountDTO, 0, len(counts))
	for kind, n := range counts {
		dtos = append(dtos, CountDTO{Kind: kind, Count: n})
	}
	sort.Slice(dtos, func(i, j int) bool { return dtos[i].Kind < dtos[j].Kind })

	return f.render(dtos, func() ([]string, [][]string) {
		rows := make([][]string, 0, len(dtos))
		for _, d := range dtos {
			rows = append(rows, []string{d.Kind, strconv.Itoa(d.Count)})
		}
		return []string{"KIND", "COUNT"}, rows
	})
}
