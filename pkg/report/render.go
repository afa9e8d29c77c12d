package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Stoky555/ownership-graph/pkg/layers"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	numberStyle  = cellStyle.Align(lipgloss.Right)
	titleStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
)

// Renderer draws reports as terminal tables with locale-aware numbers.
type Renderer struct {
	Locale  language.Tag
	printer *message.Printer
}

// NewRenderer returns a renderer for a BCP 47 locale such as "en" or "de-CH".
// The empty string selects English.
func NewRenderer(locale string) (*Renderer, error) {
	tag := language.English
	if locale != "" {
		var err error
		if tag, err = language.Parse(locale); err != nil {
			return nil, fmt.Errorf("invalid report locale %q: %w", locale, err)
		}
	}
	return &Renderer{Locale: tag, printer: message.NewPrinter(tag)}, nil
}

// Percent formats pct with two decimals, e.g. "1,234.50%" in English.
func (r *Renderer) Percent(pct float64) string {
	return r.printer.Sprintf("%.2f%%", pct)
}

// Rows renders an Owner/Object/Percent table under title.
func (r *Renderer) Rows(title string, rows []Row) string {
	t := newTable("Owner", "Object", "Percent")
	for _, row := range rows {
		t.Row(row.Owner, row.Object, r.Percent(row.Percent))
	}
	return r.section(title, len(rows), t)
}

// Indirect renders strictly indirect layer rows.
func (r *Renderer) Indirect(title string, rows []layers.IndirectRow) string {
	t := newTable("Relationship", "Percent", "Id")
	for _, row := range rows {
		t.Row(row.Label, r.Percent(row.Percent), row.ID)
	}
	return r.section(title, len(rows), t)
}

// Summary renders one block per object listing its direct owners.
func (r *Renderer) Summary(summaries []ObjectSummary) string {
	var b strings.Builder
	for i, s := range summaries {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s  %s\n", titleStyle.Render(s.Object), statusLabel(s.Status))
		if len(s.Owners) == 0 {
			b.WriteString(mutedStyle.Render("  No direct owners.") + "\n")
		}
		for _, o := range s.Owners {
			fmt.Fprintf(&b, "  • %s: %s\n", o.Owner, r.Percent(o.Percent))
		}
		fmt.Fprintf(&b, "  Total direct: %s\n", r.Percent(s.Total))
	}
	return b.String()
}

func (r *Renderer) section(title string, n int, t *table.Table) string {
	header := titleStyle.Render(title) + " " + mutedStyle.Render(r.printer.Sprintf("(%d rows)", n))
	return header + "\n" + t.String() + "\n"
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case headers[col] == "Percent":
				return numberStyle
			default:
				return cellStyle
			}
		})
}

func statusLabel(s Status) string {
	switch s {
	case StatusExceeds:
		return warningStyle.Render("⚠ exceeds 100%")
	case StatusBelow:
		return mutedStyle.Render("ℹ below 100%")
	case StatusNone:
		return mutedStyle.Render("- no owners -")
	default:
		return okStyle.Render("✓ ok")
	}
}
