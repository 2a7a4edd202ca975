package ux

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/felixgeelhaar/grievance/internal/platform"
)

// maxTextWidth bounds the grievance text column
const maxTextWidth = 60

// Table buffers rows and renders them borderless
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a table writing to w
func NewTable(w io.Writer, headers ...string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	return &Table{table: table, header: headers}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the header and every buffered row
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return fmt.Errorf("failed to add table rows: %w", err)
	}
	if err := t.table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	return nil
}

// GrievanceTable renders grievances with their status badges
type GrievanceTable struct {
	Grievances []platform.Grievance
	NoColor    bool
}

// RenderText implements TextRenderer
func (g GrievanceTable) RenderText(w io.Writer) error {
	if len(g.Grievances) == 0 {
		_, err := fmt.Fprintln(w, "No grievances found.")
		return err
	}

	t := NewTable(w, "ID", "Status", "Similarity", "Matched", "Submitted", "Text")
	for _, gr := range g.Grievances {
		matched := "-"
		if gr.MatchedGrievanceID != nil && *gr.MatchedGrievanceID != "" {
			matched = gr.MatchedGrievanceID.String()
		}
		t.AddRow(
			gr.ID.String(),
			BadgeFor(gr.DuplicateStatus).Render(g.NoColor),
			FormatSimilarity(gr.SimilarityScore),
			matched,
			gr.CreatedAt,
			Truncate(singleLine(gr.OriginalText), maxTextWidth),
		)
	}
	return t.Render()
}

// FormatSimilarity renders a score in [0,1] as a percentage
func FormatSimilarity(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return "…"
	}
	return string(runes[:max-1]) + "…"
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
