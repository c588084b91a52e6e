// Package view renders the store's list and summary as text tables.
package view

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"dtmoney/internal/core"
)

// Renderer holds presentation settings only.
type Renderer struct {
	markdown bool
	location *time.Location
}

type Option func(*Renderer)

// WithMarkdown switches output to Markdown tables.
func WithMarkdown(on bool) Option {
	return func(r *Renderer) { r.markdown = on }
}

// WithLocation sets the zone dates are shown in. Defaults to local time.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) { r.location = loc }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{location: time.Local}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RenderTransactions writes one row per transaction in list order.
func (r *Renderer) RenderTransactions(w io.Writer, txs []core.Transaction) {
	table := r.newTable(w)
	table.SetHeader([]string{"ID", "Description", "Price", "Category", "Date"})
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
	})

	for _, tx := range txs {
		table.Append([]string{
			strconv.FormatInt(tx.ID, 10),
			tx.Description,
			FormatPrice(tx.Price, tx.Type == core.Outcome),
			tx.Category,
			FormatDate(tx.CreatedAt, r.location),
		})
	}
	table.Render()
}

// RenderSummary writes the income, outcome and total cards as one row.
func (r *Renderer) RenderSummary(w io.Writer, s core.Summary) {
	table := r.newTable(w)
	table.SetHeader([]string{"Income", "Outcome", "Total"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{FormatBRL(s.Income), FormatPrice(s.Outcome, true), FormatBRL(s.Total)})
	table.Render()
}

func (r *Renderer) newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	if r.markdown {
		table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
		table.SetCenterSeparator("|")
	}
	return table
}
