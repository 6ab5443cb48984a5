package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderTables writes the channel and cohort sections as terminal tables.
func RenderTables(w io.Writer, r *Report) {
	_, _ = fmt.Fprintf(w, "Attribution rows: %d  Attributed orders: %d  LTV rows: %d  Total spend: %s\n\n",
		r.Summary.AttributionRows, r.Summary.AttributedOrders, r.Summary.LtvRows, r.Summary.TotalSpend.StringFixed(2))

	ct := table.NewWriter()
	ct.SetOutputMirror(w)
	ct.SetStyle(table.StyleLight)
	ct.SetTitle("Channel Attribution")
	ct.AppendHeader(table.Row{"Model", "Channel", "Group", "Revenue", "Orders", "Weight", "Spend", "ROAS"})
	for _, c := range r.Channels {
		ct.AppendRow(table.Row{
			c.Model, c.ChannelName, c.ChannelGroup,
			c.Revenue.StringFixed(2), c.CreditedOrders, fmt.Sprintf("%.2f", c.WeightSum),
			c.Spend.StringFixed(2), c.ROAS.StringFixed(2),
		})
	}
	ct.SetColumnConfigs(rightAligned(4, 5, 6, 7, 8))
	ct.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n\n", len(r.Channels))

	lt := table.NewWriter()
	lt.SetOutputMirror(w)
	lt.SetStyle(table.StyleLight)
	lt.SetTitle("Cohort LTV")
	lt.AppendHeader(table.Row{"Cohort", "Horizon", "Customers", "Revenue", "Avg LTV"})
	for _, c := range r.Cohorts {
		lt.AppendRow(table.Row{
			c.CohortMonth.Format(cohortLayout), c.HorizonDays, c.Customers,
			c.Revenue.StringFixed(2), c.AverageLTV.StringFixed(2),
		})
	}
	lt.SetColumnConfigs(rightAligned(2, 3, 4, 5))
	lt.Render()
	_, _ = fmt.Fprintf(w, "(%d rows)\n", len(r.Cohorts))

	if len(r.Funnel) == 0 {
		return
	}
	ft := table.NewWriter()
	ft.SetOutputMirror(w)
	ft.SetStyle(table.StyleLight)
	ft.SetTitle("Event Funnel")
	ft.AppendHeader(table.Row{"Channel", "Views", "Carts", "Purchases", "Cart Rate"})
	for _, f := range r.Funnel {
		ft.AppendRow(table.Row{f.ChannelName, f.Views, f.Carts, f.Purchases, fmt.Sprintf("%.2f", f.CartRate)})
	}
	ft.SetColumnConfigs(rightAligned(2, 3, 4, 5))
	_, _ = fmt.Fprintln(w)
	ft.Render()
}

func rightAligned(columns ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(columns))
	for _, n := range columns {
		out = append(out, table.ColumnConfig{Number: n, Align: text.AlignRight})
	}
	return out
}
