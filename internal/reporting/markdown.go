package reporting

import (
	"fmt"
	"strings"
	"time"
)

const cohortLayout = "2006-01"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Attribution & LTV Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Attribution Rows | %d |\n", r.Summary.AttributionRows))
	sb.WriteString(fmt.Sprintf("| Attributed Orders | %d |\n", r.Summary.AttributedOrders))
	sb.WriteString(fmt.Sprintf("| LTV Rows | %d |\n", r.Summary.LtvRows))
	sb.WriteString(fmt.Sprintf("| LTV Customers | %d |\n", r.Summary.LtvCustomers))
	sb.WriteString(fmt.Sprintf("| Total Spend | %s |\n", r.Summary.TotalSpend.StringFixed(2)))
	sb.WriteString("\n")

	// Channels
	sb.WriteString("## Channel Attribution\n\n")
	if len(r.Channels) > 0 {
		sb.WriteString("| Model | Channel | Group | Revenue | Orders | Weight | Spend | ROAS |\n")
		sb.WriteString("|-------|---------|-------|---------|--------|--------|-------|------|\n")
		for _, c := range r.Channels {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.4f | %s | %s |\n",
				c.Model, c.ChannelName, c.ChannelGroup,
				c.Revenue.StringFixed(2), c.CreditedOrders, c.WeightSum,
				c.Spend.StringFixed(2), c.ROAS.StringFixed(4)))
		}
	} else {
		sb.WriteString("No attribution rows available.\n")
	}
	sb.WriteString("\n")

	// Cohorts
	sb.WriteString("## Cohort LTV\n\n")
	if len(r.Cohorts) > 0 {
		sb.WriteString("| Cohort | Horizon (days) | Customers | Revenue | Avg LTV |\n")
		sb.WriteString("|--------|----------------|-----------|---------|---------|\n")
		for _, c := range r.Cohorts {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %s | %s |\n",
				c.CohortMonth.Format(cohortLayout), c.HorizonDays, c.Customers,
				c.Revenue.StringFixed(2), c.AverageLTV.StringFixed(2)))
		}
	} else {
		sb.WriteString("No LTV rows available.\n")
	}
	sb.WriteString("\n")

	if len(r.Funnel) > 0 {
		sb.WriteString("## Event Funnel\n\n")
		sb.WriteString("| Channel | Views | Carts | Purchases | Cart Rate |\n")
		sb.WriteString("|---------|-------|-------|-----------|-----------|\n")
		for _, f := range r.Funnel {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.4f |\n",
				f.ChannelName, f.Views, f.Carts, f.Purchases, f.CartRate))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
