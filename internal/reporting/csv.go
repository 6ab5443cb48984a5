package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// RenderChannelCSV renders channel summaries as CSV string.
func RenderChannelCSV(rows []ChannelSummary) (string, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{
		"model", "channel_id", "channel_name", "channel_group",
		"revenue", "credited_orders", "weight_sum", "spend", "roas",
	})
	for _, c := range rows {
		records = append(records, []string{
			string(c.Model),
			strconv.FormatInt(c.ChannelID, 10),
			c.ChannelName,
			c.ChannelGroup,
			c.Revenue.StringFixed(2),
			strconv.Itoa(c.CreditedOrders),
			strconv.FormatFloat(c.WeightSum, 'f', 6, 64),
			c.Spend.StringFixed(2),
			c.ROAS.StringFixed(4),
		})
	}
	return writeCSV(records)
}

// RenderCohortCSV renders cohort summaries as CSV string.
func RenderCohortCSV(rows []CohortSummary) (string, error) {
	records := make([][]string, 0, len(rows)+1)
	records = append(records, []string{"cohort_month", "horizon_days", "customers", "revenue", "avg_ltv"})
	for _, c := range rows {
		records = append(records, []string{
			c.CohortMonth.Format("2006-01-02"),
			strconv.Itoa(c.HorizonDays),
			strconv.Itoa(c.Customers),
			c.Revenue.StringFixed(2),
			c.AverageLTV.StringFixed(2),
		})
	}
	return writeCSV(records)
}

func writeCSV(records [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return sb.String(), nil
}
