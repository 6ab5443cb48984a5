package ingestion

import (
	"os"
	"path/filepath"
	"testing"
)

const (
	channelsCSV = `channel_name,channel_group
Google Ads,Paid Search
Email,Owned
`
	customersCSV = `external_id,signup_date,country
C0001,2025-01-15,MX
C0002,2025-02-01,US
`
	ordersCSV = `order_id,order_ts,external_id,amount
1,2025-02-14 10:00:00,C0001,40.00
2,2025-06-01T08:30:00Z,C0001,60.00
3,2025-02-10 12:00:00,C0002,25.50
`
	touchesCSV = `event_ts,external_id,channel_name,campaign,session_id,revenue_at_event
2025-02-01 10:00:00,C0001,Google Ads,Google Ads / 2025,S1,0.0
2025-02-13 09:00:00,C0001,Email,Email / 2025,S1,
2025-02-09 12:00:00,C0002,Email,,,0
`
	spendCSV = `spend_date,channel_name,spend
2025-02-01,Google Ads,210.25
2025-02-01,Email,0.00
`
	eventsCSV = `event_ts,external_id,channel_name,event_type,product_id,order_id
2025-02-01 10:05:00,C0001,Google Ads,view_product,101,
2025-02-13 09:10:00,C0001,Email,add_to_cart,101,
2025-02-14 10:00:00,C0001,Email,purchase,,1
2025-02-10 12:00:00,C0002,Email,purchase,,3
`
)

// writeDataDir writes the sample CSVs, with overrides keyed by file name.
func writeDataDir(t *testing.T, overrides map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		ChannelsFile:  channelsCSV,
		CustomersFile: customersCSV,
		OrdersFile:    ordersCSV,
		TouchesFile:   touchesCSV,
		SpendFile:     spendCSV,
		EventsFile:    eventsCSV,
	}
	for name, content := range overrides {
		files[name] = content
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}
