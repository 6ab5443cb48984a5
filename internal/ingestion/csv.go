package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ltv-attribution-lab/internal/storage"
)

// Layouts accepted for timestamps, tried in order.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

const (
	writeTimestampLayout = "2006-01-02 15:04:05"
	dateLayout           = "2006-01-02"
)

// Column headers per file, in written order.
var (
	channelColumns  = []string{"channel_name", "channel_group"}
	customerColumns = []string{"external_id", "signup_date", "country"}
	orderColumns    = []string{"order_id", "order_ts", "external_id", "amount"}
	touchColumns    = []string{"event_ts", "external_id", "channel_name", "campaign", "session_id", "revenue_at_event"}
	spendColumns    = []string{"spend_date", "channel_name", "spend"}
	eventColumns    = []string{"event_ts", "external_id", "channel_name", "event_type", "product_id", "order_id"}
)

// csvFile iterates records of one CSV file by column name.
type csvFile struct {
	name   string
	r      *csv.Reader
	index  map[string]int
	record []string
	line   int
}

func openCSV(name string, src io.Reader, required []string) (*csvFile, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: %s: missing column %q", storage.ErrInvalidInput, name, col)
		}
	}
	return &csvFile{name: name, r: r, index: index}, nil
}

// next advances to the next record. It returns io.EOF at the end.
func (f *csvFile) next() error {
	rec, err := f.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("%s: %w", f.name, err)
	}
	f.record = rec
	f.line, _ = f.r.FieldPos(0)
	return nil
}

func (f *csvFile) get(col string) string {
	i, ok := f.index[col]
	if !ok || i >= len(f.record) {
		return ""
	}
	return strings.TrimSpace(f.record[i])
}

func (f *csvFile) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s line %d: %s", storage.ErrInvalidInput, f.name, f.line, fmt.Sprintf(format, args...))
}

func (f *csvFile) timestamp(col string) (time.Time, error) {
	v := f.get(col)
	t, err := parseTimestamp(v)
	if err != nil {
		return time.Time{}, f.errorf("%s: invalid timestamp %q", col, v)
	}
	return t, nil
}

func (f *csvFile) date(col string) (time.Time, error) {
	t, err := f.timestamp(col)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// money parses a decimal column. Empty values are zero when optional.
func (f *csvFile) money(col string, optional bool) (decimal.Decimal, error) {
	v := f.get(col)
	if v == "" && optional {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, f.errorf("%s: invalid amount %q", col, v)
	}
	return d, nil
}

// optionalID parses an optional integer column. Empty values are nil.
func (f *csvFile) optionalID(col string) (*int64, error) {
	v := f.get(col)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, f.errorf("invalid %s %q", col, v)
	}
	return &id, nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
}

// ReadDir reads the source CSVs from dir. events.csv may be absent.
func ReadDir(dir string) (*Dataset, error) {
	ds := &Dataset{}
	readers := []struct {
		name     string
		optional bool
		read     func(string, io.Reader, *Dataset) error
	}{
		{ChannelsFile, false, readChannels},
		{CustomersFile, false, readCustomers},
		{OrdersFile, false, readOrders},
		{TouchesFile, false, readTouches},
		{SpendFile, false, readSpend},
		{EventsFile, true, readEvents},
	}
	for _, rd := range readers {
		if err := readFile(filepath.Join(dir, rd.name), rd.name, rd.optional, ds, rd.read); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

func readFile(path, name string, optional bool, ds *Dataset, read func(string, io.Reader, *Dataset) error) error {
	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return read(name, f, ds)
}

func readChannels(name string, src io.Reader, ds *Dataset) error {
	f, err := openCSV(name, src, []string{"channel_name"})
	if err != nil {
		return err
	}
	for {
		if err := f.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		rec := ChannelRecord{Name: f.get("channel_name"), Group: f.get("channel_group"), Line: f.line}
		if rec.Name == "" {
			return f.errorf("empty channel_name")
		}
		ds.Channels = append(ds.Channels, rec)
	}
}

func readCustomers(name string, src io.Reader, ds *Dataset) error {
	f, err := openCSV(name, src, []string{"external_id", "signup_date"})
	if err != nil {
		return err
	}
	for {
		if err := f.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		signup, err := f.date("signup_date")
		if err != nil {
			return err
		}
		rec := CustomerRecord{
			ExternalID: f.get("external_id"),
			SignupDate: signup,
			Country:    f.get("country"),
			Line:       f.line,
		}
		if rec.ExternalID == "" {
			return f.errorf("empty external_id")
		}
		ds.Customers = append(ds.Customers, rec)
	}
}

func readOrders(name string, src io.Reader, ds *Dataset) error {
	f, err := openCSV(name, src, []string{"order_ts", "external_id", "amount"})
	if err != nil {
		return err
	}
	for {
		if err := f.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		ts, err := f.timestamp("order_ts")
		if err != nil {
			return err
		}
		amount, err := f.money("amount", false)
		if err != nil {
			return err
		}
		if amount.IsNegative() {
			return f.errorf("negative amount %s", amount)
		}
		var orderID int64
		if v := f.get("order_id"); v != "" {
			if orderID, err = strconv.ParseInt(v, 10, 64); err != nil {
				return f.errorf("invalid order_id %q", v)
			}
		}
		ds.Orders = append(ds.Orders, OrderRecord{
			OrderID:    orderID,
			OrderTS:    ts,
			ExternalID: f.get("external_id"),
			Amount:     amount,
			Line:       f.line,
		})
	}
}

func readTouches(name string, src io.Reader, ds *Dataset) error {
	f, err := openCSV(name, src, []string{"event_ts", "external_id", "channel_name"})
	if err != nil {
		return err
	}
	for {
		if err := f.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		ts, err := f.timestamp("event_ts")
		if err != nil {
			return err
		}
		rev, err := f.money("revenue_at_event", true)
		if err != nil {
			return err
		}
		ds.Touches = append(ds.Touches, TouchRecord{
			EventTS:        ts,
			ExternalID:     f.get("external_id"),
			ChannelName:    f.get("channel_name"),
			Campaign:       f.get("campaign"),
			SessionID:      f.get("session_id"),
			RevenueAtEvent: rev,
			Line:           f.line,
		})
	}
}

func readSpend(name string, src io.Reader, ds *Dataset) error {
	f, err := openCSV(name, src, []string{"spend_date", "channel_name", "spend"})
	if err != nil {
		return err
	}
	for {
		if err := f.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		d, err := f.date("spend_date")
		if err != nil {
			return err
		}
		spend, err := f.money("spend", false)
		if err != nil {
			return err
		}
		ds.Spend = append(ds.Spend, SpendRecord{
			SpendDate:   d,
			ChannelName: f.get("channel_name"),
			Spend:       spend,
			Line:        f.line,
		})
	}
}

func readEvents(name string, src io.Reader, ds *Dataset) error {
	f, err := openCSV(name, src, []string{"event_ts", "external_id", "channel_name", "event_type"})
	if err != nil {
		return err
	}
	for {
		if err := f.next(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		ts, err := f.timestamp("event_ts")
		if err != nil {
			return err
		}
		productID, err := f.optionalID("product_id")
		if err != nil {
			return err
		}
		orderID, err := f.optionalID("order_id")
		if err != nil {
			return err
		}
		ds.Events = append(ds.Events, EventRecord{
			EventTS:     ts,
			ExternalID:  f.get("external_id"),
			ChannelName: f.get("channel_name"),
			EventType:   f.get("event_type"),
			ProductID:   productID,
			OrderID:     orderID,
			Line:        f.line,
		})
	}
}

// WriteDir writes ds as the source CSVs into dir, creating it if needed.
func WriteDir(dir string, ds *Dataset) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	files := []struct {
		name   string
		header []string
		rows   func() [][]string
	}{
		{ChannelsFile, channelColumns, func() [][]string {
			out := make([][]string, 0, len(ds.Channels))
			for _, c := range ds.Channels {
				out = append(out, []string{c.Name, c.Group})
			}
			return out
		}},
		{CustomersFile, customerColumns, func() [][]string {
			out := make([][]string, 0, len(ds.Customers))
			for _, c := range ds.Customers {
				out = append(out, []string{c.ExternalID, c.SignupDate.Format(dateLayout), c.Country})
			}
			return out
		}},
		{OrdersFile, orderColumns, func() [][]string {
			out := make([][]string, 0, len(ds.Orders))
			for i, o := range ds.Orders {
				out = append(out, []string{
					strconv.FormatInt(sourceOrderID(o, i), 10),
					o.OrderTS.UTC().Format(writeTimestampLayout),
					o.ExternalID,
					o.Amount.StringFixed(2),
				})
			}
			return out
		}},
		{TouchesFile, touchColumns, func() [][]string {
			out := make([][]string, 0, len(ds.Touches))
			for _, t := range ds.Touches {
				out = append(out, []string{
					t.EventTS.UTC().Format(writeTimestampLayout),
					t.ExternalID,
					t.ChannelName,
					t.Campaign,
					t.SessionID,
					t.RevenueAtEvent.StringFixed(2),
				})
			}
			return out
		}},
		{SpendFile, spendColumns, func() [][]string {
			out := make([][]string, 0, len(ds.Spend))
			for _, s := range ds.Spend {
				out = append(out, []string{s.SpendDate.Format(dateLayout), s.ChannelName, s.Spend.StringFixed(2)})
			}
			return out
		}},
		{EventsFile, eventColumns, func() [][]string {
			out := make([][]string, 0, len(ds.Events))
			for _, e := range ds.Events {
				out = append(out, []string{
					e.EventTS.UTC().Format(writeTimestampLayout),
					e.ExternalID,
					e.ChannelName,
					e.EventType,
					formatOptionalID(e.ProductID),
					formatOptionalID(e.OrderID),
				})
			}
			return out
		}},
	}

	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.header, f.rows()); err != nil {
			return fmt.Errorf("write %s: %w", f.name, err)
		}
	}
	return nil
}

func writeFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatOptionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
