package finance

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
)

// Order actions.
const (
	Buy  = "BUY"
	Sell = "SELL"
)

// Order is one row of an order log: year,month,day,symbol,action,shares.
// Logs written by spreadsheets often end each row with a comma, which lands in Note.
type Order struct {
	Year   int    `csv:"year"`
	Month  int    `csv:"month"`
	Day    int    `csv:"day"`
	Symbol string `csv:"symbol"`
	Action string `csv:"action"`
	Shares int    `csv:"shares"`
	Note   string `csv:"note"`
}

// Date returns the calendar date of the order.
func (o Order) Date() time.Time {
	return time.Date(o.Year, time.Month(o.Month), o.Day, 0, 0, 0, 0, time.UTC)
}

func (o Order) dateKey() int {
	return o.Year*10000 + o.Month*100 + o.Day
}

// ReadOrders parses a headerless order log and returns the orders sorted by
// date. Orders on the same date keep their file order.
func ReadOrders(in io.Reader) ([]Order, error) {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var orders []Order
	if err := gocsv.UnmarshalCSVWithoutHeaders(reader, &orders); err != nil {
		return nil, fmt.Errorf("parsing orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order log is empty")
	}

	for i := range orders {
		o := &orders[i]
		o.Symbol = strings.ToUpper(strings.TrimSpace(o.Symbol))
		o.Action = strings.ToUpper(strings.TrimSpace(o.Action))
		if o.Symbol == "" {
			return nil, fmt.Errorf("order %d: empty symbol", i+1)
		}
		if o.Action != Buy && o.Action != Sell {
			return nil, fmt.Errorf("order %d: unknown action %q", i+1, o.Action)
		}
		if o.Shares < 0 {
			return nil, fmt.Errorf("order %d: negative share count %d", i+1, o.Shares)
		}
		// time.Date normalizes out-of-range values, so compare back
		d := o.Date()
		if d.Year() != o.Year || int(d.Month()) != o.Month || d.Day() != o.Day {
			return nil, fmt.Errorf("order %d: invalid date %04d-%02d-%02d", i+1, o.Year, o.Month, o.Day)
		}
	}

	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].dateKey() < orders[j].dateKey()
	})
	return orders, nil
}

// OrderSymbols returns the distinct symbols traded, sorted.
func OrderSymbols(orders []Order) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, o := range orders {
		if _, ok := seen[o.Symbol]; ok {
			continue
		}
		seen[o.Symbol] = struct{}{}
		out = append(out, o.Symbol)
	}
	sort.Strings(out)
	return out
}

// OrderRange returns the first and last order dates of a sorted log.
func OrderRange(orders []Order) (time.Time, time.Time) {
	if len(orders) == 0 {
		return time.Time{}, time.Time{}
	}
	return orders[0].Date(), orders[len(orders)-1].Date()
}
