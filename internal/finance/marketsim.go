package finance

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
)

// ValueSeries is the daily total value of a simulated account.
type ValueSeries struct {
	Days   []time.Time
	Values []float64
}

// DailyValue is one row of the simulator output: year,month,day,value.
type DailyValue struct {
	Year  int    `csv:"year"`
	Month int    `csv:"month"`
	Day   int    `csv:"day"`
	Value string `csv:"value"`
}

func dayKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// Simulate replays a date-sorted order log against closing prices, starting
// from cash. Orders dated on a non-trading day fill at the next trading day's
// close. Cash may go negative and positions may go short.
func Simulate(cash decimal.Decimal, orders []Order, closes *PriceTable) (ValueSeries, error) {
	if err := closes.Validate(); err != nil {
		return ValueSeries{}, err
	}

	columns := make(map[string][]float64, len(closes.Symbols))
	for _, o := range orders {
		if _, ok := columns[o.Symbol]; ok {
			continue
		}
		col, ok := closes.Column(o.Symbol)
		if !ok {
			return ValueSeries{}, fmt.Errorf("no prices for %s", o.Symbol)
		}
		columns[o.Symbol] = col
	}

	holdings := make(map[string]int64, len(columns))
	series := ValueSeries{
		Days:   closes.Days,
		Values: make([]float64, len(closes.Days)),
	}

	next := 0
	for day, date := range closes.Days {
		key := dayKey(date)
		for next < len(orders) && orders[next].dateKey() <= key {
			o := orders[next]
			price := decimal.NewFromFloat(columns[o.Symbol][day])
			shares := int64(o.Shares)
			if o.Action == Sell {
				shares = -shares
			}
			holdings[o.Symbol] += shares
			cash = cash.Sub(price.Mul(decimal.NewFromInt(shares)))
			next++
		}

		total := cash
		for symbol, shares := range holdings {
			if shares == 0 {
				continue
			}
			price := decimal.NewFromFloat(columns[symbol][day])
			total = total.Add(price.Mul(decimal.NewFromInt(shares)))
		}
		series.Values[day] = total.InexactFloat64()
	}

	if next < len(orders) {
		o := orders[next]
		return ValueSeries{}, fmt.Errorf("order on %s is after the last trading day", o.Date().Format("2006-01-02"))
	}
	return series, nil
}

// WriteValues writes the series as headerless year,month,day,value rows.
func WriteValues(out io.Writer, series ValueSeries) error {
	rows := make([]DailyValue, len(series.Days))
	for i, day := range series.Days {
		rows[i] = DailyValue{
			Year:  day.Year(),
			Month: int(day.Month()),
			Day:   day.Day(),
			Value: decimal.NewFromFloat(series.Values[i]).StringFixed(2),
		}
	}
	if err := gocsv.MarshalWithoutHeaders(&rows, out); err != nil {
		return fmt.Errorf("writing values: %w", err)
	}
	return nil
}
