package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"compinvest/internal/finance"
)

const csvDateLayout = "2006-01-02"

type csvBar struct {
	Date        string  `csv:"date"`
	Close       float64 `csv:"close"`
	ActualClose float64 `csv:"actual_close"`
}

// CSVSource reads bars from <Dir>/<SYMBOL>.csv files with a
// date,close,actual_close header. actual_close may be omitted.
type CSVSource struct {
	Dir string
}

func (c CSVSource) Bars(_ context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = strings.ToUpper(symbol)
	path := filepath.Join(c.Dir, symbol+".csv")
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNoData)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []csvBar
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	bars := make([]Bar, 0, len(rows))
	for i, r := range rows {
		day, err := time.Parse(csvDateLayout, strings.TrimSpace(r.Date))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		actual := r.ActualClose
		if actual == 0 {
			actual = r.Close
		}
		bars = append(bars, Bar{Day: day, Close: r.Close, ActualClose: actual})
	}

	bars = withinRange(cleanBars(bars), finance.CalendarDay(start), finance.CalendarDay(end))
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoData)
	}
	return bars, nil
}
