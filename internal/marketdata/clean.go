package marketdata

import (
	"math"
	"sort"
	"time"
)

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// cleanBars drops bars with a missing or non-positive close, sorts by day and
// keeps the last bar when a day repeats.
func cleanBars(bars []Bar) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if !validPrice(b.Close) || !validPrice(b.ActualClose) {
			droppedBars.Inc()
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })

	dedup := out[:0]
	for _, b := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Day.Equal(b.Day) {
			dedup[n-1] = b
			continue
		}
		dedup = append(dedup, b)
	}
	return dedup
}

// withinRange keeps bars whose day falls in [start, end].
func withinRange(bars []Bar, start, end time.Time) []Bar {
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Day.Before(start) || b.Day.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
