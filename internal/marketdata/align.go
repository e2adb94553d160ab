package marketdata

import (
	"sort"
	"time"
)

// unionCalendar returns every distinct day present in any series, ascending.
func unionCalendar(series map[string][]Bar) []time.Time {
	seen := make(map[time.Time]struct{})
	var days []time.Time
	for _, bars := range series {
		for _, b := range bars {
			if _, ok := seen[b.Day]; ok {
				continue
			}
			seen[b.Day] = struct{}{}
			days = append(days, b.Day)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days
}

// alignBars places one symbol's prices on calendar. Gaps are forward-filled,
// leading gaps back-filled from the first known price, and a symbol with no
// prices at all becomes a flat 1.0.
func alignBars(calendar []time.Time, bars []Bar, pick func(Bar) float64) []float64 {
	byDay := make(map[time.Time]float64, len(bars))
	for _, b := range bars {
		byDay[b.Day] = pick(b)
	}

	out := make([]float64, len(calendar))
	first := -1
	last := 0.0
	for i, day := range calendar {
		if price, ok := byDay[day]; ok {
			last = price
			if first < 0 {
				first = i
			}
		}
		out[i] = last
	}

	if first < 0 {
		for i := range out {
			out[i] = 1.0
		}
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	return out
}

func pickClose(b Bar) float64       { return b.Close }
func pickActualClose(b Bar) float64 { return b.ActualClose }
