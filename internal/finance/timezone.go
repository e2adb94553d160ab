package finance

import "time"

// NewYork returns the exchange time zone, falling back to fixed EST if tzdata is missing.
func NewYork() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// TradingDay truncates t to its New York calendar date, expressed at midnight UTC
// so dates compare equal regardless of the source's time zone.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.In(NewYork()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CalendarDay keeps t's own calendar date at midnight UTC. Use it for dates a
// user typed; use TradingDay for instants reported by an exchange feed.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
