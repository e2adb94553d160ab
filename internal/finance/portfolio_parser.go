package finance

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultWindow is used when a command names no window.
const DefaultWindow = "1y"

var windowPattern = regexp.MustCompile(`^\d+[dwmy]$`)

// splitWindow removes a trailing window token such as 3m or 1y, if present.
func splitWindow(parts []string) ([]string, string) {
	if n := len(parts); n > 0 && windowPattern.MatchString(strings.ToLower(parts[n-1])) {
		return parts[:n-1], strings.ToLower(parts[n-1])
	}
	return parts, DefaultWindow
}

// ParseWeightedPortfolio parses "SPY 0.5 AAPL 0.5 [window]".
// Weights must be non-negative and sum to 1.
func ParseWeightedPortfolio(input string) ([]string, Allocation, string, error) {
	parts, window := splitWindow(strings.Fields(input))
	if len(parts) < 2 {
		return nil, nil, "", fmt.Errorf("insufficient arguments: need at least symbol weight")
	}
	if len(parts)%2 != 0 {
		return nil, nil, "", fmt.Errorf("invalid format: each symbol must have a weight")
	}

	var symbols []string
	var alloc Allocation
	seen := make(map[string]bool)
	for i := 0; i < len(parts); i += 2 {
		symbol := strings.ToUpper(parts[i])
		weight, err := strconv.ParseFloat(parts[i+1], 64)
		if err != nil {
			return nil, nil, "", fmt.Errorf("invalid weight '%s' for symbol %s: %w", parts[i+1], symbol, err)
		}
		if seen[symbol] {
			return nil, nil, "", fmt.Errorf("duplicate symbol: %s", symbol)
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
		alloc = append(alloc, weight)
	}

	if err := alloc.Validate(len(symbols)); err != nil {
		return nil, nil, "", err
	}
	return symbols, alloc, window, nil
}

// ParseSymbols parses "SPY AAPL GLD [window]".
func ParseSymbols(input string) ([]string, string, error) {
	parts, window := splitWindow(strings.Fields(input))
	if len(parts) == 0 {
		return nil, "", fmt.Errorf("no symbols provided")
	}
	seen := make(map[string]bool)
	var symbols []string
	for _, p := range parts {
		symbol := strings.ToUpper(p)
		if seen[symbol] {
			return nil, "", fmt.Errorf("duplicate symbol: %s", symbol)
		}
		seen[symbol] = true
		symbols = append(symbols, symbol)
	}
	return symbols, window, nil
}

// ParseWindow turns a window such as 10d, 6w, 3m or 2y into the date range
// ending on end's trading day.
func ParseWindow(window string, end time.Time) (time.Time, time.Time, error) {
	if window == "" {
		window = DefaultWindow
	}
	window = strings.ToLower(window)
	if !windowPattern.MatchString(window) {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window format: %s (use format like 1d, 1w, 1m, 1y)", window)
	}

	n, err := strconv.Atoi(window[:len(window)-1])
	if err != nil || n <= 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window length: %s", window)
	}

	end = TradingDay(end)
	var start time.Time
	switch window[len(window)-1] {
	case 'd':
		start = end.AddDate(0, 0, -n)
	case 'w':
		start = end.AddDate(0, 0, -7*n)
	case 'm':
		start = end.AddDate(0, -n, 0)
	case 'y':
		start = end.AddDate(-n, 0, 0)
	}
	return start, end, nil
}
