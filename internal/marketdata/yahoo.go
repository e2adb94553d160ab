package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"compinvest/internal/finance"
)

// ErrUnknownSymbol is returned when Yahoo does not recognise a ticker.
var ErrUnknownSymbol = errors.New("unknown symbol")

// DefaultYahooHosts are tried in order on every attempt.
var DefaultYahooHosts = []string{
	"https://query1.finance.yahoo.com",
	"https://query2.finance.yahoo.com",
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15"

// YahooOptions configures a YahooSource. Zero values pick defaults.
type YahooOptions struct {
	Hosts             []string
	Timeout           time.Duration
	RequestsPerSecond int
	MaxRetryTime      time.Duration
	HTTPClient        *http.Client
}

// YahooSource reads daily bars from the Yahoo v8 chart API.
type YahooSource struct {
	hosts        []string
	client       *http.Client
	limiter      *rate.Limiter
	breaker      *gobreaker.CircuitBreaker
	maxRetryTime time.Duration
	log          zerolog.Logger
}

func NewYahooSource(opts YahooOptions) *YahooSource {
	if len(opts.Hosts) == 0 {
		opts.Hosts = DefaultYahooHosts
	}
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.MaxRetryTime == 0 {
		opts.MaxRetryTime = 20 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	st := gobreaker.Settings{
		Name:     "yahoo",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, ErrUnknownSymbol) || errors.Is(err, context.Canceled)
		},
	}

	return &YahooSource{
		hosts:        opts.Hosts,
		client:       client,
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.RequestsPerSecond),
		breaker:      gobreaker.NewCircuitBreaker(st),
		maxRetryTime: opts.MaxRetryTime,
		log:          log.With().Str("component", "yahoo").Logger(),
	}
}

func (y *YahooSource) Bars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	timer := prometheus.NewTimer(fetchDuration.WithLabelValues("yahoo"))
	defer timer.ObserveDuration()

	out, err := y.breaker.Execute(func() (interface{}, error) {
		return y.fetch(ctx, symbol, start, end)
	})
	if err != nil {
		fetchTotal.WithLabelValues("yahoo", "error").Inc()
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	fetchTotal.WithLabelValues("yahoo", "ok").Inc()
	return out.([]Bar), nil
}

func (y *YahooSource) fetch(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error) {
	symbol = strings.ToUpper(symbol)
	start, end = finance.CalendarDay(start), finance.CalendarDay(end)
	path := fmt.Sprintf("/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=div,splits&includeAdjustedClose=true",
		symbol, start.Unix(), end.AddDate(0, 0, 1).Unix())

	var yc yahooChartResp
	attempt := 0
	operation := func() error {
		attempt++
		var lastErr error
		for _, host := range y.hosts {
			if err := y.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
			body, err := y.get(ctx, host+path, symbol)
			if err != nil {
				if errors.Is(err, ErrUnknownSymbol) {
					return backoff.Permanent(err)
				}
				lastErr = err
				continue
			}
			yc = yahooChartResp{}
			if err := json.Unmarshal(body, &yc); err != nil {
				lastErr = fmt.Errorf("failed to parse yahoo json: %v; body: %s", err, preview(body))
				continue
			}
			return nil
		}
		y.log.Warn().Err(lastErr).Str("symbol", symbol).Int("attempt", attempt).Msg("yahoo fetch failed")
		return lastErr
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = y.maxRetryTime
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil, err
	}

	if yc.Chart.Error != nil {
		if yc.Chart.Error.Code == "Not Found" {
			return nil, ErrUnknownSymbol
		}
		return nil, fmt.Errorf("yahoo error %s: %s", yc.Chart.Error.Code, yc.Chart.Error.Description)
	}
	if len(yc.Chart.Result) == 0 || len(yc.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	res := yc.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	adjusted := closes
	if len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) == len(closes) {
		adjusted = res.Indicators.AdjClose[0].AdjClose
	}

	n := len(res.Timestamp)
	if len(closes) < n {
		n = len(closes)
	}
	bars := make([]Bar, 0, n)
	for i := 0; i < n; i++ {
		bars = append(bars, Bar{
			Day:         finance.TradingDay(time.Unix(res.Timestamp[i], 0)),
			Close:       adjusted[i],
			ActualClose: closes[i],
		})
	}
	bars = withinRange(cleanBars(bars), start, end)
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	y.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("fetched")
	return bars, nil
}

// get performs one request and checks the response looks like JSON.
func (y *YahooSource) get(ctx context.Context, url, symbol string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", fmt.Sprintf("https://finance.yahoo.com/quote/%s/history", symbol))

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read yahoo response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUnknownSymbol
	case resp.StatusCode == http.StatusTooManyRequests || strings.HasPrefix(string(body), "Edge: Too Many Requests"):
		return nil, fmt.Errorf("yahoo returned 429: Edge: Too Many Requests")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("yahoo returned %d: %s", resp.StatusCode, preview(body))
	case strings.HasPrefix(string(body), "<") || strings.HasPrefix(string(body), "Edge:"):
		return nil, fmt.Errorf("yahoo returned non-json body: %s", preview(body))
	}
	return body, nil
}

func preview(body []byte) string {
	s := string(body)
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}
