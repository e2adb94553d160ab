package finance

import (
	"fmt"
	"math"
	"time"

	"github.com/vicanso/go-charts/v2"
)

// RenderPortfolio draws a portfolio value series with its statistics in the title.
func RenderPortfolio(title string, days []time.Time, values []float64, stats Stats) ([]byte, error) {
	if len(values) == 0 || len(days) != len(values) {
		return nil, fmt.Errorf("no portfolio values to chart")
	}

	xLabels := dayLabels(days)
	yMin, yMax := paddedRange(values)

	subtitle := fmt.Sprintf("Return: %.2f%% | Sharpe: %.2f | Vol: %.2f%% | MaxDD: %.2f%%",
		(stats.CumulativeReturn-1)*100, stats.Sharpe, stats.Volatility*100, MaxDrawdown(values)*100)

	p, err := charts.LineRender(
		[][]float64{values},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// RenderEventStudy draws the mean event path with a one standard deviation band.
func RenderEventStudy(title string, study EventStudy) ([]byte, error) {
	if len(study.Offsets) == 0 || len(study.Mean) != len(study.Offsets) {
		return nil, fmt.Errorf("empty event study")
	}

	upper := make([]float64, len(study.Mean))
	lower := make([]float64, len(study.Mean))
	for i, m := range study.Mean {
		upper[i] = m + study.StdDev[i]
		lower[i] = m - study.StdDev[i]
	}

	xLabels := make([]string, len(study.Offsets))
	for i, off := range study.Offsets {
		xLabels[i] = fmt.Sprintf("%d", off)
	}

	all := append(append(append([]float64{}, study.Mean...), upper...), lower...)
	yMin, yMax := paddedRange(all)

	subtitle := fmt.Sprintf("%d events (%d dropped at the edges)", study.Used, study.Dropped)
	p, err := charts.LineRender(
		[][]float64{study.Mean, upper, lower},
		charts.TitleTextOptionFunc(title+"\n"+subtitle),
		charts.LegendLabelsOptionFunc([]string{"mean", "+1 std", "-1 std"}, charts.PositionRight),
		charts.XAxisOptionFunc(charts.XAxisOption{
			Data:        xLabels,
			SplitNumber: splitNumber(len(xLabels)),
			BoundaryGap: charts.FalseFlag(),
		}),
		charts.YAxisOptionFunc(charts.YAxisOption{
			Min:         &yMin,
			Max:         &yMax,
			DivideCount: 5,
		}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return p.Bytes()
}

// dayLabels formats trading days, which are already New York dates.
func dayLabels(days []time.Time) []string {
	layout := "Jan 02"
	if len(days) > 60 {
		layout = "Jan '06"
	}
	labels := make([]string, len(days))
	for i, d := range days {
		labels[i] = d.Format(layout)
	}
	return labels
}

// paddedRange returns min/max of values widened by 5% so lines don't touch the frame.
func paddedRange(values []float64) (float64, float64) {
	minVal, maxVal := values[0], values[0]
	for _, v := range values {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	padding := (maxVal - minVal) * 0.05
	if padding == 0 {
		padding = math.Abs(maxVal) * 0.05
	}
	if padding == 0 {
		padding = 1
	}
	return minVal - padding, maxVal + padding
}

func splitNumber(points int) int {
	if points > 30 {
		return 6
	}
	n := points / 3
	if n < 3 {
		n = 3
	}
	return n
}
