package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngMagic = []byte("\x89PNG")

func TestRenderPortfolio(t *testing.T) {
	values := []float64{1, 1.02, 0.99, 1.05, 1.04}
	img, err := RenderPortfolio("Portfolio", days(len(values)), values, Stats{CumulativeReturn: 1.04, Sharpe: 0.8, Volatility: 0.02})
	require.NoError(t, err)
	assert.Equal(t, pngMagic, img[:4])

	_, err = RenderPortfolio("Portfolio", days(2), values, Stats{})
	assert.Error(t, err)
}

func TestRenderEventStudy(t *testing.T) {
	study := EventStudy{
		Offsets: []int{-1, 0, 1},
		Mean:    []float64{1.1, 1, 1.02},
		StdDev:  []float64{0.05, 0, 0.04},
		Used:    4,
	}
	img, err := RenderEventStudy("Events", study)
	require.NoError(t, err)
	assert.Equal(t, pngMagic, img[:4])

	_, err = RenderEventStudy("Events", EventStudy{})
	assert.Error(t, err)
}

func TestPaddedRange(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		min, max float64
	}{
		{"spread", []float64{10, 20}, 9.5, 20.5},
		{"flat positive", []float64{100, 100}, 95, 105},
		{"flat negative", []float64{-200, -200}, -210, -190},
		{"flat zero", []float64{0, 0}, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := paddedRange(tt.values)
			assert.InDelta(t, tt.min, lo, 1e-9)
			assert.InDelta(t, tt.max, hi, 1e-9)
			assert.Less(t, lo, hi)
		})
	}

	values := []float64{-200, -200, -200}
	img, err := RenderPortfolio("Account value", days(len(values)), values, Stats{})
	require.NoError(t, err)
	assert.Equal(t, pngMagic, img[:4])
}
