package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.3, Clamp(0.1, 0.3, 1.5))
	assert.Equal(t, 1.5, Clamp(2.0, 0.3, 1.5))
	assert.Equal(t, 1.0, Clamp(1.0, 0.3, 1.5))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.2))
	assert.Equal(t, 1.0, Clamp01(1.7))
	assert.Equal(t, 0.42, Clamp01(0.42))
}

func TestSafeDiv(t *testing.T) {
	assert.Equal(t, 2.0, SafeDiv(4, 2))
	assert.Equal(t, 0.0, SafeDiv(4, 0))
	assert.Equal(t, 0.0, SafeDiv(4, math.NaN()))
	assert.Equal(t, 0.0, SafeDiv(4, math.Inf(1)))
}

func TestSign(t *testing.T) {
	assert.Equal(t, 1.0, Sign(0.5, 0.2))
	assert.Equal(t, -1.0, Sign(-0.5, 0.2))
	assert.Equal(t, 0.0, Sign(0.1, 0.2))
	assert.Equal(t, 0.0, Sign(-0.2, 0.2))
}

func TestNearlyEqual(t *testing.T) {
	assert.True(t, NearlyEqual(10.0, 10.0+1e-9, 1e-6))
	assert.False(t, NearlyEqual(10.0, 10.1, 1e-6))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 1.23, Round2(1.2345))
	assert.Equal(t, 1.235, Round3(1.2345))
	assert.Equal(t, 1.2345, Round4(1.23454))
}

func TestTailAndLast(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5}
	assert.Equal(t, []float64{4, 5}, Tail(data, 2))
	assert.Equal(t, data, Tail(data, 10))
	assert.Nil(t, Tail(nil, 3))
	assert.Equal(t, 5.0, Last(data))
	assert.Equal(t, 0.0, Last(nil))
}

func TestMinMax(t *testing.T) {
	data := []float64{3, 1, 4, 1, 5}
	assert.Equal(t, 5.0, Max(data))
	assert.Equal(t, 1.0, Min(data))
	assert.Equal(t, 0.0, Max(nil))
	assert.Equal(t, 0.0, Min(nil))
}

func TestStatsHelpers(t *testing.T) {
	data := []float64{2, 4, 6, 8}
	assert.InDelta(t, 5.0, Mean(data), 1e-9)
	assert.Equal(t, 0.0, Mean(nil))
	assert.Greater(t, StdDev(data), 0.0)
	assert.Equal(t, 0.0, StdDev(nil))

	x := []float64{1, 2, 3, 4, 5}
	y := []float64{2, 4, 6, 8, 10}
	assert.InDelta(t, 1.0, Correlation(x, y), 1e-9)
	assert.Equal(t, 0.0, Correlation(x, y[:3]))
}

func TestPctChange(t *testing.T) {
	assert.InDelta(t, 0.05, PctChange(100, 105), 1e-9)
	assert.Equal(t, 0.0, PctChange(0, 100))
}
