package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBars_Ascending(t *testing.T) {
	bars := []Bar{
		{TS: 1000, Open: 10, High: 11, Low: 9, Close: 10.5},
		{TS: 2000, Open: 10.5, High: 12, Low: 10, Close: 11},
	}
	require.NoError(t, ValidateBars(bars))

	// Duplicate timestamp must be rejected
	bars[1].TS = 1000
	assert.Error(t, ValidateBars(bars))

	// Out-of-order timestamp must be rejected
	bars[1].TS = 500
	assert.Error(t, ValidateBars(bars))
}

func TestValidateBars_OHLCInvariant(t *testing.T) {
	cases := []struct {
		name string
		bar  Bar
		ok   bool
	}{
		{"valid", Bar{TS: 1, Open: 10, High: 11, Low: 9, Close: 10.5}, true},
		{"doji", Bar{TS: 1, Open: 10, High: 10, Low: 10, Close: 10}, true},
		{"low above open", Bar{TS: 1, Open: 10, High: 11, Low: 10.2, Close: 10.5}, false},
		{"high below close", Bar{TS: 1, Open: 10, High: 10.2, Low: 9, Close: 10.5}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateBars([]Bar{tc.bar})
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateBars_Empty(t *testing.T) {
	assert.NoError(t, ValidateBars(nil))
}

func TestVolumes_MissingVolume(t *testing.T) {
	v := 5.0
	bars := []Bar{
		{TS: 1, Open: 1, High: 1, Low: 1, Close: 1},
		{TS: 2, Open: 1, High: 1, Low: 1, Close: 1, Volume: &v},
	}
	vols, any := Volumes(bars)
	assert.True(t, any)
	assert.Equal(t, []float64{0, 5}, vols)

	vols, any = Volumes(bars[:1])
	assert.False(t, any)
	assert.Equal(t, []float64{0}, vols)
}

func TestGroupWeights_Validate(t *testing.T) {
	require.NoError(t, DefaultGroupWeights().Validate())

	w := DefaultGroupWeights()
	w[GroupTrend] = 0.50
	assert.Error(t, w.Validate(), "sum above tolerance must fail")

	w = DefaultGroupWeights()
	delete(w, GroupVolume)
	assert.Error(t, w.Validate(), "missing group must fail")

	// Within the ±0.01 tolerance
	w = DefaultGroupWeights()
	w[GroupTrend] = 0.255
	assert.NoError(t, w.Validate())
}

func TestNormalizeNet(t *testing.T) {
	long, short := NormalizeNet(0)
	assert.InDelta(t, 5.0, long, 1e-9)
	assert.InDelta(t, 10.0, long+short, 1e-9)

	long, short = NormalizeNet(2)
	assert.InDelta(t, 10.0, long, 1e-9)
	assert.InDelta(t, 0.0, short, 1e-9)

	long, short = NormalizeNet(-2)
	assert.InDelta(t, 0.0, long, 1e-9)
	assert.InDelta(t, 10.0, short, 1e-9)

	// Out-of-range nets clamp instead of overflowing the scale
	long, short = NormalizeNet(3)
	assert.InDelta(t, 10.0, long, 1e-9)
	assert.InDelta(t, 10.0, long+short, 1e-9)
}

func TestTimeframe(t *testing.T) {
	assert.True(t, TF4h.Valid())
	assert.False(t, Timeframe("5m").Valid())
	assert.Equal(t, 4.0, TF4h.Hours())
	assert.Equal(t, int64(3600_000), TF1h.DurationMS())
	assert.Len(t, KnownTimeframes(), 4)
}

func TestSetupType(t *testing.T) {
	assert.Equal(t, "accumulation_play_long", SetupType(ModeAccumulationPlay, DirectionLong))
	assert.Equal(t, "trend_follow_short", SetupType(ModeTrendFollow, DirectionShort))
}
