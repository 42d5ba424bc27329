package multitf

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/domain"
)

func disabledLogger() zerolog.Logger {
	return zerolog.New(nil).Level(zerolog.Disabled)
}

func newTestAggregator() *Aggregator {
	return NewAggregator(config.DefaultThresholds(), disabledLogger())
}

func tfScore(tf domain.Timeframe, net float64) domain.TimeframeScore {
	long, short := domain.NormalizeNet(net)
	return domain.TimeframeScore{
		Timeframe:       tf,
		NetScore:        net,
		NormalizedLong:  long,
		NormalizedShort: short,
	}
}

func tfScoreWithMomentum(tf domain.Timeframe, net, momentumRaw float64) domain.TimeframeScore {
	score := tfScore(tf, net)
	score.GroupScores = map[domain.ScoreGroup]domain.GroupScore{
		domain.GroupMomentum: {Group: domain.GroupMomentum, RawScore: momentumRaw},
	}
	return score
}

func TestAggregateFullAgreement(t *testing.T) {
	agg := newTestAggregator()

	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScore(domain.TF1h, 1.0),
		domain.TF4h: tfScore(domain.TF4h, 0.8),
		domain.TF1d: tfScore(domain.TF1d, 0.6),
		domain.TF1w: tfScore(domain.TF1w, 0.4),
	}

	out, err := agg.Aggregate(perTF, domain.TF1h, nil)
	require.NoError(t, err)

	// net = 0.50*1.0 + 0.30*0.8 + 0.15*0.6 + 0.05*0.4 = 0.85
	assert.Equal(t, domain.TF1h, out.TargetTF)
	assert.InDelta(t, 7.125, out.AggregatedLong, 1e-9)
	assert.InDelta(t, 2.875, out.AggregatedShort, 1e-9)
	assert.InDelta(t, 1.0, out.Confidence, 1e-9)
	assert.Equal(t, domain.DirectionLong, out.Direction)

	require.Len(t, out.PerTF, 4)
	assert.InDelta(t, 0.50, out.PerTF[domain.TF1h].Weight, 1e-9)
	assert.InDelta(t, 0.05, out.PerTF[domain.TF1w].Weight, 1e-9)
}

func TestAggregateRenormalizesMissingTimeframes(t *testing.T) {
	agg := newTestAggregator()

	// Only two feeds: the 1h row weights {0.50, 0.30} renormalize over 0.80
	// so two fully bullish timeframes still aggregate to a full net.
	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScore(domain.TF1h, 1.0),
		domain.TF4h: tfScore(domain.TF4h, 1.0),
	}

	out, err := agg.Aggregate(perTF, domain.TF1h, nil)
	require.NoError(t, err)

	assert.InDelta(t, 7.5, out.AggregatedLong, 1e-9)
	assert.InDelta(t, 2.5, out.AggregatedShort, 1e-9)
	assert.InDelta(t, 1.0, out.Confidence, 1e-9)

	require.Len(t, out.PerTF, 2)
	assert.InDelta(t, 0.625, out.PerTF[domain.TF1h].Weight, 1e-9)
	assert.InDelta(t, 0.375, out.PerTF[domain.TF4h].Weight, 1e-9)
}

func TestAggregateDisagreementLowersConfidence(t *testing.T) {
	agg := newTestAggregator()

	// 4h opposes the target outright, 1d is flat, 1w confirms:
	// agreement = 0.50*1 + 0.30*0 + 0.15*0.3 + 0.05*1 = 0.595
	// confidence = 0.3 + 0.7*0.595 = 0.7165 -> 0.72
	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScore(domain.TF1h, 1.0),
		domain.TF4h: tfScore(domain.TF4h, -1.0),
		domain.TF1d: tfScore(domain.TF1d, 0.0),
		domain.TF1w: tfScore(domain.TF1w, 1.0),
	}

	out, err := agg.Aggregate(perTF, domain.TF1h, nil)
	require.NoError(t, err)

	assert.InDelta(t, 5.625, out.AggregatedLong, 1e-9)
	assert.InDelta(t, 4.375, out.AggregatedShort, 1e-9)
	assert.InDelta(t, 0.72, out.Confidence, 1e-9)
	assert.Equal(t, domain.DirectionLong, out.Direction)
}

func TestAggregateFlatTargetPartialAgreement(t *testing.T) {
	agg := newTestAggregator()

	// Target net 0.1 sits inside the dead band, so directional feeds earn
	// only partial agreement while the target trivially agrees with itself:
	// agreement = (0.50*1 + 0.30*0.3 + 0.15*0.3) / 0.95 = 0.635/0.95
	// confidence = 0.3 + 0.7*0.6684 = 0.7679 -> 0.77
	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScore(domain.TF1h, 0.1),
		domain.TF4h: tfScore(domain.TF4h, 1.0),
		domain.TF1d: tfScore(domain.TF1d, -1.0),
	}

	out, err := agg.Aggregate(perTF, domain.TF1h, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.77, out.Confidence, 1e-9)
	assert.Equal(t, domain.DirectionLong, out.Direction)
	assert.Len(t, out.PerTF, 3)
	assert.NotContains(t, out.PerTF, domain.TF1w)
}

func TestAggregateNeutralTieGoesShort(t *testing.T) {
	agg := newTestAggregator()

	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScore(domain.TF1h, 0.0),
		domain.TF4h: tfScore(domain.TF4h, 0.0),
	}

	out, err := agg.Aggregate(perTF, domain.TF1h, nil)
	require.NoError(t, err)

	assert.InDelta(t, 5.0, out.AggregatedLong, 1e-9)
	assert.InDelta(t, 5.0, out.AggregatedShort, 1e-9)
	assert.Equal(t, domain.DirectionShort, out.Direction)
	assert.InDelta(t, 1.0, out.Confidence, 1e-9)
}

func TestAggregateTargetMissing(t *testing.T) {
	agg := newTestAggregator()

	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF4h: tfScore(domain.TF4h, 1.0),
	}

	_, err := agg.Aggregate(perTF, domain.TF1h, nil)
	assert.ErrorContains(t, err, "target timeframe")
}

func TestAggregateUnknownTargetTimeframe(t *testing.T) {
	agg := newTestAggregator()

	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScore(domain.TF1h, 1.0),
	}

	_, err := agg.Aggregate(perTF, domain.Timeframe("15m"), nil)
	assert.ErrorContains(t, err, "no weight row")
}

func TestAggregateGradeFromTargetMomentumGroup(t *testing.T) {
	agg := newTestAggregator()

	perTF := map[domain.Timeframe]domain.TimeframeScore{
		domain.TF1h: tfScoreWithMomentum(domain.TF1h, 1.0, 1.4),
		domain.TF4h: tfScore(domain.TF4h, 0.8),
	}
	insight := &domain.MomentumInsight{
		Bias:       domain.BiasLong,
		Regime:     domain.RegimeExhaustion,
		Strength:   0.8,
		Confidence: 0.9,
	}

	out, err := agg.Aggregate(perTF, domain.TF1h, insight)
	require.NoError(t, err)

	assert.Equal(t, domain.GradeWeakBullish, out.MomentumGrade)
	assert.Equal(t, "mild bullish momentum (exhausted)", out.MomentumComment)
}

func TestSignWithDeadBand(t *testing.T) {
	agg := newTestAggregator()

	cases := []struct {
		net  float64
		want int
	}{
		{0.0, 0},
		{0.2, 0},
		{-0.2, 0},
		{0.21, 1},
		{-0.21, -1},
		{1.5, 1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, agg.signWithDeadBand(tc.net), "net=%v", tc.net)
	}
}

func TestGradeMomentum(t *testing.T) {
	exhausted := func(conf float64) *domain.MomentumInsight {
		return &domain.MomentumInsight{Regime: domain.RegimeExhaustion, Confidence: conf}
	}

	cases := []struct {
		name        string
		raw         float64
		insight     *domain.MomentumInsight
		wantGrade   domain.MomentumGrade
		wantComment string
	}{
		{"strong bullish", 1.2, nil, domain.GradeStrongBullish, "strong bullish momentum"},
		{"strong boundary", 1.0, nil, domain.GradeStrongBullish, "strong bullish momentum"},
		{"weak bullish", 0.5, nil, domain.GradeWeakBullish, "mild bullish momentum"},
		{"weak boundary", 0.3, nil, domain.GradeWeakBullish, "mild bullish momentum"},
		{"neutral", 0.1, nil, domain.GradeNeutral, "flat momentum"},
		{"near-band bearish", -0.29, nil, domain.GradeNeutral, "flat momentum"},
		{"weak bearish", -0.5, nil, domain.GradeWeakBearish, "mild bearish momentum"},
		{"strong bearish", -1.5, nil, domain.GradeStrongBearish, "strong bearish momentum"},
		{
			"exhaustion demotes strong", 1.2, exhausted(0.9),
			domain.GradeWeakBullish, "mild bullish momentum (exhausted)",
		},
		{
			"exhaustion demotes weak to neutral", 0.5, exhausted(0.9),
			domain.GradeNeutral, "flat momentum (exhausted)",
		},
		{
			"low confidence insight ignored", 1.2, exhausted(0.4),
			domain.GradeStrongBullish, "strong bullish momentum",
		},
		{
			"reversal risk demotes bearish", -1.5,
			&domain.MomentumInsight{Regime: domain.RegimeReversalRisk, Confidence: 0.8},
			domain.GradeWeakBearish, "mild bearish momentum (reversal risk)",
		},
		{
			"continuation annotates only", 0.5,
			&domain.MomentumInsight{Regime: domain.RegimeContinuation, Confidence: 0.9},
			domain.GradeWeakBullish, "mild bullish momentum (confirmed)",
		},
		{
			"neutral regime leaves grade alone", 0.1,
			&domain.MomentumInsight{Regime: domain.RegimeNeutral, Confidence: 0.9},
			domain.GradeNeutral, "flat momentum",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			grade, comment := gradeMomentum(tc.raw, tc.insight)
			assert.Equal(t, tc.wantGrade, grade)
			assert.Equal(t, tc.wantComment, comment)
		})
	}
}
