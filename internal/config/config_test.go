package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/marketdoctor/internal/domain"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DOCTOR_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, []domain.Timeframe{domain.TF1h, domain.TF4h, domain.TF1d, domain.TF1w}, cfg.Timeframes)
	assert.Equal(t, []domain.Timeframe{domain.TF1h, domain.TF4h}, cfg.TargetTimeframes)
	assert.Equal(t, 300, cfg.BarWindow)
	assert.Equal(t, domain.GlobalNeutral, cfg.GlobalRegime)
	assert.Equal(t, []int{24, 72, 168}, cfg.Thresholds.OutcomeHorizonHours)
	assert.False(t, cfg.S3.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DOCTOR_DATA_DIR", t.TempDir())
	t.Setenv("DOCTOR_SYMBOLS", "solusdt, adausdt")
	t.Setenv("DOCTOR_TARGET_TIMEFRAMES", "4h")
	t.Setenv("DOCTOR_HORIZONS", "6,12")
	t.Setenv("DOCTOR_GLOBAL_REGIME", "risk_off")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"SOLUSDT", "ADAUSDT"}, cfg.Symbols)
	assert.Equal(t, []domain.Timeframe{domain.TF4h}, cfg.TargetTimeframes)
	assert.Equal(t, []int{6, 12}, cfg.Thresholds.OutcomeHorizonHours)
	assert.Equal(t, domain.GlobalRiskOff, cfg.GlobalRegime)
}

func TestLoadRejectsUnknownTimeframe(t *testing.T) {
	t.Setenv("DOCTOR_DATA_DIR", t.TempDir())
	t.Setenv("DOCTOR_TIMEFRAMES", "1h,15m")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "15m")
}

func TestLoadRejectsTargetOutsideTimeframes(t *testing.T) {
	t.Setenv("DOCTOR_DATA_DIR", t.TempDir())
	t.Setenv("DOCTOR_TIMEFRAMES", "1h,4h")
	t.Setenv("DOCTOR_TARGET_TIMEFRAMES", "1d")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadHorizons(t *testing.T) {
	t.Setenv("DOCTOR_DATA_DIR", t.TempDir())

	t.Setenv("DOCTOR_HORIZONS", "12h")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOCTOR_HORIZONS")

	// Hours must be strictly ascending.
	t.Setenv("DOCTOR_HORIZONS", "72,24")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ascending")
}

func TestValidateBackupNeedsCredentials(t *testing.T) {
	t.Setenv("DOCTOR_DATA_DIR", t.TempDir())
	t.Setenv("DOCTOR_BACKUP_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3")
}

func TestDefaultThresholdsValidate(t *testing.T) {
	th := DefaultThresholds()
	require.NoError(t, th.Validate())
}

func TestThresholdsRejectBadWeightSum(t *testing.T) {
	th := DefaultThresholds()
	th.RiskWeights[WeightVolatility] = 0.50

	err := th.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk weights")
}

func TestThresholdsRejectBadMatrixRow(t *testing.T) {
	th := DefaultThresholds()
	th.TFMatrix[domain.TF1h][domain.TF1w] = 0.45

	err := th.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matrix")
}

func TestThresholdsRejectMissingPhaseValue(t *testing.T) {
	th := DefaultThresholds()
	delete(th.RiskPhaseValues, domain.PhaseShakeout)

	err := th.Validate()
	require.Error(t, err)
}

func TestDatabasePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCTOR_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Contains(t, cfg.MarketDBPath(), "market.db")
	assert.Contains(t, cfg.DiagnosticsDBPath(), "diagnostics.db")
	assert.Contains(t, cfg.ExportDir(), "exports")
}
