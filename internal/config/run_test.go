package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/robot"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestEmptyConfigDefaults(t *testing.T) {
	cfg := &RunConfig{}

	assert.Equal(t, 20, cfg.GetRows())
	assert.Equal(t, 15, cfg.GetCols())
	assert.Equal(t, arena.Pt(1, 1), cfg.GetStart())
	assert.Equal(t, arena.Up, cfg.GetStartHeading())
	assert.Equal(t, 4, cfg.GetStepsPerSecond())
	assert.Equal(t, time.Second, cfg.GetMoveDuration())
	assert.Equal(t, 2000, cfg.GetMaxTicks())
	assert.Equal(t, 100.0, cfg.GetCoverageLimit())
	assert.Equal(t, 200, cfg.GetStallLimit())
	assert.Equal(t, robot.RangeBand{Min: 1, Max: 2}, cfg.GetShortRange())
	assert.Equal(t, robot.RangeBand{Min: 3, Max: 5}, cfg.GetLongRange())
	assert.False(t, cfg.GetRetractPhantoms())

	l := cfg.GetLink()
	require.NotNil(t, l)
	assert.False(t, l.IsHardware())
	assert.Nil(t, l.Opener())
	assert.Equal(t, 3*time.Second, l.GetRequestTimeout())
	assert.Equal(t, uint(5), l.GetRetryPolicy().MaxAttempts)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsFileMatchesAccessors(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	empty := &RunConfig{}

	assert.Equal(t, empty.GetRows(), cfg.GetRows())
	assert.Equal(t, empty.GetCols(), cfg.GetCols())
	assert.Equal(t, empty.GetStart(), cfg.GetStart())
	assert.Equal(t, empty.GetStartHeading(), cfg.GetStartHeading())
	assert.Equal(t, empty.GetStepsPerSecond(), cfg.GetStepsPerSecond())
	assert.Equal(t, empty.GetMoveDuration(), cfg.GetMoveDuration())
	assert.Equal(t, empty.GetMaxTicks(), cfg.GetMaxTicks())
	assert.Equal(t, empty.GetCoverageLimit(), cfg.GetCoverageLimit())
	assert.Equal(t, empty.GetStallLimit(), cfg.GetStallLimit())
	assert.Equal(t, empty.GetShortRange(), cfg.GetShortRange())
	assert.Equal(t, empty.GetLongRange(), cfg.GetLongRange())
	assert.Equal(t, empty.GetLink().GetRetryPolicy(), cfg.GetLink().GetRetryPolicy())
	assert.Equal(t, empty.GetLink().GetRequestTimeout(), cfg.GetLink().GetRequestTimeout())
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "run.json", `{"rows": 10, "start_heading": "left", "link": {"address": "127.0.0.1:9000"}}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.GetRows())
	assert.Equal(t, 15, cfg.GetCols())
	assert.Equal(t, arena.Left, cfg.GetStartHeading())
	assert.True(t, cfg.GetLink().IsHardware())
	assert.NotNil(t, cfg.GetLink().Opener())
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "run.yaml", `{}`},
		{"bad json", "run.json", `{"rows":`},
		{"too few rows", "run.json", `{"rows": 2}`},
		{"start off grid", "run.json", `{"rows": 5, "start_row": 4}`},
		{"start on border", "run.json", `{"start_col": 0}`},
		{"bad heading", "run.json", `{"start_heading": "north"}`},
		{"bad duration", "run.json", `{"move_duration": "fast"}`},
		{"negative duration", "run.json", `{"move_duration": "-1s"}`},
		{"zero ticks", "run.json", `{"max_ticks": 0}`},
		{"coverage above 100", "run.json", `{"coverage_limit": 120}`},
		{"inverted range", "run.json", `{"long_range": {"min": 5, "max": 3}}`},
		{"zero min range", "run.json", `{"short_range": {"min": 0, "max": 2}}`},
		{"two transports", "run.json", `{"link": {"address": "x:1", "serial_path": "/dev/ttyACM0"}}`},
		{"bad parity", "run.json", `{"link": {"port": {"parity": "Q"}}}`},
		{"bad retry interval", "run.json", `{"link": {"retry_max": "soon"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoadTooLarge(t *testing.T) {
	body := make([]byte, maxFileSize+1)
	for i := range body {
		body[i] = ' '
	}
	_, err := Load(writeConfig(t, "big.json", string(body)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestRetryPolicyOverrides(t *testing.T) {
	l := &LinkConfig{
		RetryAttempts: func() *uint { v := uint(2); return &v }(),
		RetryInitial:  ptrString("10ms"),
		RetryMax:      ptrString("50ms"),
	}
	p := l.GetRetryPolicy()
	assert.Equal(t, uint(2), p.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 50*time.Millisecond, p.MaxInterval)
}

func TestPointerHelpers(t *testing.T) {
	cfg := &RunConfig{
		Rows:          ptrInt(8),
		Cols:          ptrInt(9),
		CoverageLimit: ptrFloat64(80),
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.GetRows())
	assert.Equal(t, 9, cfg.GetCols())
	assert.Equal(t, 80.0, cfg.GetCoverageLimit())
}
