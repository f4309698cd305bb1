// Package config loads the JSON run configuration. Every field is
// optional; the Get* accessors fall back to the defaults recorded in
// config/gridbot.defaults.json.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/gridbot/internal/arena"
	"github.com/banshee-data/gridbot/internal/link"
	"github.com/banshee-data/gridbot/internal/robot"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/gridbot.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// RunConfig describes one exploration run.
type RunConfig struct {
	// Arena
	Rows         *int    `json:"rows,omitempty"`
	Cols         *int    `json:"cols,omitempty"`
	StartRow     *int    `json:"start_row,omitempty"`
	StartCol     *int    `json:"start_col,omitempty"`
	StartHeading *string `json:"start_heading,omitempty"`

	// Pacing
	StepsPerSecond *int    `json:"steps_per_second,omitempty"`
	MoveDuration   *string `json:"move_duration,omitempty"` // duration string like "1s"

	// Stop conditions
	MaxTicks      *int     `json:"max_ticks,omitempty"`
	CoverageLimit *float64 `json:"coverage_limit,omitempty"` // percent
	StallLimit    *int     `json:"stall_limit,omitempty"`

	// Sensors
	ShortRange      *robot.RangeBand `json:"short_range,omitempty"`
	LongRange       *robot.RangeBand `json:"long_range,omitempty"`
	RetractPhantoms *bool            `json:"retract_phantoms,omitempty"`

	Link *LinkConfig `json:"link,omitempty"`
}

// LinkConfig selects and tunes the controller transport. Address and
// SerialPath are mutually exclusive; neither means simulation.
type LinkConfig struct {
	Address        string           `json:"address,omitempty"`
	SerialPath     string           `json:"serial_path,omitempty"`
	Port           link.PortOptions `json:"port,omitempty"`
	RetryAttempts  *uint            `json:"retry_attempts,omitempty"`
	RetryInitial   *string          `json:"retry_initial,omitempty"`
	RetryMax       *string          `json:"retry_max,omitempty"`
	RequestTimeout *string          `json:"request_timeout,omitempty"`
	DialTimeout    *string          `json:"dial_timeout,omitempty"`
}

func ptrInt(v int) *int             { return &v }
func ptrString(v string) *string    { return &v }
func ptrFloat64(v float64) *float64 { return &v }

// Load reads a RunConfig from a JSON file. Fields omitted from the file
// keep their defaults, so partial configs are safe.
func Load(path string) (*RunConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &RunConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory
// or one of its parents. It panics on failure and is meant for tests.
func MustLoadDefaultConfig() *RunConfig {
	for _, prefix := range []string{"", "../", "../../", "../../../"} {
		if cfg, err := Load(prefix + DefaultConfigPath); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every field that is set.
func (c *RunConfig) Validate() error {
	if c.Rows != nil && *c.Rows < arena.MinSize {
		return fmt.Errorf("rows must be at least %d, got %d", arena.MinSize, *c.Rows)
	}
	if c.Cols != nil && *c.Cols < arena.MinSize {
		return fmt.Errorf("cols must be at least %d, got %d", arena.MinSize, *c.Cols)
	}
	rows, cols := c.GetRows(), c.GetCols()
	start := c.GetStart()
	if start.Row < 1 || start.Col < 1 || start.Row > rows-2 || start.Col > cols-2 {
		return fmt.Errorf("start %v must leave the body footprint inside the %dx%d grid", start, rows, cols)
	}
	if c.StartHeading != nil {
		if _, err := arena.ParseDirection(*c.StartHeading); err != nil {
			return fmt.Errorf("start_heading: %w", err)
		}
	}
	if c.StepsPerSecond != nil && *c.StepsPerSecond < 0 {
		return fmt.Errorf("steps_per_second must be non-negative, got %d", *c.StepsPerSecond)
	}
	if err := checkDuration("move_duration", c.MoveDuration); err != nil {
		return err
	}
	if c.MaxTicks != nil && *c.MaxTicks <= 0 {
		return fmt.Errorf("max_ticks must be positive, got %d", *c.MaxTicks)
	}
	if c.CoverageLimit != nil && (*c.CoverageLimit <= 0 || *c.CoverageLimit > 100) {
		return fmt.Errorf("coverage_limit must be in (0, 100], got %g", *c.CoverageLimit)
	}
	if c.StallLimit != nil && *c.StallLimit <= 0 {
		return fmt.Errorf("stall_limit must be positive, got %d", *c.StallLimit)
	}
	for name, band := range map[string]*robot.RangeBand{"short_range": c.ShortRange, "long_range": c.LongRange} {
		if band != nil && (band.Min < 1 || band.Max < band.Min) {
			return fmt.Errorf("%s must satisfy 1 <= min <= max, got [%d,%d]", name, band.Min, band.Max)
		}
	}
	if l := c.Link; l != nil {
		if l.Address != "" && l.SerialPath != "" {
			return fmt.Errorf("link: address and serial_path are mutually exclusive")
		}
		if _, err := l.Port.Normalize(); err != nil {
			return fmt.Errorf("link.port: %w", err)
		}
		for name, d := range map[string]*string{
			"link.retry_initial":   l.RetryInitial,
			"link.retry_max":       l.RetryMax,
			"link.request_timeout": l.RequestTimeout,
			"link.dial_timeout":    l.DialTimeout,
		} {
			if err := checkDuration(name, d); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkDuration(name string, s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return fmt.Errorf("invalid %s '%s': %w", name, *s, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must be non-negative, got %s", name, *s)
	}
	return nil
}

func durationOr(s *string, def time.Duration) time.Duration {
	if s == nil || *s == "" {
		return def
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return def
	}
	return d
}

func (c *RunConfig) GetRows() int {
	if c.Rows == nil {
		return 20
	}
	return *c.Rows
}

func (c *RunConfig) GetCols() int {
	if c.Cols == nil {
		return 15
	}
	return *c.Cols
}

// GetStart returns the body centre at the start of the run.
func (c *RunConfig) GetStart() arena.Point {
	p := arena.Pt(1, 1)
	if c.StartRow != nil {
		p.Row = *c.StartRow
	}
	if c.StartCol != nil {
		p.Col = *c.StartCol
	}
	return p
}

func (c *RunConfig) GetStartHeading() arena.Direction {
	if c.StartHeading == nil {
		return arena.Up
	}
	d, err := arena.ParseDirection(*c.StartHeading)
	if err != nil {
		return arena.Up
	}
	return d
}

func (c *RunConfig) GetStepsPerSecond() int {
	if c.StepsPerSecond == nil {
		return 4
	}
	return *c.StepsPerSecond
}

func (c *RunConfig) GetMoveDuration() time.Duration {
	return durationOr(c.MoveDuration, time.Second)
}

func (c *RunConfig) GetMaxTicks() int {
	if c.MaxTicks == nil {
		return 2000
	}
	return *c.MaxTicks
}

func (c *RunConfig) GetCoverageLimit() float64 {
	if c.CoverageLimit == nil {
		return 100
	}
	return *c.CoverageLimit
}

// GetStallLimit is the number of consecutive ticks without progress
// after which a run gives up.
func (c *RunConfig) GetStallLimit() int {
	if c.StallLimit == nil {
		return 200
	}
	return *c.StallLimit
}

func (c *RunConfig) GetShortRange() robot.RangeBand {
	if c.ShortRange == nil {
		return robot.RangeBand{Min: 1, Max: 2}
	}
	return *c.ShortRange
}

func (c *RunConfig) GetLongRange() robot.RangeBand {
	if c.LongRange == nil {
		return robot.RangeBand{Min: 3, Max: 5}
	}
	return *c.LongRange
}

func (c *RunConfig) GetRetractPhantoms() bool {
	return c.RetractPhantoms != nil && *c.RetractPhantoms
}

// GetLink returns the link settings, never nil.
func (c *RunConfig) GetLink() *LinkConfig {
	if c.Link == nil {
		return &LinkConfig{}
	}
	return c.Link
}

// IsHardware reports whether a controller transport is configured.
func (l *LinkConfig) IsHardware() bool {
	return l.Address != "" || l.SerialPath != ""
}

// GetRetryPolicy resolves the reconnect policy.
func (l *LinkConfig) GetRetryPolicy() link.RetryPolicy {
	p := link.DefaultRetryPolicy()
	if l.RetryAttempts != nil {
		p.MaxAttempts = *l.RetryAttempts
	}
	p.InitialInterval = durationOr(l.RetryInitial, p.InitialInterval)
	p.MaxInterval = durationOr(l.RetryMax, p.MaxInterval)
	return p
}

func (l *LinkConfig) GetRequestTimeout() time.Duration {
	return durationOr(l.RequestTimeout, 3*time.Second)
}

func (l *LinkConfig) GetDialTimeout() time.Duration {
	return durationOr(l.DialTimeout, 5*time.Second)
}

// Opener returns the transport opener for the configured link, or nil
// when running in simulation.
func (l *LinkConfig) Opener() link.Opener {
	switch {
	case l.SerialPath != "":
		return link.OpenSerial(l.SerialPath, l.Port)
	case l.Address != "":
		return link.DialTCP(l.Address, l.GetDialTimeout())
	default:
		return nil
	}
}
