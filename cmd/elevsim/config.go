package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/elevsim/can"
	"github.com/sarchlab/elevsim/sim"
)

// Duration is a virtual time written like "10ms" or "1.5 s" in a run file.
type Duration sim.VTime

// UnmarshalYAML parses the duration with sim.ParseVTime.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	t, err := sim.ParseVTime(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*d = Duration(t)

	return nil
}

// VTime returns the duration as a virtual time.
func (d Duration) VTime() sim.VTime {
	return sim.VTime(d)
}

// Rate is a realtime rate. "inf" runs as fast as possible.
type Rate float64

// UnmarshalYAML parses the rate with parseRate.
func (r *Rate) UnmarshalYAML(value *yaml.Node) error {
	v, err := parseRate(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}

	*r = Rate(v)

	return nil
}

func parseRate(s string) (float64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "inf" || s == "max" {
		return math.Inf(1), nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || v < 0 {
		return 0, fmt.Errorf("%w: realtime rate %q", sim.ErrInvalidArgument, s)
	}

	return v, nil
}

// Traffic is a message sent periodically on the CAN bus.
type Traffic struct {
	Name   string   `yaml:"name"`
	ID     uint32   `yaml:"id"`
	Period Duration `yaml:"period"`
	Size   int      `yaml:"size"`
	Value  uint64   `yaml:"value"`
}

// Window is an interval of virtual time.
type Window struct {
	Start    Duration `yaml:"start"`
	Duration Duration `yaml:"duration"`
}

// Block blocks a message id for a window.
type Block struct {
	Window     `yaml:",inline"`
	ID         uint32 `yaml:"id"`
	AtDelivery bool   `yaml:"at_delivery"`
}

// Faults configures the fault models installed on the CAN bus.
type Faults struct {
	InverseBER     int64    `yaml:"inverse_ber"`
	DropPercentage float64  `yaml:"drop_percentage"`
	Blackouts      []Window `yaml:"blackouts"`
	Blocks         []Block  `yaml:"blocks"`
}

// MonitorConfig configures the monitoring server.
type MonitorConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// Config is the content of a run file.
type Config struct {
	Seed         int64         `yaml:"seed"`
	BitRate      int           `yaml:"bit_rate"`
	Until        Duration      `yaml:"until"`
	RealtimeRate Rate          `yaml:"realtime_rate"`
	Trace        string        `yaml:"trace"`
	LogLevel     string        `yaml:"log_level"`
	Monitor      MonitorConfig `yaml:"monitor"`
	Traffic      []Traffic     `yaml:"traffic"`
	Faults       Faults        `yaml:"faults"`
}

// DefaultConfig returns the configuration used when nothing else is given:
// one heartbeat every 10ms on a 125 kbit/s bus, for 10 seconds.
func DefaultConfig() Config {
	return Config{
		BitRate:      can.DefaultBitRate,
		Until:        Duration(10 * sim.Second),
		RealtimeRate: Rate(math.Inf(1)),
		LogLevel:     "info",
		Traffic: []Traffic{{
			Name:   "heartbeat",
			ID:     0x1F000000,
			Period: Duration(10 * sim.Millisecond),
			Size:   1,
			Value:  1,
		}},
	}
}

// applyEnv overrides the configuration with the ELEVSIM_* environment
// variables.
func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("ELEVSIM_SEED"); ok {
		seed, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return fmt.Errorf("ELEVSIM_SEED: %w", err)
		}

		c.Seed = seed
	}

	if v, ok := os.LookupEnv("ELEVSIM_LOG_LEVEL"); ok {
		c.LogLevel = v
	}

	if v, ok := os.LookupEnv("ELEVSIM_MONITOR_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ELEVSIM_MONITOR_PORT: %w", err)
		}

		c.Monitor.Port = port
	}

	return nil
}

// LoadConfig reads a run file on top of the defaults. Traffic listed in the
// file replaces the default traffic.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	file := cfg
	file.Traffic = nil

	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	if len(file.Traffic) == 0 {
		file.Traffic = cfg.Traffic
	}

	return file, nil
}

// Validate checks the configuration before anything is built.
func (c *Config) Validate() error {
	var errs []error

	if c.BitRate <= 0 {
		errs = append(errs, fmt.Errorf("bit rate %d is not positive", c.BitRate))
	}

	if c.Until.VTime() <= 0 {
		errs = append(errs, fmt.Errorf("end time %s is not positive",
			c.Until.VTime()))
	}

	for i, t := range c.Traffic {
		if t.Name == "" {
			errs = append(errs, fmt.Errorf("traffic %d has no name", i))
		}

		if err := can.ValidateID(t.ID); err != nil {
			errs = append(errs, fmt.Errorf("traffic %s: %w", t.Name, err))
		}

		if t.Period.VTime() <= 0 {
			errs = append(errs, fmt.Errorf("traffic %s: period %s",
				t.Name, t.Period.VTime()))
		}

		if t.Size < 0 || t.Size > can.MaxDataSize {
			errs = append(errs, fmt.Errorf("traffic %s: size %d",
				t.Name, t.Size))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", sim.ErrInvalidArgument, err)
	}

	return nil
}
