// Package config loads scheduler tuning parameters from a YAML file, the
// same format and library (gopkg.in/yaml.v3) the teacher's
// x/marshaller/yaml and cmd/spectrometer config loader use, generalized
// here to a single flat struct instead of a generated protobuf message.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Demo holds the tunable knobs flowsched-demo (or any other scheduler
// frontend) reads from a YAML file instead of hardcoding.
type Demo struct {
	Count             int           `yaml:"count"`
	MaxWorkers        int           `yaml:"max_workers"`
	MemoryThresholdMB int           `yaml:"memory_threshold_mb"`
	WaitTimeout       time.Duration `yaml:"-"`
}

// rawDemo mirrors Demo but carries WaitTimeout as the duration string a
// human writes in YAML ("5s", "200ms"), since yaml.v3 has no built-in
// time.Duration support.
type rawDemo struct {
	Count             int    `yaml:"count"`
	MaxWorkers        int    `yaml:"max_workers"`
	MemoryThresholdMB int    `yaml:"memory_threshold_mb"`
	WaitTimeout       string `yaml:"wait_timeout"`
}

// UnmarshalYAML implements yaml.Unmarshaler so WaitTimeout round-trips
// through time.ParseDuration instead of yaml.v3's scalar decoding.
func (d *Demo) UnmarshalYAML(value *yaml.Node) error {
	raw := rawDemo{Count: d.Count, MaxWorkers: d.MaxWorkers, MemoryThresholdMB: d.MemoryThresholdMB}
	if d.WaitTimeout > 0 {
		raw.WaitTimeout = d.WaitTimeout.String()
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	d.Count = raw.Count
	d.MaxWorkers = raw.MaxWorkers
	d.MemoryThresholdMB = raw.MemoryThresholdMB
	if raw.WaitTimeout != "" {
		wait, err := time.ParseDuration(raw.WaitTimeout)
		if err != nil {
			return fmt.Errorf("config: wait_timeout: %w", err)
		}
		d.WaitTimeout = wait
	}
	return nil
}

// DefaultDemo is the configuration used when no config file is given: 10
// values and 4 workers per pool. MemoryThresholdMB and WaitTimeout stay
// zero, which leaves the scheduler's own defaults in place for them.
func DefaultDemo() Demo {
	return Demo{
		Count:      10,
		MaxWorkers: 4,
	}
}

// Load reads and parses path, layering its fields over DefaultDemo.
func Load(path string) (Demo, error) {
	f, err := os.Open(path)
	if err != nil {
		return Demo{}, fmt.Errorf("config: open: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader parses YAML config from r.
func LoadFromReader(r io.Reader) (Demo, error) {
	cfg := DefaultDemo()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Demo{}, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}
