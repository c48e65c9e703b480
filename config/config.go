// Package config loads a testing run's tunables from a YAML or TOML file
// into a set of [interleave.RuntimeOption] values, so a CI job can pin a
// configuration without rebuilding a command line.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/concurrentkit/interleave"
)

// File is the on-disk shape of a testing run's configuration. Every field
// is optional; a zero value means "use the runtime default".
type File struct {
	MaxIterations                int    `yaml:"max_iterations" toml:"max_iterations"`
	MaxStepsPerIteration         int    `yaml:"max_steps_per_iteration" toml:"max_steps_per_iteration"`
	Strategy                     string `yaml:"strategy" toml:"strategy"`
	Seed                         uint64 `yaml:"seed" toml:"seed"`
	PCTBugDepth                  int    `yaml:"pct_bug_depth" toml:"pct_bug_depth"`
	LivenessTemperatureThreshold int    `yaml:"liveness_temperature_threshold" toml:"liveness_temperature_threshold"`
	CycleDetection               *bool  `yaml:"cycle_detection" toml:"cycle_detection"`
	FailFast                     *bool  `yaml:"fail_fast" toml:"fail_fast"`
	TimeoutSeconds               int    `yaml:"timeout_seconds" toml:"timeout_seconds"`
	TracePath                    string `yaml:"trace_path" toml:"trace_path"`
	ReplayPath                   string `yaml:"replay_path" toml:"replay_path"`
	LogLevel                     string `yaml:"log_level" toml:"log_level"`
}

// LoadFile reads and parses path, selecting YAML or TOML by its
// extension (".yaml"/".yml" or ".toml"); any other extension is an error.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f := &File{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, f); err != nil {
			return nil, err
		}
	default:
		return nil, &interleave.UsageError{Message: "unsupported config file extension " + ext}
	}
	return f, nil
}

// Options converts f into a slice of [interleave.RuntimeOption], skipping
// every field left at its zero value.
func (f *File) Options() []interleave.RuntimeOption {
	var opts []interleave.RuntimeOption
	if f.MaxIterations > 0 {
		opts = append(opts, interleave.WithMaxIterations(f.MaxIterations))
	}
	if f.MaxStepsPerIteration > 0 {
		opts = append(opts, interleave.WithMaxStepsPerIteration(f.MaxStepsPerIteration))
	}
	if f.Strategy != "" {
		opts = append(opts, interleave.WithStrategy(f.Strategy))
	}
	if f.Seed != 0 {
		opts = append(opts, interleave.WithSeed(f.Seed))
	}
	if f.PCTBugDepth > 0 {
		opts = append(opts, interleave.WithPCTBugDepth(f.PCTBugDepth))
	}
	if f.LivenessTemperatureThreshold > 0 {
		opts = append(opts, interleave.WithLivenessTemperatureThreshold(f.LivenessTemperatureThreshold))
	}
	if f.CycleDetection != nil {
		opts = append(opts, interleave.WithCycleDetection(*f.CycleDetection))
	}
	if f.FailFast != nil {
		opts = append(opts, interleave.WithFailFast(*f.FailFast))
	}
	if f.TimeoutSeconds > 0 {
		opts = append(opts, interleave.WithTimeout(time.Duration(f.TimeoutSeconds)*time.Second))
	}
	if f.TracePath != "" {
		opts = append(opts, interleave.WithTracePath(f.TracePath))
	}
	if f.ReplayPath != "" {
		opts = append(opts, interleave.WithReplayPath(f.ReplayPath))
	}
	if f.LogLevel != "" {
		if lvl, ok := parseLogLevel(f.LogLevel); ok {
			opts = append(opts, interleave.WithLogLevel(lvl))
		}
	}
	return opts
}

func parseLogLevel(s string) (interleave.LogLevel, bool) {
	switch strings.ToLower(s) {
	case "trace":
		return interleave.LogLevelTrace, true
	case "debug":
		return interleave.LogLevelDebug, true
	case "info":
		return interleave.LogLevelInfo, true
	case "warn", "warning":
		return interleave.LogLevelWarn, true
	case "error":
		return interleave.LogLevelError, true
	default:
		return 0, false
	}
}
