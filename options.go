package interleave

import "time"

// Config holds every runtime-wide tunable. Build one with [DefaultConfig]
// and a chain of [RuntimeOption] values rather than populating it
// directly, the same way the teacher's event loop is configured through
// LoopOption rather than exported struct literals.
type Config struct {
	MaxIterations           int
	MaxStepsPerIteration    int
	Strategy                string
	Seed                    uint64
	PCTBugDepth             int
	LivenessTemperatureThreshold int
	CycleDetection          bool
	FailFast                bool
	Timeout                 time.Duration
	TracePath               string
	ReplayPath              string
	LogLevel                LogLevel
}

// DefaultConfig returns the runtime's baseline configuration, matching the
// defaults documented for the CLI surface.
func DefaultConfig() *Config {
	return &Config{
		MaxIterations:                1000,
		MaxStepsPerIteration:         100000,
		Strategy:                     "random",
		Seed:                         1,
		PCTBugDepth:                  3,
		LivenessTemperatureThreshold: 10000,
		CycleDetection:               true,
		FailFast:                     true,
		LogLevel:                     LogLevelInfo,
	}
}

// RuntimeOption configures a [Config] as it is built, in the teacher's
// functional-options shape (see eventloop.LoopOption): each option is an
// opaque value produced by a With* constructor, applied in order, and able
// to fail validation without panicking.
type RuntimeOption interface {
	applyRuntime(*Config) error
}

type runtimeOptionFunc func(*Config) error

func (f runtimeOptionFunc) applyRuntime(c *Config) error { return f(c) }

// WithMaxIterations caps the number of iterations a testing run will
// attempt before stopping with no violation found.
func WithMaxIterations(n int) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error {
		if n <= 0 {
			return &UsageError{Message: "max iterations must be positive"}
		}
		c.MaxIterations = n
		return nil
	})
}

// WithMaxStepsPerIteration caps the number of scheduling steps a single
// iteration may take. An iteration that reaches the cap ends there; it is
// reported as a [LivenessViolation] only if a monitor is hot at that point.
func WithMaxStepsPerIteration(n int) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error {
		if n <= 0 {
			return &UsageError{Message: "max steps per iteration must be positive"}
		}
		c.MaxStepsPerIteration = n
		return nil
	})
}

// WithStrategy selects the scheduling strategy by name: "random", "dfs",
// "pct", or "replay". [Runtime.Test] explores with the random strategy when
// "replay" is selected; a recorded trace is replayed only through
// [Runtime.Replay].
func WithStrategy(name string) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error {
		switch name {
		case "random", "dfs", "pct", "replay":
		default:
			return &UsageError{Message: "unknown strategy " + name}
		}
		c.Strategy = name
		return nil
	})
}

// WithSeed fixes the seed used to construct the first iteration's
// strategy; subsequent iterations derive their own seeds from it
// deterministically.
func WithSeed(seed uint64) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error { c.Seed = seed; return nil })
}

// WithPCTBugDepth sets the number of priority-lowering switch points the
// PCT strategy plans per iteration.
func WithPCTBugDepth(n int) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error {
		if n <= 0 {
			return &UsageError{Message: "PCT bug depth must be positive"}
		}
		c.PCTBugDepth = n
		return nil
	})
}

// WithLivenessTemperatureThreshold sets the default number of consecutive
// hot steps a [Monitor] tolerates before raising a [LivenessViolation].
func WithLivenessTemperatureThreshold(n int) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error {
		if n <= 0 {
			return &UsageError{Message: "liveness temperature threshold must be positive"}
		}
		c.LivenessTemperatureThreshold = n
		return nil
	})
}

// WithCycleDetection toggles the non-progressing-cycle check; disabling it
// still leaves the end-of-iteration hot-state check in force.
func WithCycleDetection(enabled bool) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error { c.CycleDetection = enabled; return nil })
}

// WithFailFast controls whether a testing run stops at the first failing
// iteration (true, the default) or continues to MaxIterations, collecting
// every failure.
func WithFailFast(enabled bool) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error { c.FailFast = enabled; return nil })
}

// WithTimeout bounds the wall-clock time of [Runtime.Test]: once it has
// elapsed, no further iteration is started.
func WithTimeout(d time.Duration) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error {
		if d <= 0 {
			return &UsageError{Message: "timeout must be positive"}
		}
		c.Timeout = d
		return nil
	})
}

// WithTracePath sets the file path a failing iteration's trace is written
// to.
func WithTracePath(path string) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error { c.TracePath = path; return nil })
}

// WithReplayPath stores the file path of a previously recorded trace in
// [Config.ReplayPath]. Neither [Runtime.Test] nor [Runtime.Replay] reads
// that field; [Runtime.Replay] takes the trace path as its own argument.
func WithReplayPath(path string) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error { c.ReplayPath = path; return nil })
}

// WithLogLevel sets the minimum level the runtime's logger emits at.
func WithLogLevel(l LogLevel) RuntimeOption {
	return runtimeOptionFunc(func(c *Config) error { c.LogLevel = l; return nil })
}

// resolveConfig applies opts in order over [DefaultConfig], returning the
// first validation error encountered.
func resolveConfig(opts ...RuntimeOption) (*Config, error) {
	c := DefaultConfig()
	for _, o := range opts {
		if o == nil {
			continue
		}
		if err := o.applyRuntime(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
