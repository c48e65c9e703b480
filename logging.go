package interleave

import (
	"os"

	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	"github.com/rs/zerolog"
)

// LogLevel mirrors logiface's level vocabulary with the subset the runtime
// actually emits at.
type LogLevel int

const (
	LogLevelTrace LogLevel = iota
	LogLevelDebug
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// Tag values used as the "tag" field on every structured log line the
// runtime emits, so a log sink can filter on them the way the teacher's
// logiface backends filter on level.
const (
	tagTest   = "coyote::test"
	tagError  = "coyote::error"
	tagReport = "coyote::report"
)

// runtimeLogger wraps a logiface logger bound to a zerolog backend (via
// izerolog, the same adapter module the teacher's event loop logging
// façade is built against) and tags every line with the component that
// produced it.
type runtimeLogger struct {
	logger *logiface.Logger[logiface.Event]
}

func newRuntimeLogger(cfg *Config) *runtimeLogger {
	zl := zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerologLevel(cfg.LogLevel))
	logger := izerolog.L.New(
		izerolog.L.WithZerolog(zl),
		izerolog.L.WithLevel(logifaceLevel(cfg.LogLevel)),
	).Logger()
	return &runtimeLogger{logger: logger}
}

func zerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelTrace:
		return zerolog.TraceLevel
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func logifaceLevel(l LogLevel) logiface.Level {
	switch l {
	case LogLevelTrace:
		return izerolog.L.LevelTrace()
	case LogLevelDebug:
		return izerolog.L.LevelDebug()
	case LogLevelWarn:
		return izerolog.L.LevelWarning()
	case LogLevelError:
		return izerolog.L.LevelErr()
	default:
		return izerolog.L.LevelInfo()
	}
}

// iteration logs a single completed iteration's outcome, tagged so a
// coverage report tool can grep for it independent of the human-readable
// message.
func (rl *runtimeLogger) iteration(index int, steps int, outcome string) {
	rl.logger.Info().
		Str("tag", tagTest).
		Int("iteration", index).
		Int("steps", steps).
		Str("outcome", outcome).
		Log("iteration finished")
}

// violation logs a failing iteration's error at Error level.
func (rl *runtimeLogger) violation(index int, err error) {
	rl.logger.Err().
		Str("tag", tagError).
		Int("iteration", index).
		Err(err).
		Log("iteration found a violation")
}

// report logs the final coverage/summary report at Info level.
func (rl *runtimeLogger) report(iterations, failures int) {
	rl.logger.Info().
		Str("tag", tagReport).
		Int("iterations", iterations).
		Int("failures", failures).
		Log("testing run complete")
}
