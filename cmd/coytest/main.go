// Command coytest drives the interleave runtime's two-phase commit demo
// scenario from the command line: pick a strategy, a seed, and an
// iteration budget, and report whether any schedule reaches a violation.
//
// Exit codes: 0 no violation found, 1 a violation was found, 2 the
// command line or config file was invalid, 3 an internal (non-testing)
// error occurred.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/concurrentkit/interleave"
	"github.com/concurrentkit/interleave/config"
)

const (
	exitOK = iota
	exitViolationFound
	exitUsageError
	exitInternalError
)

func main() {
	os.Exit(run(context.Background(), os.Args))
}

func run(ctx context.Context, args []string) int {
	var (
		strategy         string
		seed             uint64
		iterations       int64
		maxSteps         int64
		pctDepth         int64
		livenessThresh   int64
		noCycleDetect    bool
		noFailFast       bool
		timeoutSeconds   int64
		tracePath        string
		replayPath       string
		logLevel         string
		configPath       string
		replicaCount     int64
		oneReplicaNoVote bool
	)

	cmd := &cli.Command{
		Name:  "coytest",
		Usage: "explore interleavings of the two-phase commit demo scenario",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "strategy", Value: "random", Destination: &strategy, Usage: "random, dfs, or pct"},
			&cli.UintFlag{Name: "seed", Value: 1, Destination: &seed},
			&cli.IntFlag{Name: "iterations", Value: 1000, Destination: &iterations},
			&cli.IntFlag{Name: "max-steps", Value: 100000, Destination: &maxSteps},
			&cli.IntFlag{Name: "pct-depth", Value: 3, Destination: &pctDepth},
			&cli.IntFlag{Name: "liveness-threshold", Value: 10000, Destination: &livenessThresh},
			&cli.BoolFlag{Name: "no-cycle-detection", Destination: &noCycleDetect},
			&cli.BoolFlag{Name: "no-fail-fast", Destination: &noFailFast},
			&cli.IntFlag{Name: "timeout-seconds", Destination: &timeoutSeconds},
			&cli.StringFlag{Name: "trace", Destination: &tracePath, Usage: "write a failing iteration's trace here"},
			&cli.StringFlag{Name: "replay", Destination: &replayPath, Usage: "replay a previously recorded trace instead of exploring"},
			&cli.StringFlag{Name: "log-level", Value: "info", Destination: &logLevel},
			&cli.StringFlag{Name: "config", Destination: &configPath, Usage: "YAML or TOML file of defaults, overridden by any flag above"},
			&cli.IntFlag{Name: "replicas", Value: 3, Destination: &replicaCount},
			&cli.BoolFlag{Name: "one-replica-aborts", Destination: &oneReplicaNoVote, Usage: "make replica 0 vote no, to exercise the abort path"},
		},
	}

	if err := cmd.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageError
	}

	var opts []interleave.RuntimeOption
	if configPath != "" {
		f, err := config.LoadFile(configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsageError
		}
		opts = append(opts, f.Options()...)
	}

	opts = append(opts,
		interleave.WithStrategy(strategy),
		interleave.WithSeed(seed),
		interleave.WithMaxIterations(int(iterations)),
		interleave.WithMaxStepsPerIteration(int(maxSteps)),
		interleave.WithPCTBugDepth(int(pctDepth)),
		interleave.WithLivenessTemperatureThreshold(int(livenessThresh)),
		interleave.WithCycleDetection(!noCycleDetect),
		interleave.WithFailFast(!noFailFast),
	)
	if timeoutSeconds > 0 {
		opts = append(opts, interleave.WithTimeout(time.Duration(timeoutSeconds)*time.Second))
	}
	if tracePath != "" {
		opts = append(opts, interleave.WithTracePath(tracePath))
	}
	if lvl, ok := logLevelFromString(logLevel); ok {
		opts = append(opts, interleave.WithLogLevel(lvl))
	}

	rt, err := interleave.NewRuntime(opts...)
	if err != nil {
		var usage *interleave.UsageError
		if errors.As(err, &usage) {
			fmt.Fprintln(os.Stderr, err)
			return exitUsageError
		}
		fmt.Fprintln(os.Stderr, err)
		return exitInternalError
	}

	scenario := buildTwoPhaseCommit(int(replicaCount), func(i int) bool {
		return oneReplicaNoVote && i == 0
	})

	runCtx := ctx
	if timeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSeconds)*time.Second)
		defer cancel()
	}

	if replayPath != "" {
		if err := rt.Replay(runCtx, replayPath, scenario); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitViolationFound
		}
		return exitOK
	}

	result, err := rt.Test(runCtx, scenario)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitInternalError
	}

	fmt.Printf("ran %d iteration(s), %d failure(s)\n", result.Iterations, len(result.Failures))
	if len(result.Failures) > 0 {
		for _, f := range result.Failures {
			fmt.Printf("  iteration %d (seed %d, %d steps): %v\n", f.Iteration, f.Seed, f.Steps, f.Err)
		}
		return exitViolationFound
	}
	return exitOK
}

func logLevelFromString(s string) (interleave.LogLevel, bool) {
	switch s {
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
