package interleave

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"os"
)

// Scenario bundles what a testing run needs to rebuild, from scratch,
// identically on every iteration: a fresh set of [Monitor]s (since their
// temperature is mutable per-iteration state) and the entry-point
// [Func] the scheduler spawns as the first operation.
type Scenario struct {
	Monitors func() []*Monitor
	Run      Func
}

// IterationFailure records one failing iteration from a [Result].
type IterationFailure struct {
	Iteration int
	Seed      uint64
	Steps     int
	Err       error
	Trace     *Trace
	// Fingerprint groups failures that are likely the same underlying bug:
	// it hashes the outcome tag together with the context-hash of the
	// trace's last recorded step, so two iterations that fail the same way
	// at an equivalent program state collide.
	Fingerprint uint64
}

// Result summarizes a completed (or stopped) testing run.
type Result struct {
	Iterations int
	Failures   []*IterationFailure
	// StepsExplored sums [Scheduler] steps (operation picks plus
	// nondeterministic choices) across every iteration in the run, a coarse
	// measure of how much of the schedule space was actually exercised.
	StepsExplored int
	// Fingerprints counts how many iterations produced each distinct
	// [IterationFailure.Fingerprint], so a run with FailFast disabled can
	// report how many *unique* bugs it found rather than just a failure
	// count.
	Fingerprints map[uint64]int
}

// failureFingerprint computes the fingerprint for a failing iteration: see
// [IterationFailure.Fingerprint].
func failureFingerprint(outcome string, trace *Trace) uint64 {
	h := fnv.New64a()
	fmt.Fprint(h, outcome)
	if n := len(trace.Steps); n > 0 {
		fmt.Fprintf(h, ":%016x", trace.Steps[n-1].Hash)
	}
	return h.Sum64()
}

// Runtime is the top-level façade over repeated scheduler iterations: it
// owns configuration and the logger, and drives [Scenario] through
// [Config.MaxIterations] attempts, recording and (on failure) persisting
// traces.
type Runtime struct {
	cfg *Config
	log *runtimeLogger

	abortCtrl *CancelController
	abortSig  *CancelSignal
}

// NewRuntime builds a Runtime from opts over [DefaultConfig].
func NewRuntime(opts ...RuntimeOption) (*Runtime, error) {
	cfg, err := resolveConfig(opts...)
	if err != nil {
		return nil, err
	}
	ctrl, sig := NewCancelController()
	return &Runtime{cfg: cfg, log: newRuntimeLogger(cfg), abortCtrl: ctrl, abortSig: sig}, nil
}

// Abort forcibly ends whichever iteration is currently running, as soon as
// its operations next reach a scheduling point. In-flight state is
// discarded; prefer cancelling the context passed to [Runtime.Test] for a
// graceful stop between iterations instead, when either will do.
func (rt *Runtime) Abort() { rt.abortCtrl.Cancel(errors.New("interleave: runtime aborted")) }

// Test explores scenario across up to cfg.MaxIterations iterations. ctx
// cancellation is checked between iterations for a graceful stop; Abort
// ends the in-progress iteration immediately instead. Test returns once
// MaxIterations is reached, ctx is cancelled, Abort is called, a failing
// iteration is found with FailFast enabled, or (for the dfs strategy) the
// search space is exhausted. A positive [Config.Timeout] is applied to ctx.
func (rt *Runtime) Test(ctx context.Context, scenario Scenario) (*Result, error) {
	if rt.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.cfg.Timeout)
		defer cancel()
	}
	result := &Result{Fingerprints: make(map[uint64]int)}

	var dfs *DFSStrategy
	var pct *PCTStrategy
	if rt.cfg.Strategy == "dfs" {
		dfs = NewDFSStrategy()
	}

	lastSteps := rt.cfg.MaxStepsPerIteration

	for i := 0; i < rt.cfg.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			break
		}
		if rt.abortSig.Cancelled() {
			break
		}

		seed := deriveSeed(rt.cfg.Seed, i)

		var strategy Strategy
		switch rt.cfg.Strategy {
		case "dfs":
			strategy = dfs
		case "pct":
			pct = NewPCTStrategy(seed, rt.cfg.PCTBugDepth)
			pct.PlanSwitchPoints(lastSteps)
			strategy = pct
		default:
			strategy = NewRandomStrategy(seed)
		}

		trace := NewTrace(strategy.Name(), seed)
		recorder := NewRecorder(trace)
		observer := &Observer{}

		sched := NewScheduler(strategy, rt.cfg)
		sched.WithRecorder(recorder).WithAbortSignal(rt.abortSig)
		sched.SetObserver(observer)
		for _, m := range scenario.Monitors() {
			sched.AddMonitor(m)
		}

		err := sched.Run(context.WithoutCancel(ctx), scenario.Run)
		lastSteps = sched.step
		result.Iterations++
		result.StepsExplored += sched.step

		outcome := "ok"
		if err != nil {
			outcome = outcomeTag(err)
		}
		recorder.Finish(outcome)
		rt.log.iteration(i, sched.step, outcome)

		if err != nil {
			rt.log.violation(i, err)
			observer.notifyFailure(err)
			fp := failureFingerprint(outcome, trace)
			result.Fingerprints[fp]++
			failure := &IterationFailure{Iteration: i, Seed: seed, Steps: sched.step, Err: err, Trace: trace, Fingerprint: fp}
			result.Failures = append(result.Failures, failure)
			if rt.cfg.TracePath != "" {
				if werr := rt.writeTraceFile(trace); werr != nil {
					return result, werr
				}
			}
			if rt.cfg.FailFast {
				break
			}
		}

		if dfs != nil && !dfs.Backtrack() {
			break
		}
	}

	rt.log.report(result.Iterations, len(result.Failures))
	return result, nil
}

// Replay re-executes scenario under the single recorded schedule at path,
// returning a [ReplayMismatch] if live execution diverges from it.
func (rt *Runtime) Replay(ctx context.Context, path string, scenario Scenario) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	trace, err := ReadTrace(f)
	if err != nil {
		return err
	}

	player := NewPlayer(trace)
	var underlying Strategy
	switch trace.Strategy {
	case "dfs":
		underlying = NewDFSStrategy()
	case "pct":
		underlying = NewPCTStrategy(trace.Seed, rt.cfg.PCTBugDepth)
	default:
		underlying = NewRandomStrategy(trace.Seed)
	}
	strategy := &ReplayStrategy{Underlying: underlying}

	sched := NewScheduler(strategy, rt.cfg)
	sched.WithPlayer(player).WithAbortSignal(rt.abortSig)
	for _, m := range scenario.Monitors() {
		sched.AddMonitor(m)
	}

	err = sched.Run(ctx, scenario.Run)
	rt.log.iteration(0, sched.step, outcomeTag(err))
	return err
}

func (rt *Runtime) writeTraceFile(t *Trace) error {
	f, err := os.Create(rt.cfg.TracePath)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteTrace(f, t)
}

func outcomeTag(err error) string {
	if err == nil {
		return "ok"
	}
	var usage *UsageError
	var unhandled *UnhandledEvent
	var mustHandle *MustHandleViolation
	var assertion *AssertionFailure
	var liveness *LivenessViolation
	var deadlock *Deadlock
	var uncontrolled *UncontrolledConcurrency
	var replay *ReplayMismatch
	var halted *InvokedWhileHalted
	switch {
	case errors.As(err, &usage):
		return "usage_error"
	case errors.As(err, &unhandled):
		return "unhandled_event"
	case errors.As(err, &mustHandle):
		return "must_handle_violation"
	case errors.As(err, &assertion):
		return "assertion_failure"
	case errors.As(err, &liveness):
		return "liveness_violation"
	case errors.As(err, &deadlock):
		return "deadlock"
	case errors.As(err, &uncontrolled):
		return "uncontrolled_concurrency"
	case errors.As(err, &replay):
		return "replay_mismatch"
	case errors.As(err, &halted):
		return "invoked_while_halted"
	case errors.Is(err, ErrAborted):
		return "aborted"
	default:
		return fmt.Sprintf("error: %v", err)
	}
}

// deriveSeed produces the per-iteration seed for iteration i from a single
// run seed, deterministically, so repeating a run with the same base seed
// always explores the same sequence of per-iteration seeds.
func deriveSeed(base uint64, i int) uint64 {
	r := rand.New(rand.NewPCG(base, uint64(i)))
	return r.Uint64()
}
