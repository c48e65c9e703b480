package interleave

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// DecisionKind distinguishes the three nondeterministic choices the
// scheduler makes at a scheduling point.
type DecisionKind string

const (
	// DecisionOp records which enabled operation was picked to run next.
	DecisionOp DecisionKind = "op"
	// DecisionBool records a boolean nondeterministic choice, e.g. from
	// [Context.FlipCoin].
	DecisionBool DecisionKind = "bool"
	// DecisionInt records a bounded integer nondeterministic choice, e.g.
	// from [Context.ChooseInt].
	DecisionInt DecisionKind = "int"
)

// Decision is a single recorded scheduling choice: which operation ran, or
// which nondeterministic value was returned, at one step of an iteration.
// Hash is a fingerprint of the visible program state immediately after the
// decision was applied, used to detect divergence early during replay
// rather than only at the end of the iteration.
type Decision struct {
	Step int
	Kind DecisionKind
	Op   OperationID
	Bool bool
	Int  int
	Hash uint64
}

// String renders a Decision as a single trace-file body line, without the
// trailing newline: "<step> <kind> <value> <hash>".
func (d Decision) String() string {
	var value string
	switch d.Kind {
	case DecisionOp:
		value = strconv.FormatUint(uint64(d.Op), 10)
	case DecisionBool:
		value = strconv.FormatBool(d.Bool)
	case DecisionInt:
		value = strconv.Itoa(d.Int)
	default:
		value = "?"
	}
	return fmt.Sprintf("%d %s %s %016x", d.Step, d.Kind, value, d.Hash)
}

// equalChoice reports whether two decisions picked the same value, ignoring
// Step and Hash. Used by the player to decide whether a live decision
// honors the recorded one; the hash is instead checked separately so a
// mismatch there is attributed to state divergence rather than choice
// divergence.
func (d Decision) equalChoice(o Decision) bool {
	if d.Kind != o.Kind {
		return false
	}
	switch d.Kind {
	case DecisionOp:
		return d.Op == o.Op
	case DecisionBool:
		return d.Bool == o.Bool
	case DecisionInt:
		return d.Int == o.Int
	default:
		return false
	}
}

// Trace is a fully recorded (or loaded) schedule: the strategy and seed
// that produced it, plus the ordered sequence of decisions, and the
// terminal outcome.
//
// Trace's on-disk form is a plain text format, one decision per line,
// chosen for the same reason the teacher's event target and promise
// machinery favor small, directly-serializable structs over opaque
// binary blobs: a trace file is meant to be diffed and read by a human
// chasing down a flaky failure.
type Trace struct {
	SchemaVersion int
	Strategy      string
	Seed          uint64
	Steps         []Decision
	Outcome       string
}

// NewTrace initializes an empty trace for the given strategy name and seed.
func NewTrace(strategy string, seed uint64) *Trace {
	return &Trace{SchemaVersion: 1, Strategy: strategy, Seed: seed}
}

// Recorder appends decisions to an in-progress [Trace] as the scheduler
// makes them. It holds no synchronization of its own: callers must only
// ever invoke it from the single scheduler goroutine, matching the
// single-active-operation invariant the rest of the runtime relies on.
type Recorder struct {
	trace *Trace
}

// NewRecorder returns a Recorder that appends to trace.
func NewRecorder(trace *Trace) *Recorder {
	return &Recorder{trace: trace}
}

// RecordOp appends an operation-choice decision.
func (r *Recorder) RecordOp(op OperationID, hash uint64) {
	r.append(Decision{Kind: DecisionOp, Op: op, Hash: hash})
}

// RecordBool appends a boolean-choice decision.
func (r *Recorder) RecordBool(v bool, hash uint64) {
	r.append(Decision{Kind: DecisionBool, Bool: v, Hash: hash})
}

// RecordInt appends an integer-choice decision.
func (r *Recorder) RecordInt(v int, hash uint64) {
	r.append(Decision{Kind: DecisionInt, Int: v, Hash: hash})
}

func (r *Recorder) append(d Decision) {
	d.Step = len(r.trace.Steps)
	r.trace.Steps = append(r.trace.Steps, d)
}

// Finish sets the trace's terminal outcome string, e.g. "ok",
// "assertion_failure", "deadlock", "liveness_violation".
func (r *Recorder) Finish(outcome string) {
	r.trace.Outcome = outcome
}

// Player replays a previously recorded [Trace], asserting that each live
// decision made by the scheduler matches the recorded one in order, and
// surfacing a [ReplayMismatch] the first time they diverge.
type Player struct {
	trace *Trace
	pos   int
}

// NewPlayer returns a Player that will replay trace from its first step.
func NewPlayer(trace *Trace) *Player {
	return &Player{trace: trace}
}

// Strategy returns the recorded strategy name, for the caller to re-select
// the matching (deterministic, given the same seed) [Strategy] before
// falling back to Player as an override.
func (p *Player) Strategy() string { return p.trace.Strategy }

// Seed returns the recorded seed.
func (p *Player) Seed() uint64 { return p.trace.Seed }

// Done reports whether every recorded decision has been consumed.
func (p *Player) Done() bool { return p.pos >= len(p.trace.Steps) }

// NextOp returns the recorded operation id for the current step and
// advances, or ok=false if the trace is exhausted or the current step is
// not an op decision.
func (p *Player) NextOp() (op OperationID, ok bool) {
	d, ok := p.peek()
	if !ok || d.Kind != DecisionOp {
		return 0, false
	}
	p.pos++
	return d.Op, true
}

// NextBool returns the recorded boolean for the current step and advances.
func (p *Player) NextBool() (v bool, ok bool) {
	d, ok := p.peek()
	if !ok || d.Kind != DecisionBool {
		return false, false
	}
	p.pos++
	return d.Bool, true
}

// NextInt returns the recorded integer for the current step and advances.
func (p *Player) NextInt() (v int, ok bool) {
	d, ok := p.peek()
	if !ok || d.Kind != DecisionInt {
		return 0, false
	}
	p.pos++
	return d.Int, true
}

// Check compares a live decision just made against the recorded one at the
// same step, returning a *[ReplayMismatch] if they disagree on the chosen
// value. The caller is expected to have already consumed the matching
// Next* accessor; Check exists separately so the hash (computed only after
// the choice has been applied) can be verified too.
func (p *Player) Check(live Decision) error {
	if live.Step < 0 || live.Step >= len(p.trace.Steps) {
		return nil
	}
	recorded := p.trace.Steps[live.Step]
	if !recorded.equalChoice(live) {
		return &ReplayMismatch{Step: live.Step, Expected: recorded, Actual: live}
	}
	if recorded.Hash != 0 && live.Hash != 0 && recorded.Hash != live.Hash {
		return &ReplayMismatch{Step: live.Step, Expected: recorded, Actual: live}
	}
	return nil
}

func (p *Player) peek() (Decision, bool) {
	if p.pos >= len(p.trace.Steps) {
		return Decision{}, false
	}
	return p.trace.Steps[p.pos], true
}

// WriteTrace serializes a trace in the header+body text format:
//
//	schedule-version:1 strategy:<name> seed:<u64>
//	<step> <kind> <value> <hash>
//	...
//	end <outcome>
func WriteTrace(w io.Writer, t *Trace) error {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "schedule-version:%d strategy:%s seed:%d\n", t.SchemaVersion, t.Strategy, t.Seed); err != nil {
		return err
	}
	for _, d := range t.Steps {
		if _, err := fmt.Fprintln(bw, d.String()); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "end %s\n", t.Outcome); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadTrace parses the text format written by [WriteTrace].
func ReadTrace(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, fmt.Errorf("interleave: empty trace")
	}
	t := &Trace{}
	if _, err := fmt.Sscanf(sc.Text(), "schedule-version:%d strategy:%s seed:%d", &t.SchemaVersion, &t.Strategy, &t.Seed); err != nil {
		return nil, fmt.Errorf("interleave: malformed trace header %q: %w", sc.Text(), err)
	}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "end ") {
			t.Outcome = strings.TrimSpace(strings.TrimPrefix(line, "end "))
			continue
		}
		d, err := parseDecisionLine(line)
		if err != nil {
			return nil, err
		}
		t.Steps = append(t.Steps, d)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseDecisionLine(line string) (Decision, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 {
		return Decision{}, fmt.Errorf("interleave: malformed trace line %q", line)
	}
	step, err := strconv.Atoi(fields[0])
	if err != nil {
		return Decision{}, fmt.Errorf("interleave: malformed trace step %q: %w", fields[0], err)
	}
	hash, err := strconv.ParseUint(fields[3], 16, 64)
	if err != nil {
		return Decision{}, fmt.Errorf("interleave: malformed trace hash %q: %w", fields[3], err)
	}
	d := Decision{Step: step, Kind: DecisionKind(fields[1]), Hash: hash}
	switch d.Kind {
	case DecisionOp:
		v, err := strconv.ParseUint(fields[2], 10, 64)
		if err != nil {
			return Decision{}, fmt.Errorf("interleave: malformed trace op value %q: %w", fields[2], err)
		}
		d.Op = OperationID(v)
	case DecisionBool:
		v, err := strconv.ParseBool(fields[2])
		if err != nil {
			return Decision{}, fmt.Errorf("interleave: malformed trace bool value %q: %w", fields[2], err)
		}
		d.Bool = v
	case DecisionInt:
		v, err := strconv.Atoi(fields[2])
		if err != nil {
			return Decision{}, fmt.Errorf("interleave: malformed trace int value %q: %w", fields[2], err)
		}
		d.Int = v
	default:
		return Decision{}, fmt.Errorf("interleave: unknown trace decision kind %q", fields[1])
	}
	return d, nil
}
