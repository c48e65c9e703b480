package interleave

import "math/rand/v2"

// Strategy supplies every nondeterministic choice the scheduler makes
// during one iteration: which enabled operation runs next, and the value
// of any boolean or bounded-integer choice raised via [Context.FlipCoin]
// or [Context.ChooseInt].
//
// Implementations are not required to be safe for concurrent use; the
// scheduler only ever calls a Strategy from the single goroutine driving
// its iteration loop.
type Strategy interface {
	// Name identifies the strategy in a recorded [Trace] header.
	Name() string
	// NextOp picks one operation from enabled, which is sorted by id and
	// always non-empty.
	NextOp(enabled []*Operation) *Operation
	// NextBool returns the next boolean choice. fair marks a choice the
	// caller has promised to treat fairly (see [Context.FlipCoin]):
	// strategies are not required to do anything differently for a fair
	// choice themselves - fairness recovery when a fair choice is stuck in
	// a non-progressing cycle is the scheduler's responsibility (see
	// [Scheduler.checkCycle]), not the strategy's.
	NextBool(fair bool) bool
	NextInt(n int) int
}

// RandomStrategy picks uniformly among enabled operations at every
// scheduling point. It is the simplest strategy.
type RandomStrategy struct {
	rng *rand.Rand
}

// NewRandomStrategy returns a RandomStrategy seeded deterministically from
// seed, so two runs constructed with the same seed make identical choices
// given identical programs.
func NewRandomStrategy(seed uint64) *RandomStrategy {
	return &RandomStrategy{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *RandomStrategy) Name() string { return "random" }

func (s *RandomStrategy) NextOp(enabled []*Operation) *Operation {
	return enabled[s.rng.IntN(len(enabled))]
}

func (s *RandomStrategy) NextBool(fair bool) bool { return s.rng.IntN(2) == 1 }

func (s *RandomStrategy) NextInt(n int) int { return s.rng.IntN(n) }

// DFSStrategy performs a depth-first exploration of schedules by always
// picking the lowest-index enabled operation not yet
// exhausted at the current depth, and recording a path of choice-point
// indices so a subsequent iteration can backtrack to the next
// unexplored branch. It is deterministic given its accumulated path: the
// caller drives exploration by calling [DFSStrategy.Backtrack] between
// iterations.
type DFSStrategy struct {
	path    []int // chosen index at each step of the in-progress iteration
	widths  []int // number of alternatives available at each step of path
	frontier []int // index to try next at each step, once backtracked to
	depth   int
}

// NewDFSStrategy returns a DFSStrategy starting from an empty path.
func NewDFSStrategy() *DFSStrategy { return &DFSStrategy{} }

func (s *DFSStrategy) Name() string { return "dfs" }

func (s *DFSStrategy) NextOp(enabled []*Operation) *Operation {
	idx := 0
	if s.depth < len(s.frontier) {
		idx = s.frontier[s.depth]
		if idx >= len(enabled) {
			idx = len(enabled) - 1
		}
	}
	s.path = append(s.path, idx)
	s.widths = append(s.widths, len(enabled))
	s.depth++
	return enabled[idx]
}

func (s *DFSStrategy) NextBool(fair bool) bool { return s.choiceBool() }
func (s *DFSStrategy) NextInt(n int) int {
	idx := 0
	if s.depth < len(s.frontier) {
		idx = s.frontier[s.depth]
		if idx >= n {
			idx = n - 1
		}
	}
	s.path = append(s.path, idx)
	s.widths = append(s.widths, n)
	s.depth++
	return idx
}

func (s *DFSStrategy) choiceBool() bool {
	return s.NextInt(2) == 1
}

// Backtrack prepares the strategy for the next iteration: it truncates the
// last-taken path to the deepest step that still has an untried
// alternative, and reports ok=false once every branch has been exhausted
// (the search is complete).
func (s *DFSStrategy) Backtrack() (ok bool) {
	for i := len(s.path) - 1; i >= 0; i-- {
		if s.path[i]+1 < s.branchWidth(i) {
			frontier := append([]int(nil), s.path[:i]...)
			frontier = append(frontier, s.path[i]+1)
			s.frontier = frontier
			s.path = nil
			s.widths = nil
			s.depth = 0
			return true
		}
	}
	return false
}

// branchWidth is the number of alternatives that were available at step i
// of the last iteration (the enabled-set size, or the bound of an integer
// choice).
func (s *DFSStrategy) branchWidth(i int) int {
	return s.widths[i]
}

// PCTStrategy implements probabilistic concurrency testing: it assigns
// each operation a priority the first time it appears in an enabled set,
// in order of appearance (a lower value is a higher priority), always runs
// the highest priority enabled operation, and at a bounded number of random points
// during the iteration demotes the currently highest-priority operation to
// the bottom of the order. This concentrates exploration on schedules with
// a small number of priority-changing context switches, which in practice
// is where most concurrency bugs live.
type PCTStrategy struct {
	rng          *rand.Rand
	bugDepth     int
	priority     map[OperationID]int
	nextPriority int
	switchPoints map[int]bool
	steps        int
}

// NewPCTStrategy returns a PCTStrategy seeded from seed that plans for up
// to bugDepth priority-lowering events per iteration.
func NewPCTStrategy(seed uint64, bugDepth int) *PCTStrategy {
	if bugDepth < 1 {
		bugDepth = 1
	}
	return &PCTStrategy{
		rng:          rand.New(rand.NewPCG(seed, seed^0xbf58476d1ce4e5b9)),
		bugDepth:     bugDepth,
		priority:     make(map[OperationID]int),
		switchPoints: make(map[int]bool),
	}
}

func (s *PCTStrategy) Name() string { return "pct" }

func (s *PCTStrategy) priorityOf(op *Operation) int {
	p, ok := s.priority[op.id]
	if !ok {
		p = s.nextPriority
		s.nextPriority++
		s.priority[op.id] = p
	}
	return p
}

func (s *PCTStrategy) NextOp(enabled []*Operation) *Operation {
	best := enabled[0]
	bestP := s.priorityOf(best)
	for _, op := range enabled[1:] {
		p := s.priorityOf(op)
		if p < bestP {
			best, bestP = op, p
		}
	}
	if s.switchPoints[s.steps] {
		s.priority[best.id] = s.nextPriority
		s.nextPriority++
	}
	s.steps++
	return best
}

func (s *PCTStrategy) NextBool(fair bool) bool { return s.rng.IntN(2) == 1 }
func (s *PCTStrategy) NextInt(n int) int { return s.rng.IntN(n) }

// PlanSwitchPoints samples bugDepth step indices in [0, horizon), fewer
// if some samples coincide, at which to demote the running operation's priority; call once per
// iteration before Run, with a horizon estimate (e.g. the previous
// iteration's step count, or a configured maximum).
func (s *PCTStrategy) PlanSwitchPoints(horizon int) {
	s.switchPoints = make(map[int]bool, s.bugDepth)
	if horizon <= 0 {
		return
	}
	for i := 0; i < s.bugDepth; i++ {
		s.switchPoints[s.rng.IntN(horizon)] = true
	}
}

// ReplayStrategy wraps another strategy purely to give replayed iterations
// a reportable name; the scheduler's [Player] intercepts every choice
// before this strategy is ever consulted, so NextOp/NextBool/NextInt are
// only reached once the recorded trace is exhausted (e.g. the program
// under test is nondeterministic beyond what was recorded).
type ReplayStrategy struct {
	Underlying Strategy
}

func (s *ReplayStrategy) Name() string { return "replay:" + s.Underlying.Name() }
func (s *ReplayStrategy) NextOp(enabled []*Operation) *Operation { return s.Underlying.NextOp(enabled) }
func (s *ReplayStrategy) NextBool(fair bool) bool                 { return s.Underlying.NextBool(fair) }
func (s *ReplayStrategy) NextInt(n int) int                      { return s.Underlying.NextInt(n) }
