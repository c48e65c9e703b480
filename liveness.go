package interleave

// livenessTracker detects non-progressing cycles: a program state
// (fingerprinted by [Scheduler.stateHash]) that recurs while at least one
// monitor remains hot indicates the iteration is spinning without making
// progress toward satisfying that monitor, which is a [LivenessViolation]
// just as surely as running out of steps while hot.
//
// This is the bounded analogue of an infinite-trace liveness check: rather
// than running forever looking for a genuine cycle, a state repeating at
// all while hot is treated as sufficient evidence, since the scheduler
// space explored in one iteration is always finite.
type livenessTracker struct {
	seen     map[uint64]int
	repeatAt int
}

// newLivenessTracker returns a tracker that reports a cycle once a state
// hash has recurred repeatAt times. repeatAt is deliberately independent of
// [Config.LivenessTemperatureThreshold]: that threshold bounds how many
// consecutive steps a monitor may stay hot (typically thousands), while
// repeatAt bounds how many times the exact same program state may recur
// before it is treated as a non-progressing cycle - a much smaller number,
// since any real progress changes the hash. Reusing the hot-state
// threshold here would make cycle detection fire only after thousands of
// identical repeats, defeating its purpose as an early, bounded-depth
// check.
func newLivenessTracker() *livenessTracker {
	return &livenessTracker{seen: make(map[uint64]int), repeatAt: 2}
}

// observe records one occurrence of hash and reports whether it has now
// recurred while any monitor in monitors is hot.
func (t *livenessTracker) observe(hash uint64, monitors []*Monitor) bool {
	t.seen[hash]++
	count := t.seen[hash]
	if count < t.repeatAt {
		return false
	}
	for _, m := range monitors {
		if m.hot[m.state] {
			return true
		}
	}
	return false
}

// reset clears accumulated state hashes; checkCycle calls it after granting
// a forced fair flip.
func (t *livenessTracker) reset() {
	t.seen = make(map[uint64]int)
}
