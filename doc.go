// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package interleave is a systematic concurrency testing runtime for programs
// structured as cooperating asynchronous operations: tasks and message-passing
// actors/state machines.
//
// The runtime explores feasible interleavings of a program under a pluggable
// scheduling [Strategy], detects safety and liveness violations via
// [Monitor]s and cycle detection, and deterministically replays failing
// schedules from a recorded [Trace].
//
// At the core sits a single-threaded, cooperatively gated [Scheduler]: at
// most one [Operation] runs user code at any instant, and control only
// switches hands at well-defined scheduling points (see [Context.Yield],
// [Context.Block], nondeterministic choices, and actor dequeue). Everything
// else - the actor dispatcher, the monitors, the liveness checker, and the
// trace recorder - observes or drives that single gated loop.
//
// Binary rewriting of a program under test and CLI parsing are out of
// scope for this package; see the sibling cmd/coytest and config packages
// for those concerns.
package interleave
