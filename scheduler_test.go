package interleave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunsToCompletion(t *testing.T) {
	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	var order []int
	err := sched.Run(context.Background(), func(ctx *Context) {
		order = append(order, 1)
		child := ctx.Spawn(func(ctx *Context) {
			order = append(order, 2)
		})
		ctx.Join(child)
		order = append(order, 3)
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestSchedulerDetectsDeadlock(t *testing.T) {
	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		ctx.Block("never satisfied", func() bool { return false })
	})
	var dl *Deadlock
	require.ErrorAs(t, err, &dl)
	assert.Len(t, dl.Blocked, 1)
}

func TestSchedulerAssertionFailure(t *testing.T) {
	sched := NewScheduler(NewRandomStrategy(1), DefaultConfig())
	err := sched.Run(context.Background(), func(ctx *Context) {
		ctx.Assert(1 == 2, "impossible: %d != %d", 1, 2)
	})
	var af *AssertionFailure
	require.ErrorAs(t, err, &af)
	assert.Contains(t, af.Message, "impossible")
}

func TestSchedulerExploresBothCoinOutcomes(t *testing.T) {
	seen := map[bool]bool{}
	for seed := uint64(1); seed < 50 && (!seen[true] || !seen[false]); seed++ {
		sched := NewScheduler(NewRandomStrategy(seed), DefaultConfig())
		_ = sched.Run(context.Background(), func(ctx *Context) {
			seen[ctx.FlipCoin(false)] = true
		})
	}
	assert.True(t, seen[true])
	assert.True(t, seen[false])
}

func TestReplayMatchesRecordedTrace(t *testing.T) {
	cfg := DefaultConfig()
	strategy := NewRandomStrategy(7)
	trace := NewTrace(strategy.Name(), 7)
	rec := NewRecorder(trace)

	program := func(ctx *Context) {
		a := ctx.Spawn(func(ctx *Context) { ctx.Yield() })
		b := ctx.Spawn(func(ctx *Context) { ctx.Yield() })
		ctx.Join(a, b)
		_ = ctx.FlipCoin(false)
	}

	sched := NewScheduler(strategy, cfg).WithRecorder(rec)
	require.NoError(t, sched.Run(context.Background(), program))
	rec.Finish("ok")

	player := NewPlayer(trace)
	replaySched := NewScheduler(&ReplayStrategy{Underlying: NewRandomStrategy(999)}, cfg).WithPlayer(player)
	require.NoError(t, replaySched.Run(context.Background(), program))
}
