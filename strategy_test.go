package interleave

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coinFlipScenario is small enough for DFS to fully exhaust: two
// concurrent operations each choosing one of two branches via FlipCoin.
func coinFlipScenario(seen *map[[2]bool]int) Func {
	return func(ctx *Context) {
		results := [2]bool{}
		a := ctx.Spawn(func(ctx *Context) { results[0] = ctx.FlipCoin(false) })
		b := ctx.Spawn(func(ctx *Context) { results[1] = ctx.FlipCoin(false) })
		ctx.Join(a, b)
		(*seen)[results]++
	}
}

func TestDFSStrategyExploresUntilExhausted(t *testing.T) {
	seen := map[[2]bool]int{}
	rt, err := NewRuntime(WithStrategy("dfs"), WithMaxIterations(100), WithFailFast(false))
	require.NoError(t, err)

	res, err := rt.Test(context.Background(), Scenario{
		Monitors: func() []*Monitor { return nil },
		Run:      coinFlipScenario(&seen),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Less(t, res.Iterations, 100, "dfs should exhaust the small schedule space before the iteration cap")
	assert.NotEmpty(t, seen)
}

func TestPCTStrategyDrivesARun(t *testing.T) {
	seen := map[[2]bool]int{}
	rt, err := NewRuntime(WithStrategy("pct"), WithPCTBugDepth(2), WithMaxIterations(20), WithSeed(5))
	require.NoError(t, err)

	res, err := rt.Test(context.Background(), Scenario{
		Monitors: func() []*Monitor { return nil },
		Run:      coinFlipScenario(&seen),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 20, res.Iterations)
}

func TestRuntimeTraceAndReplayFromDisk(t *testing.T) {
	tracePath := t.TempDir() + "/failure.trace"

	rt, err := NewRuntime(
		WithStrategy("random"),
		WithSeed(1),
		WithMaxIterations(50),
		WithTracePath(tracePath),
		WithFailFast(true),
	)
	require.NoError(t, err)

	scenario := Scenario{
		Monitors: func() []*Monitor { return nil },
		Run: func(ctx *Context) {
			ctx.Assert(!ctx.FlipCoin(false), "heads is never allowed")
		},
	}

	res, err := rt.Test(context.Background(), scenario)
	require.NoError(t, err)
	require.NotEmpty(t, res.Failures)

	replayRt, err := NewRuntime()
	require.NoError(t, err)

	replayErr := replayRt.Replay(context.Background(), tracePath, scenario)
	var af *AssertionFailure
	require.ErrorAs(t, replayErr, &af)
}
