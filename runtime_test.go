package interleave

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPhaseOutcome records how the demo scenario below resolved. It is
// written only from within actor handlers, which the scheduler guarantees
// never run concurrently with each other, so no locking is needed.
type twoPhaseOutcome struct {
	coordinator string
	replicas    map[string]string
}

type coordinatorTally struct {
	expected int
	votes    int
	anyNo    bool
	replicas []ActorID
}

type castVote struct {
	replica ActorID
	no      bool
}

// buildTwoPhaseCommitScenario mirrors the coytest CLI's demo: one
// coordinator actor tallies a vote from each of replicaCount replicas and
// broadcasts commit or abort once every vote is in; a single "no" vote
// forces abort regardless of how the scheduler interleaves the votes.
func buildTwoPhaseCommitScenario(replicaCount int, votesNo func(i int) bool, result *twoPhaseOutcome) Scenario {
	coordinatorTable := NewHandlerTable("collecting",
		&StateConfig{
			Name: "collecting",
			Transitions: map[string]Transition{
				"vote": {Kind: DoAction, Action: func(ctx *Context, ev Event) {
					data := ctx.ActorData().(*coordinatorTally)
					v := ev.Payload.(castVote)
					data.votes++
					data.replicas = append(data.replicas, v.replica)
					if v.no {
						data.anyNo = true
					}
					if data.votes < data.expected {
						return
					}
					decision := "commit"
					result.coordinator = "committed"
					if data.anyNo {
						decision = "abort"
						result.coordinator = "aborted"
					}
					for _, r := range data.replicas {
						_ = ctx.Send(r, Event{Tag: decision}, true)
					}
					ctx.Raise(Event{Tag: decision})
				}},
				"commit": {Kind: Goto, Target: "committed"},
				"abort":  {Kind: Goto, Target: "aborted"},
			},
		},
		&StateConfig{Name: "committed", OnEntry: func(ctx *Context) { ctx.Halt() }},
		&StateConfig{Name: "aborted", OnEntry: func(ctx *Context) { ctx.Halt() }},
	)

	replicaTable := func(label string) *HandlerTable {
		return NewHandlerTable("ready",
			&StateConfig{
				Name: "ready",
				Transitions: map[string]Transition{
					"commit": {Kind: Goto, Target: "committed"},
					"abort":  {Kind: Goto, Target: "aborted"},
				},
			},
			&StateConfig{Name: "committed", OnEntry: func(ctx *Context) {
				result.replicas[label] = "committed"
				ctx.Halt()
			}},
			&StateConfig{Name: "aborted", OnEntry: func(ctx *Context) {
				result.replicas[label] = "aborted"
				ctx.Halt()
			}},
		)
	}

	run := func(ctx *Context) {
		coordID, err := ctx.CreateActor("coordinator", coordinatorTable, func(ctx *Context) {
			ctx.SetActorData(&coordinatorTally{expected: replicaCount})
		}, nil)
		if err != nil {
			panic(err)
		}

		for i := 0; i < replicaCount; i++ {
			label := fmt.Sprintf("replica-%d", i)
			no := votesNo(i)
			var replicaID ActorID
			replicaID, err = ctx.CreateActor(label, replicaTable(label), func(ctx *Context) {
				_ = ctx.Send(coordID, Event{Tag: "vote", Payload: castVote{replica: replicaID, no: no}}, true)
			}, nil)
			if err != nil {
				panic(err)
			}
		}
	}

	return Scenario{
		Monitors: func() []*Monitor { return nil },
		Run:      run,
	}
}

func TestTwoPhaseCommitUnanimousYesCommits(t *testing.T) {
	result := &twoPhaseOutcome{replicas: map[string]string{}}
	scenario := buildTwoPhaseCommitScenario(3, func(i int) bool { return false }, result)

	rt, err := NewRuntime(WithMaxIterations(1), WithSeed(1))
	require.NoError(t, err)

	res, err := rt.Test(context.Background(), scenario)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, "committed", result.coordinator)
	assert.Len(t, result.replicas, 3)
	for _, outcome := range result.replicas {
		assert.Equal(t, "committed", outcome)
	}
}

func TestTwoPhaseCommitOneReplicaAborts(t *testing.T) {
	result := &twoPhaseOutcome{replicas: map[string]string{}}
	scenario := buildTwoPhaseCommitScenario(3, func(i int) bool { return i == 1 }, result)

	rt, err := NewRuntime(WithMaxIterations(1), WithSeed(1))
	require.NoError(t, err)

	res, err := rt.Test(context.Background(), scenario)
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Equal(t, "aborted", result.coordinator)
	assert.Len(t, result.replicas, 3)
	for _, outcome := range result.replicas {
		assert.Equal(t, "aborted", outcome)
	}
}
