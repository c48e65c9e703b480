package main

import (
	"fmt"

	"github.com/concurrentkit/interleave"
)

// coordinatorData is the coordinator actor's per-instance state, reached
// through [interleave.Context.ActorData] since its handler table is
// shared across every coordinator instance.
type coordinatorData struct {
	expected int
	votes    int
	anyNo    bool
	replicas []interleave.ActorID
}

type replicaVote struct {
	replica interleave.ActorID
	no      bool
}

func haltOnEntry(ctx *interleave.Context) { ctx.Halt() }

// buildTwoPhaseCommit returns a small two-phase commit scenario: one
// coordinator actor and replicaCount replica actors. A unanimous "yes"
// vote always reaches the committed state; any single "no" vote always
// reaches the aborted state, regardless of how the scheduler interleaves
// the replicas' votes.
func buildTwoPhaseCommit(replicaCount int, replicaVotesNo func(i int) bool) interleave.Scenario {
	coordinatorTable := interleave.NewHandlerTable("collecting",
		&interleave.StateConfig{
			Name: "collecting",
			Transitions: map[string]interleave.Transition{
				"vote":   {Kind: interleave.DoAction, Action: coordinatorOnVote},
				"commit": {Kind: interleave.Goto, Target: "committed"},
				"abort":  {Kind: interleave.Goto, Target: "aborted"},
			},
		},
		&interleave.StateConfig{Name: "committed", OnEntry: haltOnEntry},
		&interleave.StateConfig{Name: "aborted", OnEntry: haltOnEntry},
	)

	replicaTable := interleave.NewHandlerTable("ready",
		&interleave.StateConfig{
			Name: "ready",
			Transitions: map[string]interleave.Transition{
				"commit": {Kind: interleave.Goto, Target: "committed"},
				"abort":  {Kind: interleave.Goto, Target: "aborted"},
			},
		},
		&interleave.StateConfig{Name: "committed", OnEntry: haltOnEntry},
		&interleave.StateConfig{Name: "aborted", OnEntry: haltOnEntry},
	)

	monitorTable := interleave.NewHandlerTable("pending",
		&interleave.StateConfig{
			Name: "pending",
			Transitions: map[string]interleave.Transition{
				"coordinator-decided": {Kind: interleave.Goto, Target: "done"},
			},
		},
		&interleave.StateConfig{Name: "done"},
	)

	run := func(ctx *interleave.Context) {
		coordID, _ := ctx.CreateActor("coordinator", coordinatorTable, func(ctx *interleave.Context) {
			ctx.SetActorData(&coordinatorData{expected: replicaCount})
		}, nil)

		for i := 0; i < replicaCount; i++ {
			votesNo := replicaVotesNo(i)
			var replicaID interleave.ActorID
			replicaID, _ = ctx.CreateActor(fmt.Sprintf("replica-%d", i), replicaTable, func(ctx *interleave.Context) {
				ctx.Send(coordID, interleave.Event{Tag: "vote", Payload: replicaVote{replica: replicaID, no: votesNo}}, true)
			}, nil)
		}
	}

	return interleave.Scenario{
		Monitors: func() []*interleave.Monitor {
			return []*interleave.Monitor{
				interleave.NewMonitor("two-phase-commit-terminates", monitorTable, []string{"pending"}, []string{"done"}, 0),
			}
		},
		Run: run,
	}
}

func coordinatorOnVote(ctx *interleave.Context, ev interleave.Event) {
	data := ctx.ActorData().(*coordinatorData)
	vote := ev.Payload.(replicaVote)
	data.votes++
	data.replicas = append(data.replicas, vote.replica)
	if vote.no {
		data.anyNo = true
	}
	if data.votes < data.expected {
		return
	}
	ctx.Notify(interleave.Event{Tag: "coordinator-decided"})
	decision := "commit"
	if data.anyNo {
		decision = "abort"
	}
	for _, r := range data.replicas {
		ctx.Send(r, interleave.Event{Tag: decision}, true)
	}
	ctx.Raise(interleave.Event{Tag: decision})
}
