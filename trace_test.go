package interleave

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceRoundTrip(t *testing.T) {
	trace := NewTrace("random", 42)
	rec := NewRecorder(trace)
	rec.RecordOp(1, 0xdeadbeef)
	rec.RecordBool(true, 0xcafef00d)
	rec.RecordInt(3, 0)
	rec.Finish("deadlock")

	var buf bytes.Buffer
	require.NoError(t, WriteTrace(&buf, trace))

	got, err := ReadTrace(&buf)
	require.NoError(t, err)

	assert.Equal(t, trace.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, trace.Strategy, got.Strategy)
	assert.Equal(t, trace.Seed, got.Seed)
	assert.Equal(t, trace.Outcome, got.Outcome)
	require.Len(t, got.Steps, 3)
	assert.Equal(t, trace.Steps, got.Steps)
}

func TestDecisionStringRoundTrip(t *testing.T) {
	d := Decision{Step: 7, Kind: DecisionOp, Op: 12, Hash: 0x1}
	line := d.String()
	parsed, err := parseDecisionLine(line)
	require.NoError(t, err)
	assert.Equal(t, d, parsed)
}

func TestPlayerChecksDivergence(t *testing.T) {
	trace := NewTrace("random", 1)
	trace.Steps = []Decision{{Step: 0, Kind: DecisionOp, Op: 5}}
	p := NewPlayer(trace)

	op, ok := p.NextOp()
	require.True(t, ok)
	assert.Equal(t, OperationID(5), op)

	err := p.Check(Decision{Step: 0, Kind: DecisionOp, Op: 6})
	var mismatch *ReplayMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 0, mismatch.Step)
}
