package translator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T, m Model, opts ...ValidatorOption) *IntegrityValidator {
	t.Helper()
	b, err := NewRequestBuilder()
	require.NoError(t, err)
	return NewIntegrityValidator(m, b, opts...)
}

func TestValidatorAccepts(t *testing.T) {
	m := &scriptedModel{responses: []string{`["你好", "世界"]`}}

	out := newValidator(t, m).Run(context.Background(), FragmentBatch{"Hello", "World"}, "中文")
	require.Equal(t, StateAccepted, out.State)
	require.NoError(t, out.Err)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, TranslationMapping{"Hello": "你好", "World": "世界"}, out.Mapping)
	assert.Len(t, out.Mapping, 2)
}

func TestValidatorRetriesOnCountMismatch(t *testing.T) {
	m := &scriptedModel{responses: []string{
		`["你好世界"]`,
		`not json`,
		`["你好", "世界"]`,
	}}

	out := newValidator(t, m).Run(context.Background(), FragmentBatch{"Hello", "World"}, "中文")
	require.Equal(t, StateAccepted, out.State)
	assert.Equal(t, 3, out.Attempts)
	assert.Equal(t, 3, m.calls())
	assert.Equal(t, "世界", out.Mapping["World"])
}

// TestValidatorRejectsEcho 原样返回永远不会被接受，恰好请求 6 次
func TestValidatorRejectsEcho(t *testing.T) {
	m := &scriptedModel{responses: []string{`["A", "B"]`}}

	out := newValidator(t, m).Run(context.Background(), FragmentBatch{"A", "B"}, "中文")
	require.Equal(t, StateFailed, out.State)
	assert.Nil(t, out.Mapping)
	assert.Equal(t, MaxAttempts, out.Attempts)
	assert.Equal(t, 6, m.calls())

	assert.ErrorIs(t, out.Err, ErrContentIntegrity)
	assert.NotErrorIs(t, out.Err, ErrTransportFailure)
	var cie *ContentIntegrityError
	require.ErrorAs(t, out.Err, &cie)
	assert.Equal(t, 6, cie.Attempts)
}

func TestValidatorPartialEchoAccepted(t *testing.T) {
	m := &scriptedModel{responses: []string{`["A", "乙"]`}}

	out := newValidator(t, m).Run(context.Background(), FragmentBatch{"A", "B"}, "中文")
	require.Equal(t, StateAccepted, out.State)
	assert.Equal(t, "A", out.Mapping["A"])
}

func TestValidatorTransportFailure(t *testing.T) {
	m := &scriptedModel{err: errors.New("connection refused")}

	out := newValidator(t, m).Run(context.Background(), FragmentBatch{"X"}, "中文")
	require.Equal(t, StateFailed, out.State)
	assert.Equal(t, 1, out.Attempts)
	assert.Equal(t, 1, m.calls())
	assert.ErrorIs(t, out.Err, ErrTransportFailure)
	assert.NotErrorIs(t, out.Err, ErrContentIntegrity)
	assert.Contains(t, out.Err.Error(), "connection refused")
}

func TestValidatorTransportFailureAfterRetry(t *testing.T) {
	calls := 0
	m := ModelFunc(func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return `["X"]`, nil
		}
		return "", context.DeadlineExceeded
	})

	out := newValidator(t, m).Run(context.Background(), FragmentBatch{"X"}, "中文")
	require.Equal(t, StateFailed, out.State)
	assert.Equal(t, 2, out.Attempts)
	assert.ErrorIs(t, out.Err, ErrTransportFailure)
	assert.ErrorIs(t, out.Err, context.DeadlineExceeded)
}

func TestValidatorTransitions(t *testing.T) {
	m := &scriptedModel{responses: []string{`["X"]`, `["叉"]`}}
	var seen []Transition

	out := newValidator(t, m, WithObserver(func(tr Transition) { seen = append(seen, tr) })).
		Run(context.Background(), FragmentBatch{"X"}, "中文")
	require.Equal(t, StateAccepted, out.State)

	want := []struct {
		from, to State
		attempt  int
	}{
		{StateRequesting, StateValidating, 1},
		{StateValidating, StateRetrying, 1},
		{StateRetrying, StateRequesting, 2},
		{StateRequesting, StateValidating, 2},
		{StateValidating, StateAccepted, 2},
	}
	require.Len(t, seen, len(want))
	for i, w := range want {
		assert.Equal(t, w.from, seen[i].From, "transition %d", i)
		assert.Equal(t, w.to, seen[i].To, "transition %d", i)
		assert.Equal(t, w.attempt, seen[i].Attempt, "transition %d", i)
	}
}

func TestValidatorEmptyBatch(t *testing.T) {
	m := &scriptedModel{}

	out := newValidator(t, m).Run(context.Background(), nil, "中文")
	assert.Equal(t, StateAccepted, out.State)
	assert.Empty(t, out.Mapping)
	assert.Equal(t, 0, m.calls())
}

func TestMappingLookup(t *testing.T) {
	m := TranslationMapping{"Hello": "你好", "Empty": ""}
	assert.Equal(t, "你好", m.Lookup("Hello"))
	assert.Equal(t, "Missing", m.Lookup("Missing"))
	assert.Equal(t, "Empty", m.Lookup("Empty"))

	var nilMap TranslationMapping
	assert.Equal(t, "x", nilMap.Lookup("x"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "requesting", StateRequesting.String())
	assert.Equal(t, "accepted", StateAccepted.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(42)", State(42).String())
}
