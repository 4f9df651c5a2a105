package hook

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLayer() *Layer {
	return NewLayer(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func recordingHandler(trace *[]string, label string) Handler {
	return func(args Args, next Next) any {
		*trace = append(*trace, label)
		return next(args)
	}
}

func TestIntercept_PriorityOrder(t *testing.T) {
	l := newTestLayer()
	var trace []string
	l.Define("ChatRoomSendChat", func(Args) any {
		trace = append(trace, "original")
		return "sent"
	}, "")

	l.Intercept("ChatRoomSendChat", 11, recordingHandler(&trace, "p11"))
	l.Intercept("ChatRoomSendChat", 0, recordingHandler(&trace, "p0"))
	l.Intercept("ChatRoomSendChat", 5, recordingHandler(&trace, "p5"))

	got, err := l.Call("ChatRoomSendChat")
	require.NoError(t, err)
	assert.Equal(t, "sent", got)
	assert.Equal(t, []string{"p0", "p5", "p11", "original"}, trace)
}

func TestIntercept_EqualPriorityFIFO(t *testing.T) {
	l := newTestLayer()
	var trace []string
	l.Define("Op", func(Args) any { return nil }, "")

	l.Intercept("Op", 5, recordingHandler(&trace, "first"))
	l.Intercept("Op", 0, recordingHandler(&trace, "zero"))
	l.Intercept("Op", 5, recordingHandler(&trace, "second"))
	l.Intercept("Op", 5, recordingHandler(&trace, "third"))

	_, err := l.Call("Op")
	require.NoError(t, err)
	assert.Equal(t, []string{"zero", "first", "second", "third"}, trace)

	chain := l.Chain("Op")
	require.Len(t, chain, 4)
	assert.Equal(t, 0, chain[0].Priority)
	assert.Less(t, chain[1].Seq, chain[2].Seq)
}

func TestIntercept_ShortCircuit(t *testing.T) {
	l := newTestLayer()
	originalCalled := false
	downstreamCalled := false
	l.Define("ChatRoomCanLeave", func(Args) any {
		originalCalled = true
		return true
	}, "")

	l.Intercept("ChatRoomCanLeave", 0, func(args Args, next Next) any {
		return false
	})
	l.Intercept("ChatRoomCanLeave", 1, func(args Args, next Next) any {
		downstreamCalled = true
		return next(args)
	})

	got, err := l.Call("ChatRoomCanLeave")
	require.NoError(t, err)
	assert.Equal(t, false, got)
	assert.False(t, originalCalled)
	assert.False(t, downstreamCalled)
}

func TestIntercept_ModifiesArgsAndResult(t *testing.T) {
	l := newTestLayer()
	l.Define("SpeechGarble", func(args Args) any {
		return args[0].(string) + "!"
	}, "")
	l.Intercept("SpeechGarble", 0, func(args Args, next Next) any {
		return "[" + next(Args{"mmph"}).(string) + "]"
	})

	got, err := l.Call("SpeechGarble", "hello")
	require.NoError(t, err)
	assert.Equal(t, "[mmph!]", got)
}

func TestIntercept_NextTwiceRunsDownstreamOnce(t *testing.T) {
	l := newTestLayer()
	calls := 0
	l.Define("Op", func(Args) any {
		calls++
		return calls
	}, "")
	l.Intercept("Op", 0, func(args Args, next Next) any {
		first := next(args)
		second := next(args)
		assert.Equal(t, first, second)
		return second
	})

	got, err := l.Call("Op")
	require.NoError(t, err)
	assert.Equal(t, 1, got)
	assert.Equal(t, 1, calls)
}

func TestIntercept_Reentrant(t *testing.T) {
	l := newTestLayer()
	l.Define("Countdown", func(args Args) any {
		return args[0]
	}, "")
	l.Intercept("Countdown", 0, func(args Args, next Next) any {
		n := args[0].(int)
		if n > 0 {
			res, err := l.Call("Countdown", n-1)
			require.NoError(t, err)
			return res
		}
		return next(args)
	})

	got, err := l.Call("Countdown", 5)
	require.NoError(t, err)
	assert.Equal(t, 0, got)
}

func TestIntercept_DepthLimit(t *testing.T) {
	l := newTestLayer()
	var lastErr error
	l.Define("Loop", func(Args) any { return nil }, "")
	l.Intercept("Loop", 0, func(args Args, next Next) any {
		if _, err := l.Call("Loop"); err != nil {
			lastErr = err
		}
		return nil
	})

	_, err := l.Call("Loop")
	require.NoError(t, err)
	assert.True(t, errors.Is(lastErr, ErrMaxDepth))
}

func TestIntercept_OwnerReplacesInPlace(t *testing.T) {
	l := newTestLayer()
	var trace []string
	l.Define("Op", func(Args) any { return nil }, "")

	l.Intercept("Op", 0, recordingHandler(&trace, "rule-v1"), WithOwner("rule"))
	l.Intercept("Op", 0, recordingHandler(&trace, "other"))
	l.Intercept("Op", 0, recordingHandler(&trace, "rule-v2"), WithOwner("rule"))

	_, err := l.Call("Op")
	require.NoError(t, err)
	assert.Equal(t, []string{"rule-v2", "other"}, trace)
	assert.Len(t, l.Chain("Op"), 2)
}

func TestCall_UnknownOperation(t *testing.T) {
	l := newTestLayer()
	l.Intercept("NotYetDefined", 0, func(args Args, next Next) any { return next(args) })

	_, err := l.Call("NotYetDefined")
	assert.ErrorIs(t, err, ErrUnknownOperation)

	_, err = l.Call("Missing")
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestDefine_KeepsChain(t *testing.T) {
	l := newTestLayer()
	l.Define("Op", func(Args) any { return "v1" }, "")
	l.Intercept("Op", 0, func(args Args, next Next) any { return next(args).(string) + "+hook" })
	l.Define("Op", func(Args) any { return "v2" }, "")

	got, err := l.Call("Op")
	require.NoError(t, err)
	assert.Equal(t, "v2+hook", got)
}
