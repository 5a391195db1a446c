package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/mida-chat/pkg/llm"
	"github.com/kart-io/mida-chat/pkg/utils/id"
)

func TestNewSessionGreeting(t *testing.T) {
	s := NewSession("abc")
	turns := s.All()
	require.Len(t, turns, 1)
	assert.Equal(t, llm.RoleAssistant, turns[0].Role)
	assert.Equal(t, Greeting, turns[0].Text)
	assert.Equal(t, "abc", s.ID())
	assert.Empty(t, s.Pairs())
	assert.Zero(t, s.Questions())
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionAppend(t *testing.T) {
	s := NewSession("abc")
	before := s.All()

	added := []Turn{
		{Role: llm.RoleUser, Text: "q1"},
		{Role: llm.RoleAssistant, Text: "a1"},
	}
	s.Append(added...)

	after := s.All()
	require.Len(t, after, len(before)+len(added))
	assert.Equal(t, before, after[:len(before)])
	assert.Equal(t, "q1", after[1].Text)
	assert.Equal(t, "a1", after[2].Text)

	// All 返回副本
	after[0].Text = "changed"
	assert.Equal(t, Greeting, s.All()[0].Text)
}

func TestSessionPairs(t *testing.T) {
	s := NewSession("abc")
	long := strings.Repeat("界", 60)
	s.Append(Turn{Role: llm.RoleUser, Text: "What is MIDA?"}, Turn{Role: llm.RoleAssistant, Text: "An agency."})
	s.Append(Turn{Role: llm.RoleUser, Text: long}, Turn{Role: llm.RoleAssistant, Text: "ok"})

	pairs := s.Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, Exchange{Index: 1, Label: "Question 1: What is MIDA?...", Question: "What is MIDA?", Answer: "An agency."}, pairs[0])
	assert.Equal(t, 2, pairs[1].Index)
	assert.Equal(t, "Question 2: "+strings.Repeat("界", 50)+"...", pairs[1].Label)
	assert.Equal(t, 2, s.Questions())
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(0)
	defer func() { _ = st.Close() }()

	s1, err := st.Create(ctx)
	require.NoError(t, err)
	assert.True(t, id.IsULID(s1.ID()))

	got, err := st.Get(ctx, s1.ID())
	require.NoError(t, err)
	assert.Same(t, s1, got)

	_, err = st.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	same, err := st.GetOrCreate(ctx, s1.ID())
	require.NoError(t, err)
	assert.Same(t, s1, same)

	fresh, err := st.GetOrCreate(ctx, "stale-cookie")
	require.NoError(t, err)
	assert.NotEqual(t, "stale-cookie", fresh.ID())
	assert.Equal(t, 2, st.Count())

	require.NoError(t, st.Close())
	_, err = st.Create(ctx)
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestMemorySessionStoreSweep(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(time.Hour)
	defer func() { _ = st.Close() }()

	idle, err := st.Create(ctx)
	require.NoError(t, err)
	busy, err := st.Create(ctx)
	require.NoError(t, err)
	require.True(t, busy.tryBegin())

	future := time.Now().Add(2 * time.Hour)
	assert.Equal(t, 1, st.sweep(future))
	assert.Equal(t, 1, st.Count())

	_, err = st.Get(ctx, idle.ID())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = st.Get(ctx, busy.ID())
	assert.NoError(t, err)

	assert.Zero(t, st.sweep(time.Now()))
}

func TestMemorySessionStoreGetRacingSweep(t *testing.T) {
	ctx := context.Background()
	st := NewMemorySessionStore(time.Hour)
	defer func() { _ = st.Close() }()

	for i := 0; i < 200; i++ {
		sess, err := st.Create(ctx)
		require.NoError(t, err)
		// 刚好处在过期边界上
		sess.mu.Lock()
		sess.lastActive = time.Now().Add(-time.Hour + time.Millisecond)
		sess.mu.Unlock()

		done := make(chan struct{})
		go func() {
			defer close(done)
			st.sweep(time.Now())
		}()
		got, err := st.Get(ctx, sess.ID())
		<-done

		if err != nil {
			assert.ErrorIs(t, err, ErrSessionNotFound)
			continue
		}
		// Get 成功返回的会话必须仍在存储中
		again, err := st.Get(ctx, sess.ID())
		require.NoError(t, err, "session %d evicted after Get", i)
		assert.Same(t, got, again)
	}
}

func TestSweepInterval(t *testing.T) {
	assert.Equal(t, time.Minute, sweepInterval(24*time.Hour))
	assert.Equal(t, 5*time.Second, sweepInterval(10*time.Second))
	assert.Equal(t, time.Second, sweepInterval(time.Millisecond))
}

func TestTurnStateString(t *testing.T) {
	assert.Equal(t, "Idle", StateIdle.String())
	assert.Equal(t, "AwaitingUserInput", StateAwaitingUserInput.String())
	assert.Equal(t, "Retrieving", StateRetrieving.String())
	assert.Equal(t, "Generating", StateGenerating.String())
	assert.Equal(t, "Sanitizing", StateSanitizing.String())
	assert.Equal(t, "Rendered", StateRendered.String())
	assert.Equal(t, "TurnState(42)", TurnState(42).String())
}
