package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/crazyeights/engine"
	"github.com/jason-s-yu/crazyeights/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreateGet(t *testing.T) {
	m := NewManager(testOptions(0), 0)
	defer m.Close()

	s := m.Create()
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestManagerResumesFromStore verifies a second process picks a game up where
// the first left it.
func TestManagerResumesFromStore(t *testing.T) {
	ctx := context.Background()
	opts := testOptions(0)
	opts.Store = cache.NewMemoryStore(0)

	first := NewManager(opts, 0)
	s := first.Create()
	require.True(t, s.RequestDraw())
	want := s.State()
	first.Close()
	assert.Zero(t, first.Len())

	second := NewManager(opts, 0)
	defer second.Close()
	resumed, err := second.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.NotSame(t, s, resumed)

	got := resumed.State()
	assert.Equal(t, want.PlayerHand, got.PlayerHand)
	assert.Equal(t, want.OpponentHand, got.OpponentHand)
	assert.Equal(t, want.DiscardPile, got.DiscardPile)
	assert.Equal(t, want.Turn, got.Turn)

	again, err := second.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Same(t, resumed, again)
}

// TestManagerResumeRunsPendingOpponent verifies a game stored on the
// computer's turn continues on resume.
func TestManagerResumeRunsPendingOpponent(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	top := engine.NewCard(engine.SuitHearts, engine.RankNine)
	state := tableState(t,
		[]engine.Card{engine.NewCard(engine.SuitClubs, engine.RankTwo)},
		[]engine.Card{engine.NewCard(engine.SuitHearts, engine.RankThree), engine.NewCard(engine.SuitSpades, engine.RankTwo)},
		top, engine.SideOpponent)
	id := uuid.New()
	require.NoError(t, store.Save(ctx, id, state))

	opts := testOptions(0)
	opts.Store = store
	m := NewManager(opts, 0)
	defer m.Close()

	s, err := m.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, engine.SidePlayer, s.State().Turn)
	assert.Len(t, s.State().OpponentHand, 1)
}

func TestManagerRemove(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	opts := testOptions(0)
	opts.Store = store
	m := NewManager(opts, 0)

	s := m.Create()
	require.Equal(t, 1, store.Len())
	require.NoError(t, m.Remove(ctx, s.ID))

	assert.Zero(t, m.Len())
	assert.Zero(t, store.Len())
	assert.False(t, s.RequestDraw(), "removed sessions are closed")
	_, err := m.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// TestManagerSweepEvictsIdleSessions verifies that a session nobody is
// connected to is released once idle, while a connected one stays.
func TestManagerSweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	store := cache.NewMemoryStore(0)
	opts := testOptions(0)
	opts.Store = store
	m := NewManager(opts, time.Minute)
	defer m.Close()

	never := m.Create()
	left := m.Create()
	playing := m.Create()

	_, err := m.Connect(ctx, left.ID)
	require.NoError(t, err)
	m.Disconnect(left.ID)
	_, err = m.Connect(ctx, playing.ID)
	require.NoError(t, err)

	assert.Zero(t, m.Sweep(), "nothing is idle yet")
	assert.Equal(t, 3, m.Len())

	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 2, m.Sweep())
	assert.Equal(t, 1, m.Len())
	assert.False(t, never.RequestDraw(), "evicted sessions are closed")
	assert.False(t, left.RequestDraw())

	got, err := m.Get(ctx, playing.ID)
	require.NoError(t, err)
	assert.Same(t, playing, got)

	// The snapshot outlives the live session, so the game can be resumed.
	resumed, err := m.Get(ctx, left.ID)
	require.NoError(t, err)
	assert.NotSame(t, left, resumed)

	m.Disconnect(playing.ID)
	m.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.Equal(t, 2, m.Sweep(), "playing and the resumed session are both idle now")
	assert.Zero(t, m.Len())
}

// TestManagerSweepExpiresMemorySnapshots verifies the sweep also drops
// expired snapshots from an in-memory store.
func TestManagerSweepExpiresMemorySnapshots(t *testing.T) {
	store := cache.NewMemoryStore(time.Nanosecond)
	opts := testOptions(0)
	opts.Store = store
	m := NewManager(opts, time.Nanosecond)
	defer m.Close()

	m.Create()
	require.Equal(t, 1, store.Len())
	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, store.Len())
	assert.Zero(t, m.Len())
}

func TestManagerZeroIdleNeverEvicts(t *testing.T) {
	m := NewManager(testOptions(0), 0)
	defer m.Close()
	m.Create()
	m.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	assert.Zero(t, m.Sweep())
	assert.Equal(t, 1, m.Len())
}
