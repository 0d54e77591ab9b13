package milestones

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/smokefree/internal/cache"
	"github.com/charlesng35/smokefree/internal/notifications"
)

func newSignedInStore(t *testing.T) *notifications.Store {
	t.Helper()
	store := notifications.NewStore(cache.NewMemoryStore())
	store.Load(context.Background(), "U1")
	return store
}

func TestTableIsAscending(t *testing.T) {
	require.Len(t, table, 8)
	days := make([]int, len(table))
	for i, m := range table {
		days[i] = m.Days
	}
	assert.Equal(t, []int{1, 3, 7, 14, 30, 90, 180, 365}, days)
}

func TestLookupIsExact(t *testing.T) {
	m, ok := Lookup(7)
	require.True(t, ok)
	assert.Equal(t, "One Week Smoke-Free!", m.Title)

	for _, days := range []int{-1, 0, 2, 8, 29, 366} {
		_, ok := Lookup(days)
		assert.False(t, ok, days)
	}
}

func TestNext(t *testing.T) {
	m, ok := Next(0)
	require.True(t, ok)
	assert.Equal(t, 1, m.Days)

	m, ok = Next(7)
	require.True(t, ok)
	assert.Equal(t, 14, m.Days)

	_, ok = Next(365)
	assert.False(t, ok)
}

func TestCheckMilestonesEmitsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	store := newSignedInStore(t)
	notifier := NewNotifier(store)

	assert.True(t, notifier.CheckMilestones(ctx, 7))
	list := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, "One Week Smoke-Free!", list[0].Title)
	assert.Equal(t, notifications.TypeMilestone, list[0].Type)

	assert.False(t, notifier.CheckMilestones(ctx, 7))
	assert.Len(t, store.List(), 1)
}

func TestCheckMilestonesIgnoresNonMilestoneDays(t *testing.T) {
	ctx := context.Background()
	store := newSignedInStore(t)
	notifier := NewNotifier(store)

	assert.False(t, notifier.CheckMilestones(ctx, 8))
	assert.False(t, notifier.CheckMilestones(ctx, 0))
	assert.Empty(t, store.List())
}

func TestCheckMilestonesWithoutUserRetries(t *testing.T) {
	ctx := context.Background()
	store := notifications.NewStore(cache.NewMemoryStore())
	notifier := NewNotifier(store)

	assert.False(t, notifier.CheckMilestones(ctx, 3))

	store.Load(ctx, "U1")
	assert.True(t, notifier.CheckMilestones(ctx, 3))
}
