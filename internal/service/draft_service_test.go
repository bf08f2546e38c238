package service

import (
	"context"
	"testing"
	"time"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftService(t *testing.T) {
	f := setupFixture(t)
	store := repository.NewMemoryDraftRepository(time.Hour)
	svc := NewDraftService(store, f.db, config.DraftsConfig{RateLimitRequests: 2, RateLimitWindow: 60}, f.logger)
	ctx := context.Background()

	t.Run("EmptyDraft", func(t *testing.T) {
		d, err := svc.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, "s1", d.SessionID)
		assert.Empty(t, d.Instances)

		_, err = svc.Get(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})

	var first, second string
	t.Run("SameServiceTwice", func(t *testing.T) {
		_, err := svc.AddService(ctx, "s1", 1)
		require.NoError(t, err)
		d, err := svc.AddService(ctx, "s1", 1)
		require.NoError(t, err)

		require.Len(t, d.Instances, 2)
		first, second = d.Instances[0].InstanceID, d.Instances[1].InstanceID
		assert.NotEqual(t, first, second)
		assert.Equal(t, 30, d.Instances[1].Duration)
	})

	t.Run("AssignStaff", func(t *testing.T) {
		d, err := svc.AssignStaff(ctx, "s1", second, f.ana.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), d.Instances[0].StaffID)
		assert.Equal(t, f.ana.ID, d.Instances[1].StaffID)

		instances, assign := d.Sequence()
		assert.Len(t, instances, 2)
		assert.Equal(t, map[string]int64{second: f.ana.ID}, assign)

		_, err = svc.AssignStaff(ctx, "s1", "missing", f.ana.ID)
		assert.ErrorIs(t, err, ErrUnknownInstance)
		_, err = svc.AssignStaff(ctx, "s1", first, 999)
		assert.ErrorIs(t, err, database.ErrNotFound)
	})

	t.Run("RemoveInstance", func(t *testing.T) {
		d, err := svc.RemoveInstance(ctx, "s1", first)
		require.NoError(t, err)
		require.Len(t, d.Instances, 1)
		assert.Equal(t, second, d.Instances[0].InstanceID)

		reqs := Requests(d)
		require.Len(t, reqs, 1)
		assert.Equal(t, f.ana.ID, reqs[0].StaffID)
	})

	t.Run("RejectsInactiveService", func(t *testing.T) {
		_, err := svc.AddService(ctx, "s1", 3)
		assert.ErrorIs(t, err, ErrInactive)
	})

	t.Run("SetDateAndClear", func(t *testing.T) {
		d, err := svc.SetDate(ctx, "s1", testDay)
		require.NoError(t, err)
		assert.Equal(t, testDay, d.Date)

		require.NoError(t, svc.Clear(ctx, "s1"))
		d, err = svc.Get(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, d.Instances)
	})

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			ok, err := svc.Allow(ctx, "rl")
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := svc.Allow(ctx, "rl")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
