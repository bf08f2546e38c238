package database

import (
	"context"
	"sync"
	"testing"
	"time"

	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookConcurrently runs every group in its own goroutine and returns the
// number of commits and the errors of the rest.
func bookConcurrently(db *DB, groups [][]*models.Booking) (int, []error) {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed int
		failures  []error
	)
	for _, g := range groups {
		wg.Add(1)
		go func(g []*models.Booking) {
			defer wg.Done()
			err := db.CreateBookingsWithLock(context.Background(), g)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			committed++
		}(g)
	}
	wg.Wait()
	return committed, failures
}

func TestConcurrentBooking(t *testing.T) {
	t.Run("OverlappingSingleStaff", func(t *testing.T) {
		db := fileDB(t)

		// все хотят мастера 7 около 10:00, сдвиг до 9 минут
		var groups [][]*models.Booking
		for i := 0; i < 10; i++ {
			b := newBooking(7, "10:00", 45)
			b.Start = b.Start.Add(time.Duration(i) * time.Minute)
			b.ClientID = int64(i)
			groups = append(groups, []*models.Booking{b})
		}

		committed, failures := bookConcurrently(db, groups)
		assert.Equal(t, 1, committed, "only one overlapping booking may commit")
		for _, err := range failures {
			assert.ErrorIs(t, err, ErrSlotTaken)
		}

		bookings, err := db.GetBookingsForDay(context.Background(), testDay)
		require.NoError(t, err)
		assert.Len(t, bookings, 1)
	})

	t.Run("SequencesSharingSecondStaff", func(t *testing.T) {
		db := fileDB(t)

		// cut with staff 1..4, then colour with staff 9 right after; only
		// one sequence can have staff 9 at 10:30
		var groups [][]*models.Booking
		for staff := int64(1); staff <= 4; staff++ {
			first := newBooking(staff, "10:00", 30)
			second := newBooking(9, "10:30", 60)
			second.GroupID = first.GroupID
			groups = append(groups, []*models.Booking{first, second})
		}

		committed, failures := bookConcurrently(db, groups)
		assert.Equal(t, 1, committed)
		assert.Len(t, failures, 3)

		bookings, err := db.GetBookingsForDay(context.Background(), testDay)
		require.NoError(t, err)
		assert.Len(t, bookings, 2, "losing sequences must leave no partial rows")
	})

	t.Run("DisjointStaff", func(t *testing.T) {
		db := fileDB(t)

		var groups [][]*models.Booking
		for staff := int64(1); staff <= 6; staff++ {
			groups = append(groups, []*models.Booking{newBooking(staff, "11:00", 45)})
		}

		committed, failures := bookConcurrently(db, groups)
		assert.Equal(t, 6, committed)
		assert.Empty(t, failures)
	})
}
