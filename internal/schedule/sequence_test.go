package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSlots(t *testing.T) {
	slots := DefaultSlots()
	require.Len(t, slots, 47)
	assert.Equal(t, "09:00", slots[0].String())
	assert.Equal(t, "09:15", slots[1].String())
	assert.Equal(t, "20:30", slots[46].String())

	assert.Nil(t, CandidateSlots(MustClock("10:00"), MustClock("09:00"), 15))
	assert.Nil(t, CandidateSlots(MustClock("09:00"), MustClock("10:00"), 0))
	assert.Equal(t, []string{"09:00", "09:30", "10:00"}, Labels(CandidateSlots(MustClock("09:00"), MustClock("10:00"), 30)))
}

func TestAvailableStartTimes(t *testing.T) {
	slots := DefaultSlots()

	t.Run("NoInstancesReturnsAllSlots", func(t *testing.T) {
		got := AvailableStartTimes(nil, nil, []Booking{booking(1, "09:00", "20:30")}, slots)
		assert.Equal(t, slots, got)

		got[0] = MustClock("00:00")
		assert.Equal(t, "09:00", slots[0].String(), "result must not alias the input")
	})

	t.Run("SingleServiceAroundBooking", func(t *testing.T) {
		instances := []ServiceInstance{{InstanceID: "a", ServiceID: 1, Duration: 30}}
		assign := map[string]int64{"a": 7}
		existing := []Booking{booking(7, "09:00", "09:45")}

		got := Labels(AvailableStartTimes(instances, assign, existing, slots))
		for _, excluded := range []string{"09:00", "09:15", "09:30"} {
			assert.NotContains(t, got, excluded)
		}
		assert.Contains(t, got, "09:45")
		assert.Equal(t, "09:45", got[0])
		assert.Len(t, got, 44)
	})

	t.Run("TwoServicesSameStaffFreeDay", func(t *testing.T) {
		instances := []ServiceInstance{
			{InstanceID: "a", ServiceID: 1, Duration: 30},
			{InstanceID: "b", ServiceID: 2, Duration: 45},
		}
		assign := map[string]int64{"a": 3, "b": 3}

		got := AvailableStartTimes(instances, assign, nil, slots)
		assert.Equal(t, slots, got)

		bounded := WithinClosing(got, instances, MustClock("21:00"))
		assert.Equal(t, "19:45", bounded[len(bounded)-1].String())
		for _, s := range bounded {
			assert.LessOrEqual(t, s.Add(75), MustClock("21:00"))
		}
	})

	t.Run("WholeDayBooked", func(t *testing.T) {
		instances := []ServiceInstance{
			{InstanceID: "a", Duration: 30},
			{InstanceID: "b", Duration: 45},
		}
		assign := map[string]int64{"a": 3, "b": 3}
		existing := []Booking{booking(3, "08:00", "22:00")}

		assert.Empty(t, AvailableStartTimes(instances, assign, existing, slots))
	})

	t.Run("MissingAssignmentRejectsEverything", func(t *testing.T) {
		instances := []ServiceInstance{
			{InstanceID: "a", Duration: 30},
			{InstanceID: "b", Duration: 30},
		}
		assign := map[string]int64{"a": 3}

		assert.Empty(t, AvailableStartTimes(instances, assign, nil, slots))
	})

	t.Run("MissingDurationRejectsEverything", func(t *testing.T) {
		instances := []ServiceInstance{{InstanceID: "a", Duration: 0}}
		assert.Empty(t, AvailableStartTimes(instances, map[string]int64{"a": 1}, nil, slots))
	})

	t.Run("SecondServiceBlockedByOtherStaff", func(t *testing.T) {
		instances := []ServiceInstance{
			{InstanceID: "cut", Duration: 30},
			{InstanceID: "colour", Duration: 60},
		}
		assign := map[string]int64{"cut": 1, "colour": 2}
		existing := []Booking{booking(2, "10:00", "11:00")}

		got := Labels(AvailableStartTimes(instances, assign, existing, slots))
		// colour starts 30 minutes after the cut and must clear 10:00-11:00
		for _, excluded := range []string{"09:00", "09:30", "10:00", "10:15"} {
			assert.NotContains(t, got, excluded)
		}
		assert.Equal(t, "10:30", got[0])
	})

	t.Run("Idempotent", func(t *testing.T) {
		instances := []ServiceInstance{{InstanceID: "a", Duration: 60}}
		assign := map[string]int64{"a": 1}
		existing := []Booking{booking(1, "12:00", "13:00"), booking(1, "15:15", "16:00")}

		first := AvailableStartTimes(instances, assign, existing, slots)
		second := AvailableStartTimes(instances, assign, existing, slots)
		assert.Equal(t, first, second)
	})
}

func TestPlanSequence(t *testing.T) {
	instances := []ServiceInstance{
		{InstanceID: "a", ServiceID: 10, Duration: 30},
		{InstanceID: "b", ServiceID: 10, Duration: 45},
	}
	assign := map[string]int64{"a": 1, "b": 2}

	plan, ok := PlanSequence(MustClock("10:00"), instances, assign, nil)
	require.True(t, ok)
	require.Len(t, plan, 2)
	assert.Equal(t, "10:00", plan[0].Start.String())
	assert.Equal(t, "10:30", plan[0].End.String())
	assert.Equal(t, int64(1), plan[0].StaffID)
	assert.Equal(t, "10:30", plan[1].Start.String())
	assert.Equal(t, "11:15", plan[1].End.String())
	assert.Equal(t, int64(2), plan[1].StaffID)

	_, ok = PlanSequence(MustClock("10:00"), instances, assign, []Booking{booking(2, "11:00", "11:30")})
	assert.False(t, ok)
}

func TestWorkingStaff(t *testing.T) {
	friday := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	staff := []Staff{{ID: 1, Name: "Ana"}, {ID: 2, Name: "Ben"}, {ID: 3, Name: "Cleo"}, {ID: 4, Name: "Dev"}}
	shifts := []Shift{
		{StaffID: 3, Recurring: true, Weekday: time.Friday},
		{StaffID: 1, Recurring: true, Weekday: time.Friday},
		{StaffID: 2, Date: friday.Add(14 * time.Hour)},
		{StaffID: 4, Recurring: true, Weekday: time.Monday},
		{StaffID: 4, Date: friday.AddDate(0, 0, 1)},
	}
	absences := []Absence{{StaffID: 3, Date: friday.Add(9 * time.Hour), Type: "holiday"}}

	got := WorkingStaff(friday, staff, shifts, absences)
	require.Len(t, got, 2)
	assert.Equal(t, "Ana", got[0].Name)
	assert.Equal(t, "Ben", got[1].Name)

	assert.Empty(t, WorkingStaff(friday, staff, nil, nil))
}
