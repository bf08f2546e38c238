package schedule

// ServiceInstance is one selected occurrence of a service in a booking request.
// The same service may appear several times under different instance ids.
type ServiceInstance struct {
	InstanceID string
	ServiceID  int64
	Duration   int
}

// PlannedService is a service instance placed at a concrete interval.
type PlannedService struct {
	ServiceInstance
	StaffID int64
	Start   Clock
	End     Clock
}

// PlanSequence places instances back to back starting at start. It returns false
// if any instance lacks a staff assignment or a duration, or collides with an
// existing booking of its assigned staff member.
func PlanSequence(start Clock, instances []ServiceInstance, assignments map[string]int64, bookings []Booking) ([]PlannedService, bool) {
	plan := make([]PlannedService, 0, len(instances))
	cursor := start
	for _, inst := range instances {
		staffID := assignments[inst.InstanceID]
		if staffID == 0 || inst.Duration <= 0 {
			return nil, false
		}
		if !IsSlotAvailable(cursor, staffID, bookings, inst.Duration) {
			return nil, false
		}
		end := cursor.Add(inst.Duration)
		plan = append(plan, PlannedService{
			ServiceInstance: inst,
			StaffID:         staffID,
			Start:           cursor,
			End:             end,
		})
		cursor = end
	}
	return plan, true
}

// AvailableStartTimes filters candidates down to the start times from which every
// instance can be scheduled back to back without clashing with its staff member's
// existing bookings. Candidate order is preserved. With no instances the
// candidates are returned unchanged.
func AvailableStartTimes(instances []ServiceInstance, assignments map[string]int64, bookings []Booking, candidates []Clock) []Clock {
	if len(instances) == 0 {
		return append([]Clock(nil), candidates...)
	}

	out := make([]Clock, 0, len(candidates))
	for _, s := range candidates {
		if _, ok := PlanSequence(s, instances, assignments, bookings); ok {
			out = append(out, s)
		}
	}
	return out
}

// TotalDuration sums the durations of instances.
func TotalDuration(instances []ServiceInstance) int {
	total := 0
	for _, inst := range instances {
		total += inst.Duration
	}
	return total
}

// WithinClosing keeps the starts whose full sequence ends no later than closing.
func WithinClosing(starts []Clock, instances []ServiceInstance, closing Clock) []Clock {
	total := TotalDuration(instances)
	out := make([]Clock, 0, len(starts))
	for _, s := range starts {
		if s.Add(total) <= closing {
			out = append(out, s)
		}
	}
	return out
}
