package schedule

// Default operating hours used when no configuration overrides them.
const (
	DefaultOpen     = Clock(9 * 60)
	DefaultLastSlot = Clock(20*60 + 30)
	DefaultStep     = 15
)

// CandidateSlots enumerates start times from first to last inclusive, step minutes apart.
func CandidateSlots(first, last Clock, step int) []Clock {
	if step <= 0 || last < first {
		return nil
	}

	slots := make([]Clock, 0, int(last-first)/step+1)
	for c := first; c <= last; c = c.Add(step) {
		slots = append(slots, c)
	}
	return slots
}

// DefaultSlots returns the 15 minute labels from 09:00 to 20:30.
func DefaultSlots() []Clock {
	return CandidateSlots(DefaultOpen, DefaultLastSlot, DefaultStep)
}

// Labels formats clocks as "HH:MM" strings.
func Labels(clocks []Clock) []string {
	out := make([]string, len(clocks))
	for i, c := range clocks {
		out[i] = c.String()
	}
	return out
}
