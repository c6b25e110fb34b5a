package appointment

import "time"

// Availability window offered to patients.
var (
	SlotWindowStart = NewTimeOfDay(9, 0)
	SlotWindowEnd   = NewTimeOfDay(17, 0)
)

const SlotStride = 30 * time.Minute

// CandidateSlots lists every bookable time of day in the window, in order.
func CandidateSlots() []TimeOfDay {
	var slots []TimeOfDay
	for t := SlotWindowStart; t.Before(SlotWindowEnd); t = t.Add(SlotStride) {
		slots = append(slots, t)
	}
	return slots
}

// SubtractOccupied removes exact matches of occupied from candidates and
// keeps candidate order. Occupied entries outside the window are ignored.
func SubtractOccupied(candidates, occupied []TimeOfDay) []TimeOfDay {
	taken := make(map[TimeOfDay]struct{}, len(occupied))
	for _, o := range occupied {
		taken[o] = struct{}{}
	}

	free := make([]TimeOfDay, 0, len(candidates))
	seen := make(map[TimeOfDay]struct{}, len(candidates))
	for _, c := range candidates {
		if _, ok := taken[c]; ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		free = append(free, c)
	}
	return free
}
