package timetable

import (
	"encoding/json"
	"math"
)

// Start is the resolved start of a schedule entry: either a slot or the
// infeasible marker.
type Start struct {
	slot     int
	feasible bool
}

// Infeasible marks an entry whose placement violated range or blocked slots.
var Infeasible = Start{}

// At returns a feasible start at slot.
func At(slot int) Start {
	return Start{slot: slot, feasible: true}
}

// Slot returns the start slot and false for the infeasible marker.
func (s Start) Slot() (int, bool) {
	return s.slot, s.feasible
}

// IsInfeasible reports whether s is the infeasible marker.
func (s Start) IsInfeasible() bool { return !s.feasible }

// MarshalJSON encodes the infeasible marker as null.
func (s Start) MarshalJSON() ([]byte, error) {
	if !s.feasible {
		return []byte("null"), nil
	}
	return json.Marshal(s.slot)
}

// UnmarshalJSON decodes null as the infeasible marker.
func (s *Start) UnmarshalJSON(data []byte) error {
	var slot *int
	if err := json.Unmarshal(data, &slot); err != nil {
		return err
	}
	if slot == nil {
		*s = Infeasible
		return nil
	}
	*s = At(*slot)
	return nil
}

// Entry is one course placed on the grid.
type Entry struct {
	CourseID  string `json:"courseId"`
	TeacherID string `json:"teacherId"`
	ClassID   string `json:"classId"`
	RoomID    string `json:"roomId"`
	Start     Start  `json:"start"`
	Duration  int    `json:"duration"`
}

// Schedule holds one entry per course in problem order.
type Schedule []Entry

// Clone returns an independent copy.
func (s Schedule) Clone() Schedule {
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// Positions maps the schedule back to a position vector; infeasible
// entries map to slot 0.
func (s Schedule) Positions() []float64 {
	pos := make([]float64, len(s))
	for i, e := range s {
		if slot, ok := e.Start.Slot(); ok {
			pos[i] = float64(slot)
		}
	}
	return pos
}

// BuildSchedule rounds every position component to a start slot and marks
// placements that leave the grid or touch a blocked slot as infeasible.
func BuildSchedule(p *Problem, position []float64) Schedule {
	schedule := make(Schedule, len(p.Courses))
	for i, c := range p.Courses {
		start := int(math.RoundToEven(position[i]))
		entry := Entry{
			CourseID:  c.ID,
			TeacherID: c.TeacherID,
			ClassID:   c.ClassID,
			RoomID:    c.RoomID,
			Start:     At(start),
			Duration:  c.Duration,
		}
		for ts := start; ts < start+c.Duration; ts++ {
			if !p.InRange(ts) || p.IsBlocked(ts) {
				entry.Start = Infeasible
				break
			}
		}
		schedule[i] = entry
	}
	return schedule
}
