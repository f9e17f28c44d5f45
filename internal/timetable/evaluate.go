package timetable

import (
	"fmt"

	"go.uber.org/multierr"
)

// ViolationKind classifies a constraint breach.
type ViolationKind string

const (
	ViolationInfeasible    ViolationKind = "INFEASIBLE"
	ViolationOutOfRange    ViolationKind = "OUT_OF_RANGE"
	ViolationBlocked       ViolationKind = "BLOCKED_SLOT"
	ViolationTeacherClash  ViolationKind = "TEACHER_CLASH"
	ViolationClassClash    ViolationKind = "CLASS_CLASH"
	ViolationRoomClash     ViolationKind = "ROOM_CLASH"
	ViolationForbiddenSlot ViolationKind = "FORBIDDEN_SLOT"
)

// Violation is a single breach found while scanning a schedule.
type Violation struct {
	Kind     ViolationKind `json:"kind"`
	CourseID string        `json:"courseId"`
	Entity   string        `json:"entity,omitempty"`
	Slot     int           `json:"slot"`
}

func (v Violation) Error() string {
	if v.Entity != "" {
		return fmt.Sprintf("%s: course %s (%s) at slot %d", v.Kind, v.CourseID, v.Entity, v.Slot)
	}
	return fmt.Sprintf("%s: course %s at slot %d", v.Kind, v.CourseID, v.Slot)
}

// Score splits a fitness value into its preference and penalty terms.
// Forbidden preferences are charged inside Preference at minus the penalty
// constant; Penalty only counts constraint violations.
type Score struct {
	Preference int         `json:"preference"`
	Penalty    int         `json:"penalty"`
	Violations []Violation `json:"violations,omitempty"`
}

// Total is the fitness used to steer the search.
func (s Score) Total() int {
	return s.Preference - s.Penalty
}

// usage tracks which slots each resource already claims.
type usage map[string]map[int]bool

func (u usage) claim(id string, slot int) bool {
	slots, ok := u[id]
	if !ok {
		slots = make(map[int]bool)
		u[id] = slots
	}
	if slots[slot] {
		return false
	}
	slots[slot] = true
	return true
}

// Evaluate scores a schedule. It accepts infeasible schedules and counts
// every violation instead of stopping at the first.
func Evaluate(p *Problem, schedule Schedule) Score {
	return evaluate(p, schedule, true)
}

func evaluate(p *Problem, schedule Schedule, record bool) Score {
	teachers, classes, rooms := usage{}, usage{}, usage{}
	var score Score

	charge := func(kind ViolationKind, e Entry, entity string, slot int) {
		score.Penalty += p.Penalty
		if record {
			score.Violations = append(score.Violations, Violation{Kind: kind, CourseID: e.CourseID, Entity: entity, Slot: slot})
		}
	}

	for _, e := range schedule {
		start, ok := e.Start.Slot()
		if !ok {
			charge(ViolationInfeasible, e, "", -1)
			continue
		}
		for ts := start; ts < start+e.Duration; ts++ {
			if !p.InRange(ts) {
				charge(ViolationOutOfRange, e, "", ts)
				continue
			}
			if p.IsBlocked(ts) {
				charge(ViolationBlocked, e, "", ts)
			}
			if !teachers.claim(e.TeacherID, ts) {
				charge(ViolationTeacherClash, e, e.TeacherID, ts)
			}
			if !classes.claim(e.ClassID, ts) {
				charge(ViolationClassClash, e, e.ClassID, ts)
			}
			if !rooms.claim(e.RoomID, ts) {
				charge(ViolationRoomClash, e, e.RoomID, ts)
			}
			score.Preference += preferenceAt(p, p.TeacherPrefs, e.TeacherID, ts)
			score.Preference += preferenceAt(p, p.ClassPrefs, e.ClassID, ts)
		}
	}
	return score
}

func preferenceAt(p *Problem, table PreferenceTable, entity string, slot int) int {
	if value, ok := table.At(entity, slot).Score(); ok {
		return value
	}
	return -p.Penalty
}

// Fitness equals Evaluate(p, schedule).Total() without collecting violations.
func Fitness(p *Problem, schedule Schedule) int {
	return evaluate(p, schedule, false).Total()
}

// Check returns every hard-constraint violation of the schedule combined
// into one error, or nil when the schedule is valid.
func Check(p *Problem, schedule Schedule) error {
	var err error
	for _, v := range Evaluate(p, schedule).Violations {
		err = multierr.Append(err, v)
	}
	return err
}

// IsValid reports whether the schedule is free of infeasible entries,
// out-of-range or blocked slots and resource double-booking.
func IsValid(p *Problem, schedule Schedule) bool {
	return Check(p, schedule) == nil
}

// ForbiddenHits lists occupied slots whose teacher or class preference is
// forbidden. These are soft breaches and do not affect validity.
func ForbiddenHits(p *Problem, schedule Schedule) []Violation {
	var hits []Violation
	for _, e := range schedule {
		start, ok := e.Start.Slot()
		if !ok {
			continue
		}
		for ts := start; ts < start+e.Duration; ts++ {
			if !p.InRange(ts) {
				continue
			}
			if p.TeacherPrefs.At(e.TeacherID, ts).IsForbidden() {
				hits = append(hits, Violation{Kind: ViolationForbiddenSlot, CourseID: e.CourseID, Entity: e.TeacherID, Slot: ts})
			}
			if p.ClassPrefs.At(e.ClassID, ts).IsForbidden() {
				hits = append(hits, Violation{Kind: ViolationForbiddenSlot, CourseID: e.CourseID, Entity: e.ClassID, Slot: ts})
			}
		}
	}
	return hits
}
