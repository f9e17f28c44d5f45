// Package timetable models a course timetabling instance and scores
// candidate schedules against it.
package timetable

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultPenalty is charged once per constraint violation.
const DefaultPenalty = 10

// ErrInvalidProblem is returned when a problem instance cannot be searched.
var ErrInvalidProblem = errors.New("invalid problem instance")

// Course is a session bound to a teacher, class and room with a fixed length.
type Course struct {
	ID        string `json:"courseId" yaml:"courseId"`
	TeacherID string `json:"teacherId" yaml:"teacherId"`
	ClassID   string `json:"classId" yaml:"classId"`
	RoomID    string `json:"roomId" yaml:"roomId"`
	Duration  int    `json:"duration" yaml:"duration"`
}

// Problem is the read-only input of an optimisation run.
type Problem struct {
	Courses      []Course
	TeacherPrefs PreferenceTable
	ClassPrefs   PreferenceTable
	Horizon      int
	Blocked      map[int]bool
	Penalty      int
}

// NewProblem assembles a problem with the default penalty.
func NewProblem(courses []Course, teacherPrefs, classPrefs PreferenceTable, horizon int, blocked []int) *Problem {
	set := make(map[int]bool, len(blocked))
	for _, slot := range blocked {
		set[slot] = true
	}
	return &Problem{
		Courses:      courses,
		TeacherPrefs: teacherPrefs,
		ClassPrefs:   classPrefs,
		Horizon:      horizon,
		Blocked:      set,
		Penalty:      DefaultPenalty,
	}
}

// Validate checks the instance can be encoded and scored.
func (p *Problem) Validate() error {
	if p == nil {
		return fmt.Errorf("%w: problem is nil", ErrInvalidProblem)
	}
	if len(p.Courses) == 0 {
		return fmt.Errorf("%w: at least one course is required", ErrInvalidProblem)
	}
	if p.Horizon <= 0 {
		return fmt.Errorf("%w: horizon must be positive, got %d", ErrInvalidProblem, p.Horizon)
	}
	if p.Penalty <= 0 {
		return fmt.Errorf("%w: penalty must be positive, got %d", ErrInvalidProblem, p.Penalty)
	}
	for _, c := range p.Courses {
		if c.Duration < 1 {
			return fmt.Errorf("%w: course %s has duration %d", ErrInvalidProblem, c.ID, c.Duration)
		}
		if err := checkRow(p.TeacherPrefs, "teacher", c.TeacherID, p.Horizon); err != nil {
			return err
		}
		if err := checkRow(p.ClassPrefs, "class", c.ClassID, p.Horizon); err != nil {
			return err
		}
	}
	if p.UpperBound() < 0 {
		return fmt.Errorf("%w: shortest course (%d) does not fit horizon %d", ErrInvalidProblem, p.MinDuration(), p.Horizon)
	}
	return nil
}

func checkRow(table PreferenceTable, kind, id string, horizon int) error {
	row, ok := table[id]
	if !ok {
		return fmt.Errorf("%w: no %s preferences for %s", ErrInvalidProblem, kind, id)
	}
	if len(row) != horizon {
		return fmt.Errorf("%w: %s %s has %d preferences, want %d", ErrInvalidProblem, kind, id, len(row), horizon)
	}
	return nil
}

// MinDuration is the shortest course duration.
func (p *Problem) MinDuration() int {
	if len(p.Courses) == 0 {
		return 0
	}
	shortest := p.Courses[0].Duration
	for _, c := range p.Courses[1:] {
		if c.Duration < shortest {
			shortest = c.Duration
		}
	}
	return shortest
}

// UpperBound is the largest start any position component may take.
func (p *Problem) UpperBound() float64 {
	return float64(p.Horizon - p.MinDuration())
}

// IsBlocked reports whether slot is globally unavailable.
func (p *Problem) IsBlocked(slot int) bool {
	return p.Blocked[slot]
}

// InRange reports whether slot lies on the timeslot grid.
func (p *Problem) InRange(slot int) bool {
	return slot >= 0 && slot < p.Horizon
}

// BlockedSlots returns the blocked set in ascending order.
func (p *Problem) BlockedSlots() []int {
	slots := make([]int, 0, len(p.Blocked))
	for slot, blocked := range p.Blocked {
		if blocked {
			slots = append(slots, slot)
		}
	}
	sort.Ints(slots)
	return slots
}
