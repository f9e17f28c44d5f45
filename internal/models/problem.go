package models

import (
	"time"

	"github.com/lib/pq"
)

// PreferenceEntity distinguishes teacher and class preference rows.
type PreferenceEntity string

const (
	PreferenceEntityTeacher PreferenceEntity = "teacher"
	PreferenceEntityClass   PreferenceEntity = "class"
)

// ProblemRecord is a stored problem header.
type ProblemRecord struct {
	ID        string        `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Horizon   int           `db:"horizon" json:"horizon"`
	Blocked   pq.Int64Array `db:"blocked_slots" json:"blocked_slots"`
	Penalty   int           `db:"penalty" json:"penalty"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// ProblemCourse is one course of a stored problem.
type ProblemCourse struct {
	ProblemID string `db:"problem_id" json:"problem_id"`
	Position  int    `db:"position" json:"position"`
	CourseID  string `db:"course_id" json:"course_id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	ClassID   string `db:"class_id" json:"class_id"`
	RoomID    string `db:"room_id" json:"room_id"`
	Duration  int    `db:"duration" json:"duration"`
}

// ProblemPreference is a single slot preference of a teacher or class.
type ProblemPreference struct {
	ProblemID  string           `db:"problem_id" json:"problem_id"`
	EntityKind PreferenceEntity `db:"entity_kind" json:"entity_kind"`
	EntityID   string           `db:"entity_id" json:"entity_id"`
	Slot       int              `db:"slot" json:"slot"`
	Score      int              `db:"score" json:"score"`
	Forbidden  bool             `db:"forbidden" json:"forbidden"`
}
