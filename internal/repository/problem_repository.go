package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

// maxBindParams is the Postgres limit on parameters in one statement.
const maxBindParams = 65535

const (
	courseColumns     = 7
	preferenceColumns = 6
)

// ProblemRepository stores timetabling instances across three tables:
// problems, problem_courses and problem_preferences.
type ProblemRepository struct {
	db        *sqlx.DB
	bindLimit int
}

// NewProblemRepository constructs the repository.
func NewProblemRepository(db *sqlx.DB) *ProblemRepository {
	return &ProblemRepository{db: db, bindLimit: maxBindParams}
}

// Load assembles a problem instance. Slots without a stored preference
// score zero.
func (r *ProblemRepository) Load(ctx context.Context, id string) (*timetable.Problem, error) {
	const headerQuery = `SELECT id, name, horizon, blocked_slots, penalty, created_at FROM problems WHERE id = $1`
	var header models.ProblemRecord
	if err := r.db.GetContext(ctx, &header, headerQuery, id); err != nil {
		return nil, fmt.Errorf("get problem: %w", err)
	}

	const coursesQuery = `SELECT problem_id, position, course_id, teacher_id, class_id, room_id, duration
FROM problem_courses WHERE problem_id = $1 ORDER BY position ASC`
	var rows []models.ProblemCourse
	if err := r.db.SelectContext(ctx, &rows, coursesQuery, id); err != nil {
		return nil, fmt.Errorf("list problem courses: %w", err)
	}

	const prefsQuery = `SELECT problem_id, entity_kind, entity_id, slot, score, forbidden
FROM problem_preferences WHERE problem_id = $1 ORDER BY entity_kind, entity_id, slot`
	var prefs []models.ProblemPreference
	if err := r.db.SelectContext(ctx, &prefs, prefsQuery, id); err != nil {
		return nil, fmt.Errorf("list problem preferences: %w", err)
	}

	courses := make([]timetable.Course, len(rows))
	for i, c := range rows {
		courses[i] = timetable.Course{ID: c.CourseID, TeacherID: c.TeacherID, ClassID: c.ClassID, RoomID: c.RoomID, Duration: c.Duration}
	}

	teachers := timetable.PreferenceTable{}
	classes := timetable.PreferenceTable{}
	for _, p := range prefs {
		table := teachers
		if p.EntityKind == models.PreferenceEntityClass {
			table = classes
		}
		row, ok := table[p.EntityID]
		if !ok {
			row = timetable.PreferencesFromScores(make([]int, header.Horizon))
			table[p.EntityID] = row
		}
		if p.Slot < 0 || p.Slot >= header.Horizon {
			continue
		}
		if p.Forbidden {
			row[p.Slot] = timetable.Forbidden()
		} else {
			row[p.Slot] = timetable.PreferenceFromScore(p.Score)
		}
	}

	blocked := make([]int, len(header.Blocked))
	for i, slot := range header.Blocked {
		blocked[i] = int(slot)
	}
	problem := timetable.NewProblem(courses, teachers, classes, header.Horizon, blocked)
	problem.Penalty = header.Penalty
	return problem, nil
}

// Save stores a problem in one transaction and returns its id.
func (r *ProblemRepository) Save(ctx context.Context, name string, problem *timetable.Problem) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	id, err := r.saveTx(ctx, tx, name, problem)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit problem: %w", err)
	}
	return id, nil
}

func (r *ProblemRepository) saveTx(ctx context.Context, tx *sqlx.Tx, name string, problem *timetable.Problem) (string, error) {
	id := uuid.NewString()
	blocked := problem.BlockedSlots()
	const insertProblem = `INSERT INTO problems (id, name, horizon, blocked_slots, penalty, created_at) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, insertProblem, id, name, problem.Horizon, pq.Array(blocked), problem.Penalty, time.Now().UTC()); err != nil {
		return "", fmt.Errorf("insert problem: %w", err)
	}

	courses := make([]models.ProblemCourse, len(problem.Courses))
	for i, c := range problem.Courses {
		courses[i] = models.ProblemCourse{ProblemID: id, Position: i, CourseID: c.ID, TeacherID: c.TeacherID, ClassID: c.ClassID, RoomID: c.RoomID, Duration: c.Duration}
	}
	if len(courses) > 0 {
		const insertCourses = `INSERT INTO problem_courses (problem_id, position, course_id, teacher_id, class_id, room_id, duration)
VALUES (:problem_id, :position, :course_id, :teacher_id, :class_id, :room_id, :duration)`
		if err := execBatches(ctx, tx, insertCourses, courses, r.bindLimit/courseColumns); err != nil {
			return "", fmt.Errorf("insert problem courses: %w", err)
		}
	}

	prefs := preferenceRows(id, models.PreferenceEntityTeacher, problem.TeacherPrefs)
	prefs = append(prefs, preferenceRows(id, models.PreferenceEntityClass, problem.ClassPrefs)...)
	if len(prefs) > 0 {
		const insertPrefs = `INSERT INTO problem_preferences (problem_id, entity_kind, entity_id, slot, score, forbidden)
VALUES (:problem_id, :entity_kind, :entity_id, :slot, :score, :forbidden)`
		if err := execBatches(ctx, tx, insertPrefs, prefs, r.bindLimit/preferenceColumns); err != nil {
			return "", fmt.Errorf("insert problem preferences: %w", err)
		}
	}
	return id, nil
}

// execBatches runs a multi-row named insert in slices of at most size rows.
func execBatches[T any](ctx context.Context, tx *sqlx.Tx, query string, rows []T, size int) error {
	if size < 1 {
		size = 1
	}
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}

// preferenceRows flattens a table in a stable entity order.
func preferenceRows(problemID string, kind models.PreferenceEntity, table timetable.PreferenceTable) []models.ProblemPreference {
	ids := make([]string, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.ProblemPreference
	for _, id := range ids {
		for slot, pref := range table[id] {
			out = append(out, models.ProblemPreference{
				ProblemID:  problemID,
				EntityKind: kind,
				EntityID:   id,
				Slot:       slot,
				Score:      pref.Raw(),
				Forbidden:  pref.IsForbidden(),
			})
		}
	}
	return out
}
