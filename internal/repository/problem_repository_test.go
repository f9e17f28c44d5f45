package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

func TestProblemRepositoryLoad(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProblemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, horizon, blocked_slots, penalty, created_at FROM problems WHERE id = $1")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "horizon", "blocked_slots", "penalty", "created_at"}).
			AddRow("p-1", "week", 4, "{2}", 10, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta("FROM problem_courses WHERE problem_id = $1 ORDER BY position ASC")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"problem_id", "position", "course_id", "teacher_id", "class_id", "room_id", "duration"}).
			AddRow("p-1", 0, "COURSE1", "T1", "C1", "R1", 2).
			AddRow("p-1", 1, "COURSE2", "T1", "C1", "R2", 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM problem_preferences WHERE problem_id = $1 ORDER BY entity_kind, entity_id, slot")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows([]string{"problem_id", "entity_kind", "entity_id", "slot", "score", "forbidden"}).
			AddRow("p-1", "class", "C1", 0, 5, false).
			AddRow("p-1", "teacher", "T1", 1, -10, true).
			AddRow("p-1", "teacher", "T1", 3, 4, false).
			AddRow("p-1", "teacher", "T1", 9, 4, false))

	problem, err := repo.Load(context.Background(), "p-1")
	require.NoError(t, err)
	require.NoError(t, problem.Validate())

	assert.Equal(t, []string{"COURSE1", "COURSE2"}, []string{problem.Courses[0].ID, problem.Courses[1].ID})
	assert.Equal(t, []int{2}, problem.BlockedSlots())
	assert.Equal(t, []int{0, -10, 0, 4}, timetable.Scores(problem.TeacherPrefs["T1"]))
	assert.Equal(t, []int{5, 0, 0, 0}, timetable.Scores(problem.ClassPrefs["C1"]))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProblemRepositoryLoadMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProblemRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM problems WHERE id = $1")).
		WithArgs("nope").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Load(context.Background(), "nope")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProblemRepositorySave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProblemRepository(db)

	problem := timetable.NewProblem(
		[]timetable.Course{{ID: "A", TeacherID: "T1", ClassID: "C1", RoomID: "R1", Duration: 1}},
		timetable.PreferenceTable{"T1": timetable.PreferencesFromScores([]int{1, -10})},
		timetable.PreferenceTable{"C1": timetable.PreferencesFromScores([]int{3, 3})},
		2,
		[]int{1},
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problems (id, name, horizon, blocked_slots, penalty, created_at)")).
		WithArgs(sqlmock.AnyArg(), "tiny", 2, "{1}", 10, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_courses")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_preferences")).
		WillReturnResult(sqlmock.NewResult(4, 4))
	mock.ExpectCommit()

	id, err := repo.Save(context.Background(), "tiny", problem)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProblemRepositorySaveRollsBack(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProblemRepository(db)

	problem := timetable.NewProblem(
		[]timetable.Course{{ID: "A", TeacherID: "T1", ClassID: "C1", RoomID: "R1", Duration: 1}},
		timetable.PreferenceTable{"T1": timetable.PreferencesFromScores([]int{1})},
		timetable.PreferenceTable{"C1": timetable.PreferencesFromScores([]int{1})},
		1,
		nil,
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problems")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), "broken", problem)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPreferenceRowsAreOrdered(t *testing.T) {
	rows := preferenceRows("p", "teacher", timetable.PreferenceTable{
		"T2": timetable.PreferencesFromScores([]int{1}),
		"T1": timetable.PreferencesFromScores([]int{-10, 2}),
	})
	require.Len(t, rows, 3)
	assert.Equal(t, "T1", rows[0].EntityID)
	assert.True(t, rows[0].Forbidden)
	assert.Equal(t, -10, rows[0].Score)
	assert.Equal(t, "T2", rows[2].EntityID)
}

func TestProblemRepositorySaveSplitsLargeInserts(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProblemRepository(db)

	// 60 teachers over 200 slots plus one class: 12200 preference rows,
	// more than fit in one statement at six parameters a row.
	const horizon = 200
	teachers := timetable.PreferenceTable{}
	for i := 1; i <= 60; i++ {
		teachers[fmt.Sprintf("T%d", i)] = timetable.PreferencesFromScores(make([]int, horizon))
	}
	problem := timetable.NewProblem(
		[]timetable.Course{{ID: "A", TeacherID: "T1", ClassID: "C1", RoomID: "R1", Duration: 1}},
		teachers,
		timetable.PreferenceTable{"C1": timetable.PreferencesFromScores(make([]int, horizon))},
		horizon,
		nil,
	)
	perStatement := maxBindParams / preferenceColumns
	require.Greater(t, 12200, perStatement)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problems")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_courses")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_preferences")).
		WillReturnResult(sqlmock.NewResult(int64(perStatement), int64(perStatement)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_preferences")).
		WillReturnResult(sqlmock.NewResult(int64(12200-perStatement), int64(12200-perStatement)))
	mock.ExpectCommit()

	_, err := repo.Save(context.Background(), "wide", problem)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProblemRepositorySaveBatchesByBindLimit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewProblemRepository(db)
	repo.bindLimit = 2 * preferenceColumns

	problem := timetable.NewProblem(
		[]timetable.Course{
			{ID: "A", TeacherID: "T1", ClassID: "C1", RoomID: "R1", Duration: 1},
			{ID: "B", TeacherID: "T1", ClassID: "C1", RoomID: "R2", Duration: 1},
		},
		timetable.PreferenceTable{"T1": timetable.PreferencesFromScores([]int{1, 2, 3})},
		timetable.PreferenceTable{"C1": timetable.PreferencesFromScores([]int{4, 5})},
		3,
		nil,
	)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problems")).WillReturnResult(sqlmock.NewResult(1, 1))
	// 12 parameters fit one course row (7 columns) per statement.
	for _, course := range []string{"A", "B"} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_courses")).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), course, "T1", "C1", sqlmock.AnyArg(), 1).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	// Five preference rows go out as 2 + 2 + 1.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_preferences")).WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_preferences")).WillReturnResult(sqlmock.NewResult(2, 2))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO problem_preferences")).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	_, err := repo.Save(context.Background(), "batched", problem)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
