package swarm

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/catalog"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

func singleCourseProblem(horizon, duration, pref int, blocked []int) *timetable.Problem {
	row := make([]timetable.Preference, horizon)
	for i := range row {
		row[i] = timetable.Value(pref)
	}
	course := timetable.Course{ID: "COURSE1", TeacherID: "T1", ClassID: "C1", RoomID: "R1", Duration: duration}
	return timetable.NewProblem(
		[]timetable.Course{course},
		timetable.PreferenceTable{"T1": row},
		timetable.PreferenceTable{"C1": append([]timetable.Preference(nil), row...)},
		horizon,
		blocked,
	)
}

func smallParams(iterations int) Params {
	return Params{Cognitive: 2.05, Social: 2.05, Inertia: 0.8, Seed: 40, Particles: 10, Iterations: iterations, LocalSearch: true}
}

func TestConstriction(t *testing.T) {
	assert.InDelta(t, 0.7298437881283576, Constriction(2.05, 2.05), 1e-12)
	assert.InDelta(t, 1.496179765663133, Constriction(2.05, 2.05)*2.05, 1e-12)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, smallParams(10).Validate())

	cases := map[string]func(p *Params){
		"phi equals four":    func(p *Params) { p.Cognitive, p.Social = 2, 2 },
		"phi below four":     func(p *Params) { p.Cognitive, p.Social = 1.9, 1.9 },
		"single particle":    func(p *Params) { p.Particles = 1 },
		"negative iteration": func(p *Params) { p.Iterations = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			params := smallParams(10)
			mutate(&params)
			assert.ErrorIs(t, params.Validate(), ErrPrecondition)
		})
	}
}

func TestRunFailsFastOnPreconditions(t *testing.T) {
	problem := singleCourseProblem(5, 2, 5, nil)

	_, err := Run(problem, smallParams(5))
	assert.ErrorIs(t, err, ErrPrecondition, "interchange needs two courses")

	params := smallParams(5)
	params.LocalSearch = false
	params.Particles = 1
	_, err = Run(problem, params)
	assert.ErrorIs(t, err, ErrPrecondition)

	broken := singleCourseProblem(5, 2, 5, nil)
	broken.Horizon = 1
	params.Particles = 5
	_, err = Run(broken, params)
	assert.ErrorIs(t, err, ErrPrecondition)
}

func TestRunReachesUniformOptimum(t *testing.T) {
	problem := singleCourseProblem(5, 2, 5, nil)
	params := smallParams(5)
	params.LocalSearch = false
	params.Particles = 5

	result, err := Run(problem, params)
	require.NoError(t, err)
	assert.Equal(t, 2*(5+5), result.BestFitness)
	assert.Len(t, result.History, 6)
	require.Len(t, result.BestSchedule, 1)
	assert.False(t, result.BestSchedule[0].Start.IsInfeasible())
}

func TestRunBlockedEverywhereStaysAtPenalty(t *testing.T) {
	problem := singleCourseProblem(4, 2, 5, []int{1, 2})
	params := smallParams(20)
	params.LocalSearch = false

	result, err := Run(problem, params)
	require.NoError(t, err)
	assert.Equal(t, -problem.Penalty, result.BestFitness)
	for _, v := range result.History {
		assert.LessOrEqual(t, v, 0-problem.Penalty)
	}
	assert.True(t, result.BestSchedule[0].Start.IsInfeasible())
}

func TestRunHistoryIsMonotoneAndSized(t *testing.T) {
	problem := catalog.Generate(catalog.DefaultGeneratorConfig(), 40)
	for _, localSearch := range []bool{false, true} {
		params := smallParams(60)
		params.LocalSearch = localSearch

		result, err := Run(problem, params)
		require.NoError(t, err)
		require.Len(t, result.History, params.Iterations+1)
		for i := 1; i < len(result.History); i++ {
			assert.GreaterOrEqual(t, result.History[i], result.History[i-1], "history decreased at %d", i)
		}
		assert.Equal(t, result.History[len(result.History)-1], result.BestFitness)
		assert.Equal(t, result.BestFitness, timetable.Fitness(problem, result.BestSchedule))
	}
}

func TestRunZeroIterations(t *testing.T) {
	problem := catalog.Generate(catalog.DefaultGeneratorConfig(), 3)
	result, err := Run(problem, smallParams(0))
	require.NoError(t, err)
	assert.Equal(t, []int{result.BestFitness}, result.History)
}

func TestRunIsDeterministic(t *testing.T) {
	problem := catalog.Generate(catalog.DefaultGeneratorConfig(), 11)
	params := smallParams(40)

	first, err := Run(problem, params)
	require.NoError(t, err)
	second, err := Run(problem, params)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second, cmp.AllowUnexported(timetable.Start{})); diff != "" {
		t.Fatalf("runs differ (-first +second):\n%s", diff)
	}

	params.Seed = 12
	third, err := Run(problem, params)
	require.NoError(t, err)
	assert.NotEqual(t, first.BestPosition, third.BestPosition)
}

func TestGlobalBestDominatesPersonalBests(t *testing.T) {
	problem := catalog.Generate(catalog.DefaultGeneratorConfig(), 5)
	s, err := New(problem, smallParams(25), WithLogger(zap.NewNop()))
	require.NoError(t, err)

	for gen := 0; gen < 25; gen++ {
		s.Step()
		best := s.Result().BestFitness
		for _, p := range s.Pop {
			assert.GreaterOrEqual(t, best, p.BestVal)
			for _, x := range p.Pos {
				assert.GreaterOrEqual(t, x, 0.0)
				assert.LessOrEqual(t, x, problem.UpperBound())
			}
		}
	}
}

func TestObserverSeesEveryGeneration(t *testing.T) {
	problem := catalog.Generate(catalog.DefaultGeneratorConfig(), 9)
	var seen []Generation
	result, err := Run(problem, smallParams(15), WithObserver(func(g Generation) {
		seen = append(seen, g)
	}))
	require.NoError(t, err)
	require.Len(t, seen, 16)
	for i, g := range seen {
		assert.Equal(t, i, g.Index)
		assert.Equal(t, result.History[i], g.BestFitness)
	}
}

func scoresRow(scores ...int) []timetable.Preference {
	row := make([]timetable.Preference, len(scores))
	for i, v := range scores {
		row[i] = timetable.Value(v)
	}
	return row
}

// pin places a particle with zero velocity at its own personal best.
func pin(p *Particle, pos []float64, bestVal int) {
	p.Pos = append([]float64(nil), pos...)
	p.Vel = make([]float64, len(pos))
	p.BestPos = append([]float64(nil), pos...)
	p.BestVal = bestVal
}

func TestAcceptedInterchangeMovesParticle(t *testing.T) {
	// Each teacher prefers the other course's slot, so swapping is a strict gain.
	problem := timetable.NewProblem(
		[]timetable.Course{
			{ID: "A", TeacherID: "TA", ClassID: "CA", RoomID: "RA", Duration: 1},
			{ID: "B", TeacherID: "TB", ClassID: "CB", RoomID: "RB", Duration: 1},
		},
		timetable.PreferenceTable{"TA": scoresRow(1, 5), "TB": scoresRow(5, 1)},
		timetable.PreferenceTable{"CA": scoresRow(1, 1), "CB": scoresRow(1, 1)},
		2,
		nil,
	)
	params := smallParams(1)
	params.Particles = 2
	s, err := New(problem, params)
	require.NoError(t, err)

	start := []float64{0, 1}
	require.Equal(t, 4, timetable.Fitness(problem, timetable.BuildSchedule(problem, start)))
	for _, p := range s.Pop {
		pin(p, start, 4)
	}
	s.best, s.bestVal = append([]float64(nil), start...), 4

	s.Step()

	p := s.Pop[0]
	assert.Equal(t, []float64{1, 0}, p.Pos, "position follows the swapped starts")
	assert.Equal(t, 12, p.BestVal)
	assert.Equal(t, []float64{1, 0}, p.BestPos)
	result := s.Result()
	assert.Equal(t, 12, result.BestFitness)
	assert.Equal(t, p.Pos, result.BestSchedule.Positions())
	assert.Equal(t, []float64{1, 0}, result.BestPosition)
}

func TestGlobalBestVisibleWithinGeneration(t *testing.T) {
	row := scoresRow(1, 2, 3, 4, 5)
	problem := timetable.NewProblem(
		[]timetable.Course{{ID: "A", TeacherID: "T1", ClassID: "C1", RoomID: "R1", Duration: 1}},
		timetable.PreferenceTable{"T1": row},
		timetable.PreferenceTable{"C1": scoresRow(1, 2, 3, 4, 5)},
		5,
		nil,
	)
	params := smallParams(1)
	params.Particles = 2
	params.LocalSearch = false
	s, err := New(problem, params)
	require.NoError(t, err)

	const seed = 99
	s.rng = rand.New(rand.NewSource(seed))
	mirror := rand.New(rand.NewSource(seed))

	// Particle 0 is flung to the top slot and becomes the global best;
	// particle 1 sits still unless pulled by the social term.
	s.best, s.bestVal = []float64{0}, 2
	pin(s.Pop[0], []float64{4}, 0)
	s.Pop[0].Vel[0] = 1000
	pin(s.Pop[1], []float64{2}, 6)

	mirror.Float64() // particle 0 r1
	mirror.Float64() // particle 0 r2
	mirror.Float64() // particle 1 r1
	r2 := mirror.Float64()
	want := clamp(2+s.k*params.Inertia*(params.Social*r2*(4-2)), 0, problem.UpperBound())

	s.Step()

	assert.Equal(t, []float64{4}, s.Pop[0].Pos)
	assert.InDelta(t, want, s.Pop[1].Pos[0], 1e-12, "particle 1 steered by the best found earlier in the generation")
	assert.Greater(t, s.Pop[1].Pos[0], 2.0)
	assert.Equal(t, 10, s.Result().BestFitness)
}
