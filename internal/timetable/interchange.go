package timetable

import "math/rand"

// Interchange proposes a neighbour by swapping the starts of two distinct
// courses chosen uniformly at random. When either start is infeasible the
// returned copy equals the input. The schedule must hold at least two
// entries.
func Interchange(schedule Schedule, rng *rand.Rand) Schedule {
	out := schedule.Clone()
	i := rng.Intn(len(out))
	j := rng.Intn(len(out) - 1)
	if j >= i {
		j++
	}
	if out[i].Start.IsInfeasible() || out[j].Start.IsInfeasible() {
		return out
	}
	out[i].Start, out[j].Start = out[j].Start, out[i].Start
	return out
}
