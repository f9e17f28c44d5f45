package timetable

import (
	"encoding/json"
	"fmt"
)

// ForbiddenScore is the numeric marker used by data files and storage for a
// forbidden slot. It never leaks past the decoding boundary.
const ForbiddenScore = -10

// Preference is either a forbidden marker or an ordinary preference value.
type Preference struct {
	value     int
	forbidden bool
}

// Forbidden returns the forbidden preference.
func Forbidden() Preference {
	return Preference{forbidden: true}
}

// Value returns an ordinary preference carrying n.
func Value(n int) Preference {
	return Preference{value: n}
}

// PreferenceFromScore decodes a raw score, mapping ForbiddenScore to Forbidden.
func PreferenceFromScore(score int) Preference {
	if score == ForbiddenScore {
		return Forbidden()
	}
	return Value(score)
}

// IsForbidden reports whether the slot is forbidden for the entity.
func (p Preference) IsForbidden() bool { return p.forbidden }

// Score returns the preference magnitude and false when the slot is forbidden.
func (p Preference) Score() (int, bool) {
	if p.forbidden {
		return 0, false
	}
	return p.value, true
}

// Raw encodes the preference back into its storage representation.
func (p Preference) Raw() int {
	if p.forbidden {
		return ForbiddenScore
	}
	return p.value
}

func (p Preference) String() string {
	if p.forbidden {
		return "forbidden"
	}
	return fmt.Sprintf("%d", p.value)
}

// MarshalJSON writes the raw score.
func (p Preference) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Raw())
}

// UnmarshalJSON reads a raw score.
func (p *Preference) UnmarshalJSON(data []byte) error {
	var score int
	if err := json.Unmarshal(data, &score); err != nil {
		return fmt.Errorf("decode preference: %w", err)
	}
	*p = PreferenceFromScore(score)
	return nil
}

// PreferenceTable maps a teacher or class id to one preference per timeslot.
type PreferenceTable map[string][]Preference

// At returns the preference for entity at slot. Unknown entities or slots
// outside the table read as a zero value.
func (t PreferenceTable) At(entity string, slot int) Preference {
	row, ok := t[entity]
	if !ok || slot < 0 || slot >= len(row) {
		return Value(0)
	}
	return row[slot]
}

// PreferencesFromScores builds a row from raw scores.
func PreferencesFromScores(scores []int) []Preference {
	row := make([]Preference, len(scores))
	for i, score := range scores {
		row[i] = PreferenceFromScore(score)
	}
	return row
}

// Scores encodes a row back into raw scores.
func Scores(row []Preference) []int {
	scores := make([]int, len(row))
	for i, p := range row {
		scores[i] = p.Raw()
	}
	return scores
}
