package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/timetable"
)

// Format selects the problem file encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ProblemFile is the on-disk shape of a problem. Preference scores use -10
// for forbidden slots.
type ProblemFile struct {
	Horizon            int                `json:"horizon" yaml:"horizon"`
	Blocked            []int              `json:"blocked" yaml:"blocked"`
	Penalty            int                `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	Courses            []timetable.Course `json:"courses" yaml:"courses"`
	TeacherPreferences map[string][]int   `json:"teacherPreferences" yaml:"teacherPreferences"`
	ClassPreferences   map[string][]int   `json:"classPreferences" yaml:"classPreferences"`
}

// FormatFromPath picks the encoding from a file extension, defaulting to YAML.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// LoadFile reads and validates a problem file.
func LoadFile(path string) (*timetable.Problem, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem file: %w", err)
	}
	return Decode(bytes.NewReader(raw), FormatFromPath(path))
}

// Decode parses a problem in the given format.
func Decode(r io.Reader, format Format) (*timetable.Problem, error) {
	var file ProblemFile
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode json problem: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&file); err != nil {
			return nil, fmt.Errorf("decode yaml problem: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported problem format %q", format)
	}
	problem := file.Problem()
	if err := problem.Validate(); err != nil {
		return nil, err
	}
	return problem, nil
}

// Encode writes a problem in the given format.
func Encode(w io.Writer, problem *timetable.Problem, format Format) error {
	file := FromProblem(problem)
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(file); err != nil {
			return fmt.Errorf("encode json problem: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(file); err != nil {
			return fmt.Errorf("encode yaml problem: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flush yaml problem: %w", err)
		}
	default:
		return fmt.Errorf("unsupported problem format %q", format)
	}
	return nil
}

// Problem converts the file into a problem instance.
func (f ProblemFile) Problem() *timetable.Problem {
	teachers := make(timetable.PreferenceTable, len(f.TeacherPreferences))
	for id, scores := range f.TeacherPreferences {
		teachers[id] = timetable.PreferencesFromScores(scores)
	}
	classes := make(timetable.PreferenceTable, len(f.ClassPreferences))
	for id, scores := range f.ClassPreferences {
		classes[id] = timetable.PreferencesFromScores(scores)
	}
	problem := timetable.NewProblem(f.Courses, teachers, classes, f.Horizon, f.Blocked)
	// Absent means default; anything else, including negatives, is kept
	// for Validate to judge.
	if f.Penalty != 0 {
		problem.Penalty = f.Penalty
	}
	return problem
}

// FromProblem converts a problem instance into its file form.
func FromProblem(p *timetable.Problem) ProblemFile {
	file := ProblemFile{
		Horizon:            p.Horizon,
		Blocked:            p.BlockedSlots(),
		Penalty:            p.Penalty,
		Courses:            p.Courses,
		TeacherPreferences: make(map[string][]int, len(p.TeacherPrefs)),
		ClassPreferences:   make(map[string][]int, len(p.ClassPrefs)),
	}
	for id, row := range p.TeacherPrefs {
		file.TeacherPreferences[id] = timetable.Scores(row)
	}
	for id, row := range p.ClassPrefs {
		file.ClassPreferences[id] = timetable.Scores(row)
	}
	return file
}
