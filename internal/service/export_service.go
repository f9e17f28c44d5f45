package service

import (
	"fmt"
	"strconv"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/dto"
	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/pkg/export"
)

var scheduleHeaders = []string{"course", "teacher", "class", "room", "start", "end", "duration", "status"}

// ExportFile is a rendered document ready to be sent to a client.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders finished runs as tabular documents.
type ExportService struct {
	renderer func(export.Format) (export.Renderer, error)
}

// NewExportService constructs an exporter backed by pkg/export.
func NewExportService() *ExportService {
	return &ExportService{renderer: export.ForFormat}
}

// Render encodes the best schedule of resp in format.
func (s *ExportService) Render(resp *dto.OptimizationResponse, format export.Format) (*ExportFile, error) {
	if format == "" {
		format = export.FormatCSV
	}
	renderer, err := s.renderer(format)
	if err != nil {
		return nil, err
	}
	body, err := renderer.Render(ScheduleDataset(resp))
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("run-%s.%s", resp.RunID, format),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

// ScheduleDataset lays out one row per course. Unplaced courses have empty
// start and end cells.
func ScheduleDataset(resp *dto.OptimizationResponse) export.Dataset {
	data := export.Dataset{
		Title:   "Timetable " + resp.RunID,
		Headers: scheduleHeaders,
		Rows:    make([]map[string]string, 0, len(resp.Schedule)),
	}
	if resp.BestFitness != nil {
		data.Notes = append(data.Notes,
			fmt.Sprintf("Best fitness %d (preference %d, penalty %d)", *resp.BestFitness, resp.Preference, resp.Penalty),
		)
	}
	data.Notes = append(data.Notes,
		fmt.Sprintf("Valid: %t, violations: %d, forbidden slots used: %d", resp.Valid, len(resp.Violations), len(resp.ForbiddenHits)),
		fmt.Sprintf("Particles %d, iterations %d, local search %t, seed %d",
			resp.Params.Particles, resp.Params.Iterations, resp.Params.LocalSearch, resp.Params.Seed),
	)

	for _, e := range resp.Schedule {
		row := map[string]string{
			"course":   e.CourseID,
			"teacher":  e.TeacherID,
			"class":    e.ClassID,
			"room":     e.RoomID,
			"duration": strconv.Itoa(e.Duration),
			"status":   "infeasible",
		}
		if e.Start != nil {
			row["start"] = strconv.Itoa(*e.Start)
			row["end"] = strconv.Itoa(*e.Start + e.Duration - 1)
			row["status"] = "placed"
		}
		data.Rows = append(data.Rows, row)
	}
	return data
}
