package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gravitysim/gravity/pkg/core"
)

// SessionExport is the root JSON structure
type SessionExport struct {
	Version        string     `json:"version"`
	SessionName    string     `json:"sessionName"`
	Tag            string     `json:"tag"`
	StartTime      string     `json:"startTime"`
	Speed          float64    `json:"speed"`
	TickIntervalMs float64    `json:"tickIntervalMs"`
	Tolerance      float64    `json:"tolerance"`
	Seed           uint64     `json:"seed"`
	EndTick        uint64     `json:"endTick"`
	Duration       float64    `json:"duration"`
	Bodies         []BodyJSON `json:"bodies"`
}

// BodyJSON represents one body and its samples
type BodyJSON struct {
	ID          uint           `json:"id"`
	Name        string         `json:"name"`
	JoinSimTime float64        `json:"joinSimTime"`
	States      [][]any        `json:"states"`
	Maneuvers   []ManeuverJSON `json:"maneuvers"`
}

// ElementsJSON is a sanitized copy of core.Elements; JSON has no infinities.
type ElementsJSON struct {
	Regime          string  `json:"regime"`
	AngularMomentum float64 `json:"l"`
	Eccentricity    float64 `json:"e"`
	PeriapsisAngle  float64 `json:"theta0"`
	PeriapsisEpoch  float64 `json:"t0"`
	SemiMajorAxis   float64 `json:"a"`
}

// ManeuverJSON represents a recorded maneuver
type ManeuverJSON struct {
	Tick     uint64       `json:"tick"`
	SimTime  float64      `json:"simTime"`
	Kind     string       `json:"kind"`
	DeltaV   float64      `json:"deltaV"`
	AngleDeg float64      `json:"angleDeg"`
	Before   ElementsJSON `json:"before"`
	After    ElementsJSON `json:"after"`
	Path     [][2]float64 `json:"path"`
}

// finite maps NaN and infinities to 0
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func elementsJSON(e core.Elements) ElementsJSON {
	return ElementsJSON{
		Regime:          e.Regime,
		AngularMomentum: finite(e.AngularMomentum),
		Eccentricity:    finite(e.Eccentricity),
		PeriapsisAngle:  finite(e.PeriapsisAngle),
		PeriapsisEpoch:  finite(e.PeriapsisEpoch),
		SemiMajorAxis:   finite(e.SemiMajorAxis),
	}
}

// exportFileName builds name_timestamp.json[.gz]
func exportFileName(session *core.Session, compress bool) string {
	name := strings.ReplaceAll(session.Name, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	timestamp := session.StartTime.Format("20060102_150405")

	if compress {
		return fmt.Sprintf("%s_%s.json.gz", name, timestamp)
	}
	return fmt.Sprintf("%s_%s.json", name, timestamp)
}

// exportJSON writes the session data to a (optionally gzipped) JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()
	outputPath := filepath.Join(b.cfg.OutputDir, exportFileName(b.session, b.cfg.CompressOutput))

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		Version:        b.session.Version,
		SessionName:    b.session.Name,
		Tag:            b.session.Tag,
		StartTime:      b.session.StartTime.UTC().Format(time.RFC3339),
		Speed:          b.session.Speed,
		TickIntervalMs: float64(b.session.TickInterval.Microseconds()) / 1000,
		Tolerance:      b.session.Tolerance,
		Seed:           b.session.Seed,
		Bodies:         make([]BodyJSON, 0, len(b.order)),
	}

	if first, last, ok := b.simTimeRange(); ok {
		export.Duration = last - first
	}

	for _, id := range b.order {
		record := b.bodies[id]
		body := BodyJSON{
			ID:          record.Body.ID,
			Name:        record.Body.Name,
			JoinSimTime: record.Body.JoinSimTime,
			States:      make([][]any, 0, len(record.States)),
			Maneuvers:   make([]ManeuverJSON, 0, len(record.Maneuvers)),
		}

		// Format: [tick, simTime, [x, y], [vx, vy], facing, regime, e]
		for _, s := range record.States {
			body.States = append(body.States, []any{
				s.Tick,
				s.SimTime,
				[]float64{s.X, s.Y},
				[]float64{s.VX, s.VY},
				s.Facing,
				s.Elements.Regime,
				finite(s.Elements.Eccentricity),
			})
			if s.Tick > export.EndTick {
				export.EndTick = s.Tick
			}
		}

		for _, m := range record.Maneuvers {
			path := m.Path
			if path == nil {
				path = [][2]float64{}
			}
			body.Maneuvers = append(body.Maneuvers, ManeuverJSON{
				Tick:     m.Tick,
				SimTime:  m.SimTime,
				Kind:     m.Kind,
				DeltaV:   m.DeltaV,
				AngleDeg: m.AngleDeg,
				Before:   elementsJSON(m.Before),
				After:    elementsJSON(m.After),
				Path:     path,
			})
		}

		export.Bodies = append(export.Bodies, body)
	}

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return err
	}
	return gzWriter.Close()
}
