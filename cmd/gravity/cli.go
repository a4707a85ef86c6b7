package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/gravitysim/gravity/internal/config"
	"github.com/gravitysim/gravity/internal/database"
	"github.com/gravitysim/gravity/internal/model"
	"github.com/gravitysim/gravity/internal/model/convert"
	"github.com/gravitysim/gravity/internal/storage/memory"

	"gorm.io/gorm"
)

var errUsage = errors.New("usage")

func openRecording(path string) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: database path required", errUsage)
	}
	db, err := database.OpenSqlite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return db, nil
}

// runSessions lists the sessions recorded in a SQLite dump.
//
//	gravity sessions <db>
func runSessions(args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: gravity sessions <db>", errUsage)
	}
	db, err := openRecording(args[0])
	if err != nil {
		return err
	}

	var sessions []model.Session
	if err := db.Order("id ASC").Find(&sessions).Error; err != nil {
		return fmt.Errorf("error getting sessions: %w", err)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTAG\tSTART")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.ID, s.SessionName, s.Tag, s.StartTime.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

// runExport replays a recorded session from a SQLite dump into the memory
// backend, which writes it as JSON.
//
//	gravity export <db> <session id> [output dir]
func runExport(args []string, out io.Writer) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: gravity export <db> <session id> [output dir]", errUsage)
	}
	sessionID, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: invalid session id %q", errUsage, args[1])
	}
	outputDir := "."
	if len(args) > 2 {
		outputDir = args[2]
	}

	db, err := openRecording(args[0])
	if err != nil {
		return err
	}

	var row model.Session
	if err := db.Where("id = ?", sessionID).First(&row).Error; err != nil {
		return fmt.Errorf("error getting session %d: %w", sessionID, err)
	}

	var bodies []model.Body
	if err := db.Where("session_id = ?", sessionID).Order("id ASC").Find(&bodies).Error; err != nil {
		return fmt.Errorf("error getting bodies: %w", err)
	}
	var states []model.BodyState
	if err := db.Where("session_id = ?", sessionID).Order("tick ASC, id ASC").Find(&states).Error; err != nil {
		return fmt.Errorf("error getting body states: %w", err)
	}
	var maneuvers []model.Maneuver
	if err := db.Where("session_id = ?", sessionID).Order("tick ASC, id ASC").Find(&maneuvers).Error; err != nil {
		return fmt.Errorf("error getting maneuvers: %w", err)
	}

	backend := memory.New(config.MemoryConfig{OutputDir: outputDir, CompressOutput: true})
	sess := convert.SessionToCore(row)
	if err := backend.StartSession(&sess); err != nil {
		return err
	}

	names := make(map[uint]string, len(bodies))
	for _, b := range bodies {
		body := convert.BodyToCore(b)
		names[body.ID] = body.Name
		if err := backend.AddBody(&body); err != nil {
			return err
		}
	}
	for _, s := range states {
		state := convert.BodyStateToCore(s)
		state.BodyName = names[state.BodyID]
		if err := backend.RecordBodyState(&state); err != nil {
			return err
		}
	}
	for _, m := range maneuvers {
		mv := convert.ManeuverToCore(m)
		mv.BodyName = names[mv.BodyID]
		if err := backend.RecordManeuver(&mv); err != nil {
			return err
		}
	}

	if err := backend.EndSession(); err != nil {
		return fmt.Errorf("failed to export session: %w", err)
	}
	fmt.Fprintf(out, "exported session %d (%d bodies, %d states, %d maneuvers) to %s\n",
		sessionID, len(bodies), len(states), len(maneuvers), backend.GetExportedFilePath())
	return nil
}
