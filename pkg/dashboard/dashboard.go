// Package dashboard turns a user selection into a chart specification.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"f1consistencybot/pkg/consistency"
	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ScheduleProvider interface {
	ListEvents(ctx context.Context, season int) ([]model.Event, error)
}

type SessionLoader interface {
	LoadLaps(ctx context.Context, season int, eventName string, kind model.SessionKind) ([]model.LapRecord, error)
}

type Dashboard struct {
	seasons  []int
	schedule ScheduleProvider
	sessions SessionLoader
}

func NewDashboard(seasons []int, schedule ScheduleProvider, sessions SessionLoader) *Dashboard {
	sorted := append([]int(nil), seasons...)
	sort.Ints(sorted)
	return &Dashboard{
		seasons:  sorted,
		schedule: schedule,
		sessions: sessions,
	}
}

// Seasons returns the enumerated seasons offered to the user, oldest first.
func (d *Dashboard) Seasons() []int {
	return append([]int(nil), d.seasons...)
}

func (d *Dashboard) checkSeason(season int) error {
	for _, s := range d.seasons {
		if s == season {
			return nil
		}
	}
	return &SelectionError{Message: fmt.Sprintf("La temporada %d no está disponible", season)}
}

func (d *Dashboard) Events(ctx context.Context, season int) ([]model.Event, error) {
	if err := d.checkSeason(season); err != nil {
		return nil, err
	}
	events, err := d.schedule.ListEvents(ctx, season)
	if err != nil {
		return nil, asUnavailable(err)
	}
	return events, nil
}

// Event resolves an event of the season by name, case insensitively.
func (d *Dashboard) Event(ctx context.Context, season int, name string) (model.Event, error) {
	events, err := d.Events(ctx, season)
	if err != nil {
		return model.Event{}, err
	}
	if e, ok := model.FindEvent(events, name); ok {
		return e, nil
	}
	return model.Event{}, &SelectionError{Message: fmt.Sprintf("No existe el Gran Premio %q en %d", name, season)}
}

// EventByRound resolves an event of the season by round number.
func (d *Dashboard) EventByRound(ctx context.Context, season, round int) (model.Event, error) {
	events, err := d.Events(ctx, season)
	if err != nil {
		return model.Event{}, err
	}
	for _, e := range events {
		if e.Round == round {
			return e, nil
		}
	}
	return model.Event{}, &SelectionError{Message: fmt.Sprintf("No existe la ronda %d en %d", round, season)}
}

// Competitors lists the competitors with laps in the race, sorted by id.
func (d *Dashboard) Competitors(ctx context.Context, season int, eventName string) ([]string, error) {
	_, laps, err := d.laps(ctx, season, eventName, model.Race)
	if err != nil {
		return nil, err
	}
	ids := consistency.Competitors(laps)
	sort.Strings(ids)
	return ids, nil
}

func (d *Dashboard) laps(ctx context.Context, season int, eventName string, kind model.SessionKind) (model.Event, []model.LapRecord, error) {
	event, err := d.Event(ctx, season, eventName)
	if err != nil {
		return event, nil, err
	}
	laps, err := d.sessions.LoadLaps(ctx, season, event.Name, kind)
	if err != nil {
		return event, nil, asUnavailable(err)
	}
	if len(laps) == 0 {
		return event, nil, errors.Wrapf(model.ErrEmptyResult, "%s %d has no laps", event.Name, season)
	}
	return event, laps, nil
}

// Render validates the selection, loads the race and computes one consistency
// series per selected competitor. No chart is produced for invalid selections or
// races without laps.
func (d *Dashboard) Render(ctx context.Context, sel Selection) (model.ChartSpec, error) {
	if err := d.checkSeason(sel.Season); err != nil {
		return model.ChartSpec{}, err
	}
	if err := ValidateSelection(sel.Mode, sel.Competitors); err != nil {
		return model.ChartSpec{}, err
	}

	kind := sel.Session
	if kind == "" {
		kind = model.Race
	}
	event, laps, err := d.laps(ctx, sel.Season, sel.Event, kind)
	if err != nil {
		return model.ChartSpec{}, err
	}

	available := map[string]bool{}
	for _, id := range consistency.Competitors(laps) {
		available[id] = true
	}
	for _, id := range sel.Competitors {
		if !available[id] {
			return model.ChartSpec{}, &SelectionError{Message: fmt.Sprintf("%s no tiene vueltas en %s %d", id, event.Name, sel.Season)}
		}
	}

	var series []model.ConsistencySeries
	if sel.Mode == ModeSingle {
		s, err := consistency.Series(laps, sel.Competitors[0])
		if err != nil {
			return model.ChartSpec{}, err
		}
		series = []model.ConsistencySeries{s}
	} else {
		series, err = consistency.Compare(laps, sel.Competitors[0], sel.Competitors[1])
		if err != nil {
			return model.ChartSpec{}, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"season":      sel.Season,
		"event":       event.Name,
		"mode":        sel.Mode,
		"competitors": strings.Join(sel.Competitors, ","),
	}).Debug("consistency chart rendered")

	return model.ChartSpec{
		Title:  Title(sel.Mode, sel.Competitors, event.Name, sel.Season),
		XLabel: model.AxisLapNumber,
		YLabel: model.AxisRollingStd,
		Season: sel.Season,
		Event:  event.Name,
		Series: series,
	}, nil
}

func Title(mode Mode, competitors []string, event string, season int) string {
	if mode == ModeSingle {
		return fmt.Sprintf("%s Consistency — %s %d", competitors[0], event, season)
	}
	return fmt.Sprintf("Consistency Comparison: %s vs %s — %s %d", competitors[0], competitors[1], event, season)
}

// asUnavailable keeps classified errors and reports anything else as missing data.
func asUnavailable(err error) error {
	if errors.Is(err, model.ErrDataUnavailable) || errors.Is(err, model.ErrEmptyResult) || errors.Is(err, model.ErrInvalidSelection) {
		return err
	}
	return errors.Wrapf(model.ErrDataUnavailable, "%s", err)
}
