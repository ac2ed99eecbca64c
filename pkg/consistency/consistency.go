// Package consistency computes lap-time consistency as the rolling standard
// deviation of lap durations.
package consistency

import (
	"fmt"
	"math"
	"sort"

	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

const (
	// Window is the number of trailing laps that feed every value.
	Window = 5
	// MinPeriods is the minimum number of laps a window needs to be evaluated.
	MinPeriods = 1
)

// Calculate returns, for every lap, the sample standard deviation (Bessel's
// correction) in seconds of the lap times in the trailing window of up to
// Window records ending at that lap.
//
// Laps without a recorded time stay in the output but are not samples. A window
// with fewer than two lap times yields NaN.
func Calculate(laps []model.LapRecord) ([]model.Point, error) {
	if len(laps) == 0 {
		return nil, errors.Wrap(model.ErrEmptyResult, "no laps to evaluate")
	}
	if err := checkSequence(laps); err != nil {
		return nil, err
	}

	points := make([]model.Point, len(laps))
	samples := make([]float64, 0, Window)
	for i := range laps {
		samples = samples[:0]
		for j := max(0, i-Window+1); j <= i; j++ {
			if s, ok := laps[j].Seconds(); ok {
				samples = append(samples, s)
			}
		}
		points[i] = model.Point{
			LapNumber: laps[i].LapNumber,
			Value:     stdDev(samples),
		}
	}
	return points, nil
}

func stdDev(samples []float64) float64 {
	// the sample deviation of a single lap is undefined
	if len(samples) < max(MinPeriods, 2) {
		return math.NaN()
	}
	return stat.StdDev(samples, nil)
}

func checkSequence(laps []model.LapRecord) error {
	competitor := laps[0].CompetitorID
	for i, lap := range laps {
		if lap.CompetitorID != competitor {
			return errors.Wrapf(model.ErrInvalidSelection, "laps mix competitors %q and %q", competitor, lap.CompetitorID)
		}
		if lap.LapNumber < 1 {
			return errors.Wrapf(model.ErrInvalidSelection, "lap number %d of %s is not positive", lap.LapNumber, competitor)
		}
		if i > 0 && lap.LapNumber <= laps[i-1].LapNumber {
			return errors.Wrapf(model.ErrInvalidSelection, "lap numbers of %s are not strictly increasing (%d after %d)", competitor, lap.LapNumber, laps[i-1].LapNumber)
		}
	}
	return nil
}

// FilterByCompetitor returns the laps of one competitor ordered by lap number.
func FilterByCompetitor(laps []model.LapRecord, competitorID string) []model.LapRecord {
	filtered := []model.LapRecord{}
	for _, lap := range laps {
		if lap.CompetitorID == competitorID {
			filtered = append(filtered, lap)
		}
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].LapNumber < filtered[j].LapNumber
	})
	return filtered
}

// Competitors lists the competitor ids of a lap table in order of first appearance.
func Competitors(laps []model.LapRecord) []string {
	seen := map[string]bool{}
	ids := []string{}
	for _, lap := range laps {
		if !seen[lap.CompetitorID] {
			seen[lap.CompetitorID] = true
			ids = append(ids, lap.CompetitorID)
		}
	}
	return ids
}

// Label is the legend entry of a competitor's series.
func Label(competitorID string) string {
	return fmt.Sprintf("%s rolling std (%d laps)", competitorID, Window)
}

// Series computes the consistency series of a single competitor of the table.
func Series(laps []model.LapRecord, competitorID string) (model.ConsistencySeries, error) {
	subset := FilterByCompetitor(laps, competitorID)
	if len(subset) == 0 {
		return model.ConsistencySeries{}, errors.Wrapf(model.ErrInvalidSelection, "no laps for %q", competitorID)
	}
	points, err := Calculate(subset)
	if err != nil {
		return model.ConsistencySeries{}, err
	}
	return model.ConsistencySeries{
		CompetitorID: competitorID,
		Label:        Label(competitorID),
		Points:       points,
		BestLap:      bestLap(subset),
	}, nil
}

func bestLap(laps []model.LapRecord) float64 {
	best := 0.0
	for _, lap := range laps {
		if s, ok := lap.Seconds(); ok && (best == 0 || s < best) {
			best = s
		}
	}
	return best
}

// Compare computes the series of two competitors independently. Lap numbers are
// not aligned between them.
func Compare(laps []model.LapRecord, first, second string) ([]model.ConsistencySeries, error) {
	if first == second {
		return nil, errors.Wrapf(model.ErrInvalidSelection, "cannot compare %q with itself", first)
	}
	result := make([]model.ConsistencySeries, 0, 2)
	for _, id := range []string{first, second} {
		s, err := Series(laps, id)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, nil
}
