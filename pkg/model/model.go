package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const (
	AxisLapNumber  = "Lap Number"
	AxisRollingStd = "Rolling Standard Deviation (s)"
)

type SessionKind string

const (
	Race SessionKind = "Race"
)

func ParseSessionKind(s string) (SessionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "r", "race":
		return Race, nil
	}
	return "", errors.Wrapf(ErrDataUnavailable, "unsupported session kind %q", s)
}

// NullDuration is a lap duration that may be missing, e.g. on pit laps or laps
// the timing provider never published.
type NullDuration struct {
	Duration time.Duration
	Valid    bool
}

func NewNullDuration(d time.Duration) NullDuration {
	return NullDuration{Duration: d, Valid: true}
}

type LapRecord struct {
	CompetitorID string       `json:"competitorId"`
	LapNumber    int          `json:"lapNumber"`
	Duration     NullDuration `json:"-"`
}

// Seconds returns the lap duration in seconds, false when it is missing.
func (l LapRecord) Seconds() (float64, bool) {
	if !l.Duration.Valid {
		return math.NaN(), false
	}
	return l.Duration.Duration.Seconds(), true
}

type Event struct {
	Season  int    `json:"season"`
	Round   int    `json:"round"`
	Name    string `json:"name"`
	Circuit string `json:"circuit,omitempty"`
	Date    string `json:"date,omitempty"`
}

// FindEvent resolves an event name (case insensitive) within a season calendar.
func FindEvent(events []Event, name string) (Event, bool) {
	for _, e := range events {
		if strings.EqualFold(strings.TrimSpace(e.Name), strings.TrimSpace(name)) {
			return e, true
		}
	}
	return Event{}, false
}

func (e Event) String() string {
	return fmt.Sprintf("R%02d %s", e.Round, e.Name)
}

// Point is one sample of a consistency series. Value is NaN while the rolling
// window holds fewer than two lap times.
type Point struct {
	LapNumber int
	Value     float64
}

func (p Point) Defined() bool {
	return !math.IsNaN(p.Value) && !math.IsInf(p.Value, 0)
}

type jsonPoint struct {
	LapNumber int      `json:"lapNumber"`
	Value     *float64 `json:"value"`
}

func (p Point) MarshalJSON() ([]byte, error) {
	jp := jsonPoint{LapNumber: p.LapNumber}
	if p.Defined() {
		v := p.Value
		jp.Value = &v
	}
	return json.Marshal(jp)
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var jp jsonPoint
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	p.LapNumber = jp.LapNumber
	p.Value = math.NaN()
	if jp.Value != nil {
		p.Value = *jp.Value
	}
	return nil
}

type ConsistencySeries struct {
	CompetitorID string  `json:"competitorId"`
	Label        string  `json:"label"`
	Points       []Point `json:"points"`
	// BestLap is the fastest lap time in seconds, 0 when no lap was timed.
	BestLap float64 `json:"bestLap,omitempty"`
}

type ChartSpec struct {
	Title  string              `json:"title"`
	XLabel string              `json:"xLabel"`
	YLabel string              `json:"yLabel"`
	Season int                 `json:"season"`
	Event  string              `json:"event"`
	Series []ConsistencySeries `json:"series"`
}

type RacePublished struct {
	Season    int    `json:"season"`
	Round     int    `json:"round"`
	EventName string `json:"eventName"`
}

func (rp RacePublished) String() string {
	return fmt.Sprintf("  ▸ Temporada: %d\n  ▸ Ronda: %d\n  ▸ Gran Premio: %s", rp.Season, rp.Round, rp.EventName)
}
