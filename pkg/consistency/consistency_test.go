package consistency

import (
	"math"
	"testing"
	"time"

	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
)

const tolerance = 1e-6

func lapsFromSeconds(competitor string, seconds ...float64) []model.LapRecord {
	laps := make([]model.LapRecord, len(seconds))
	for i, s := range seconds {
		laps[i] = model.LapRecord{
			CompetitorID: competitor,
			LapNumber:    i + 1,
			Duration:     model.NewNullDuration(time.Duration(s * float64(time.Second))),
		}
	}
	return laps
}

func sampleStdDev(values ...float64) float64 {
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

func TestCalculateReferenceSequence(t *testing.T) {
	laps := lapsFromSeconds("VER", 90.0, 91.0, 89.5, 90.2, 90.8, 91.1, 89.9)

	points, err := Calculate(laps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		lap  int
		want float64
	}{
		{lap: 2, want: sampleStdDev(90.0, 91.0)},
		{lap: 3, want: sampleStdDev(90.0, 91.0, 89.5)},
		{lap: 5, want: math.Sqrt(0.37)},
		{lap: 5, want: sampleStdDev(90.0, 91.0, 89.5, 90.2, 90.8)},
		{lap: 6, want: sampleStdDev(91.0, 89.5, 90.2, 90.8, 91.1)},
		{lap: 7, want: math.Sqrt(0.425)},
		{lap: 7, want: sampleStdDev(89.5, 90.2, 90.8, 91.1, 89.9)},
	}

	for _, test := range tests {
		got := points[test.lap-1]
		if got.LapNumber != test.lap {
			t.Fatalf("point %d has lap number %d", test.lap-1, got.LapNumber)
		}
		if math.Abs(got.Value-test.want) > tolerance {
			t.Errorf("lap %d: expected %.9f, got %.9f", test.lap, test.want, got.Value)
		}
	}
}

func TestCalculateSingleSampleWindowIsUndefined(t *testing.T) {
	points, err := Calculate(lapsFromSeconds("HAM", 92.3, 92.0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if points[0].Defined() {
		t.Errorf("expected first lap to be undefined, got %f", points[0].Value)
	}
	if !points[1].Defined() {
		t.Errorf("expected second lap to be defined")
	}
}

func TestCalculatePreservesLengthAndLapNumbers(t *testing.T) {
	laps := []model.LapRecord{
		{CompetitorID: "LEC", LapNumber: 2, Duration: model.NewNullDuration(91 * time.Second)},
		{CompetitorID: "LEC", LapNumber: 3, Duration: model.NewNullDuration(92 * time.Second)},
		{CompetitorID: "LEC", LapNumber: 7, Duration: model.NewNullDuration(90 * time.Second)},
		{CompetitorID: "LEC", LapNumber: 8, Duration: model.NewNullDuration(93 * time.Second)},
	}

	for n := 1; n <= len(laps); n++ {
		points, err := Calculate(laps[:n])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(points) != n {
			t.Fatalf("expected %d points, got %d", n, len(points))
		}
		for i := range points {
			if points[i].LapNumber != laps[i].LapNumber {
				t.Errorf("point %d: expected lap %d, got %d", i, laps[i].LapNumber, points[i].LapNumber)
			}
		}
	}
}

func TestCalculateWindowIsLocal(t *testing.T) {
	base := lapsFromSeconds("NOR", 90.1, 90.7, 91.4, 89.8, 90.0, 90.5, 91.2, 90.9)
	before, err := Calculate(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	changed := lapsFromSeconds("NOR", 120.0, 75.5, 91.4, 89.8, 90.0, 90.5, 91.2, 90.9)
	after, err := Calculate(changed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// laps 1 and 2 fall outside the windows ending at index 6 and 7
	for _, i := range []int{6, 7} {
		if before[i].Value != after[i].Value {
			t.Errorf("index %d changed from %f to %f", i, before[i].Value, after[i].Value)
		}
	}
	if before[4].Value == after[4].Value {
		t.Errorf("index 4 should depend on the changed laps")
	}
}

func TestCalculateIsIdempotent(t *testing.T) {
	laps := lapsFromSeconds("SAI", 95.2, 94.8, 96.1, 95.5, 95.0, 94.9)
	first, err := Calculate(laps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := Calculate(laps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first {
		if first[i].LapNumber != second[i].LapNumber {
			t.Fatalf("lap numbers differ at %d", i)
		}
		if first[i].Defined() != second[i].Defined() {
			t.Fatalf("definedness differs at %d", i)
		}
		if first[i].Defined() && first[i].Value != second[i].Value {
			t.Errorf("value differs at %d: %f vs %f", i, first[i].Value, second[i].Value)
		}
	}
}

func TestCalculateMissingLapTimes(t *testing.T) {
	laps := lapsFromSeconds("PER", 90.0, 0, 91.0, 89.5, 90.2, 90.8)
	laps[1].Duration = model.NullDuration{}

	points, err := Calculate(laps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != len(laps) {
		t.Fatalf("expected %d points, got %d", len(laps), len(points))
	}
	if points[1].Defined() {
		t.Errorf("window [90.0, missing] has one sample and must be undefined")
	}
	if want := sampleStdDev(90.0, 91.0); math.Abs(points[2].Value-want) > tolerance {
		t.Errorf("lap 3: expected %f, got %f", want, points[2].Value)
	}
	// window of lap 6 covers laps 2..6 and lap 2 has no time
	if want := sampleStdDev(91.0, 89.5, 90.2, 90.8); math.Abs(points[5].Value-want) > tolerance {
		t.Errorf("lap 6: expected %f, got %f", want, points[5].Value)
	}
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		laps   []model.LapRecord
		target error
	}{
		{
			name:   "empty",
			laps:   nil,
			target: model.ErrEmptyResult,
		},
		{
			name: "not increasing",
			laps: []model.LapRecord{
				{CompetitorID: "ALO", LapNumber: 2},
				{CompetitorID: "ALO", LapNumber: 2},
			},
			target: model.ErrInvalidSelection,
		},
		{
			name: "mixed competitors",
			laps: []model.LapRecord{
				{CompetitorID: "ALO", LapNumber: 1},
				{CompetitorID: "STR", LapNumber: 2},
			},
			target: model.ErrInvalidSelection,
		},
		{
			name:   "zero lap number",
			laps:   []model.LapRecord{{CompetitorID: "ALO", LapNumber: 0}},
			target: model.ErrInvalidSelection,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Calculate(test.laps)
			if !errors.Is(err, test.target) {
				t.Errorf("expected %v, got %v", test.target, err)
			}
		})
	}
}

func TestCompareKeepsSeriesIndependent(t *testing.T) {
	table := append(lapsFromSeconds("VER", 90.0, 90.5, 91.0, 90.2),
		lapsFromSeconds("HAM", 91.0, 91.4)...)

	series, err := Compare(table, "VER", "HAM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(series))
	}
	if series[0].CompetitorID != "VER" || len(series[0].Points) != 4 {
		t.Errorf("unexpected first series: %+v", series[0])
	}
	if series[1].CompetitorID != "HAM" || len(series[1].Points) != 2 {
		t.Errorf("unexpected second series: %+v", series[1])
	}
	if series[1].Label != "HAM rolling std (5 laps)" {
		t.Errorf("unexpected label %q", series[1].Label)
	}
	if series[0].BestLap != 90.0 || series[1].BestLap != 91.0 {
		t.Errorf("unexpected best laps %v and %v", series[0].BestLap, series[1].BestLap)
	}
}

func TestSeriesBestLapSkipsMissingTimes(t *testing.T) {
	table := []model.LapRecord{
		{CompetitorID: "ALO", LapNumber: 1},
		{CompetitorID: "ALO", LapNumber: 2},
	}
	s, err := Series(table, "ALO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.BestLap != 0 {
		t.Errorf("expected no best lap, got %v", s.BestLap)
	}

	table = append(table, lapsFromSeconds("ALO", 92.5, 91.75)...)
	table[2].LapNumber, table[3].LapNumber = 3, 4
	if s, err = Series(table, "ALO"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.BestLap != 91.75 {
		t.Errorf("expected 91.75, got %v", s.BestLap)
	}
}

func TestCompareErrors(t *testing.T) {
	table := lapsFromSeconds("VER", 90.0, 90.5)

	if _, err := Compare(table, "VER", "VER"); !errors.Is(err, model.ErrInvalidSelection) {
		t.Errorf("expected invalid selection for duplicate competitor, got %v", err)
	}
	if _, err := Compare(table, "VER", "BOT"); !errors.Is(err, model.ErrInvalidSelection) {
		t.Errorf("expected invalid selection for unknown competitor, got %v", err)
	}
}

func TestFilterAndCompetitors(t *testing.T) {
	table := []model.LapRecord{
		{CompetitorID: "RUS", LapNumber: 2},
		{CompetitorID: "PIA", LapNumber: 1},
		{CompetitorID: "RUS", LapNumber: 1},
		{CompetitorID: "PIA", LapNumber: 2},
	}

	ids := Competitors(table)
	if len(ids) != 2 || ids[0] != "RUS" || ids[1] != "PIA" {
		t.Errorf("unexpected competitors %v", ids)
	}

	rus := FilterByCompetitor(table, "RUS")
	if len(rus) != 2 || rus[0].LapNumber != 1 || rus[1].LapNumber != 2 {
		t.Errorf("unexpected filtered laps %+v", rus)
	}
}
