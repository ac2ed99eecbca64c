package storage

import (
	"path/filepath"
	"testing"
	"time"

	"f1consistencybot/pkg/model"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestLapsRoundTrip(t *testing.T) {
	m := newTestManager(t)

	if _, found, err := m.LoadLaps(2024, "Bahrain Grand Prix"); err != nil || found {
		t.Fatalf("expected nothing stored, got found=%v err=%v", found, err)
	}

	laps := []model.LapRecord{
		{CompetitorID: "VER", LapNumber: 1, Duration: model.NewNullDuration(97284 * time.Millisecond)},
		{CompetitorID: "VER", LapNumber: 2},
		{CompetitorID: "HAM", LapNumber: 1, Duration: model.NewNullDuration(98 * time.Second)},
	}
	if err := m.SaveLaps(2024, "Bahrain Grand Prix", laps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, found, err := m.LoadLaps(2024, "bahrain grand prix")
	if err != nil || !found {
		t.Fatalf("expected stored laps, got found=%v err=%v", found, err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 laps, got %d", len(got))
	}
	// ordered by competitor then lap
	if got[0].CompetitorID != "HAM" || got[1].CompetitorID != "VER" || got[1].LapNumber != 1 {
		t.Errorf("unexpected order: %+v", got)
	}
	if got[1].Duration.Duration != 97284*time.Millisecond || !got[1].Duration.Valid {
		t.Errorf("unexpected duration %+v", got[1].Duration)
	}
	if got[2].Duration.Valid {
		t.Errorf("expected missing duration to stay missing")
	}
}

func TestSaveLapsReplacesAndSkipsEmpty(t *testing.T) {
	m := newTestManager(t)

	if err := m.SaveLaps(2023, "Monaco Grand Prix", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, found, _ := m.LoadLaps(2023, "Monaco Grand Prix"); found {
		t.Errorf("empty tables must not be stored")
	}

	first := []model.LapRecord{{CompetitorID: "LEC", LapNumber: 1}, {CompetitorID: "LEC", LapNumber: 2}}
	second := []model.LapRecord{{CompetitorID: "SAI", LapNumber: 1}}
	if err := m.SaveLaps(2023, "Monaco Grand Prix", first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.SaveLaps(2023, "Monaco Grand Prix", second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _, err := m.LoadLaps(2023, "Monaco Grand Prix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].CompetitorID != "SAI" {
		t.Errorf("expected the table to be replaced, got %+v", got)
	}
}

func TestSubscriptions(t *testing.T) {
	m := newTestManager(t)

	enabled, err := m.ToggleSubscription("42", "4242")
	if err != nil || !enabled {
		t.Fatalf("expected subscription enabled, got %v (%v)", enabled, err)
	}
	if _, err := m.ToggleSubscription("7", "77"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subscribers, err := m.ListSubscribers()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(subscribers) != 2 || subscribers[0].UserID != "42" || subscribers[0].ChatID != "4242" {
		t.Errorf("unexpected subscribers %+v", subscribers)
	}

	enabled, err = m.ToggleSubscription("42", "4242")
	if err != nil || enabled {
		t.Fatalf("expected subscription disabled, got %v (%v)", enabled, err)
	}
	if subscribed, _ := m.IsSubscribed("42"); subscribed {
		t.Errorf("expected user 42 unsubscribed")
	}
	subscribers, _ = m.ListSubscribers()
	if len(subscribers) != 1 || subscribers[0].UserID != "7" {
		t.Errorf("unexpected subscribers %+v", subscribers)
	}
}

func TestPublished(t *testing.T) {
	m := newTestManager(t)

	if published, err := m.IsPublished(2024, 3); err != nil || published {
		t.Fatalf("expected round not published, got %v (%v)", published, err)
	}
	if err := m.MarkPublished(2024, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.MarkPublished(2024, 3); err != nil {
		t.Fatalf("marking twice must not fail: %v", err)
	}
	if published, _ := m.IsPublished(2024, 3); !published {
		t.Errorf("expected round published")
	}
	if published, _ := m.IsPublished(2025, 3); published {
		t.Errorf("expected other season not published")
	}
}
