// Package watcher polls the calendar of the running season and announces races
// whose lap data has been published.
package watcher

import (
	"context"
	"time"

	"f1consistencybot/pkg/model"

	"github.com/sirupsen/logrus"
)

// RecentWindow bounds how old a race can be and still be announced. Older races
// are only marked as published.
const RecentWindow = 7 * 24 * time.Hour

type ScheduleProvider interface {
	ListEvents(ctx context.Context, season int) ([]model.Event, error)
}

type SessionLoader interface {
	LoadLaps(ctx context.Context, season int, eventName string, kind model.SessionKind) ([]model.LapRecord, error)
}

type Tracker interface {
	IsPublished(season, round int) (bool, error)
	MarkPublished(season, round int) error
}

type Publisher interface {
	Publish(topic string, data model.RacePublished)
}

type Manager struct {
	ctx       context.Context
	schedule  ScheduleProvider
	sessions  SessionLoader
	tracker   Tracker
	publisher Publisher
	topic     string
	now       func() time.Time
}

func NewManager(ctx context.Context, schedule ScheduleProvider, sessions SessionLoader, tracker Tracker, publisher Publisher, topic string) *Manager {
	return &Manager{
		ctx:       ctx,
		schedule:  schedule,
		sessions:  sessions,
		tracker:   tracker,
		publisher: publisher,
		topic:     topic,
		now:       time.Now,
	}
}

func (m *Manager) Sync(ticker *time.Ticker, exitChan chan bool) {
	m.doSync(m.now())
	go func() {
		for {
			select {
			case <-exitChan:
				return
			case <-m.ctx.Done():
				return
			case t := <-ticker.C:
				m.doSync(t)
			}
		}
	}()
}

// doSync returns the number of races announced.
func (m *Manager) doSync(t time.Time) int {
	season := t.Year()
	log := logrus.WithField("season", season)
	log.Debug("checking for published races")

	events, err := m.schedule.ListEvents(m.ctx, season)
	if err != nil {
		log.WithError(err).Warn("listing events")
		return 0
	}

	announced := 0
	for _, event := range events {
		date, err := time.Parse("2006-01-02", event.Date)
		if err != nil || date.After(t) {
			continue
		}
		published, err := m.tracker.IsPublished(season, event.Round)
		if err != nil {
			log.WithError(err).Warn("reading published races")
			return announced
		}
		if published {
			continue
		}

		if t.Sub(date) > RecentWindow {
			if err := m.tracker.MarkPublished(season, event.Round); err != nil {
				log.WithError(err).Warn("marking old race")
			}
			continue
		}

		laps, err := m.sessions.LoadLaps(m.ctx, season, event.Name, model.Race)
		if err != nil || len(laps) == 0 {
			log.WithField("event", event.Name).Debug("lap data not available yet")
			continue
		}
		if err := m.tracker.MarkPublished(season, event.Round); err != nil {
			log.WithError(err).Warn("marking race published")
			continue
		}

		log.WithField("event", event.Name).Info("race lap data published")
		m.publisher.Publish(m.topic, model.RacePublished{
			Season:    season,
			Round:     event.Round,
			EventName: event.Name,
		})
		announced++
	}
	return announced
}
