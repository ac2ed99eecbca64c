package cache

import (
	"context"
	"strconv"
	"time"

	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

type Upstream interface {
	ListEvents(ctx context.Context, season int) ([]model.Event, error)
	LoadEventLaps(ctx context.Context, event model.Event, kind model.SessionKind) ([]model.LapRecord, error)
}

// Store is the on-disk layer behind the in-memory lap tables.
type Store interface {
	LoadLaps(season int, event string) ([]model.LapRecord, bool, error)
	SaveLaps(season int, event string, laps []model.LapRecord) error
}

type Loader struct {
	upstream  Upstream
	store     Store
	laps      *Cache[Key, []model.LapRecord]
	schedules *Cache[int, []model.Event]
	group     singleflight.Group
}

// NewLoader builds the loader shared by every surface of the process. store may
// be nil.
func NewLoader(upstream Upstream, store Store) *Loader {
	return &Loader{
		upstream:  upstream,
		store:     store,
		laps:      New[Key, []model.LapRecord](),
		schedules: New[int, []model.Event](),
	}
}

func (l *Loader) ListEvents(ctx context.Context, season int) ([]model.Event, error) {
	if events, ok := l.schedules.Get(season); ok {
		return events, nil
	}

	v, err, _ := l.group.Do("schedule/"+strconv.Itoa(season), func() (any, error) {
		if events, ok := l.schedules.Get(season); ok {
			return events, nil
		}
		// the fetch is shared, one caller going away must not fail the others
		events, err := l.upstream.ListEvents(context.WithoutCancel(ctx), season)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			l.schedules.Put(season, events)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.Event), nil
}

// LoadLaps returns the lap table of a race. Tables are served from memory, then
// from the store, then fetched upstream and written through. Failures and empty
// tables are never memoised.
func (l *Loader) LoadLaps(ctx context.Context, season int, eventName string, kind model.SessionKind) ([]model.LapRecord, error) {
	if kind != model.Race {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "unsupported session kind %q", kind)
	}

	key := NewKey(season, eventName)
	if laps, ok := l.laps.Get(key); ok {
		return laps, nil
	}

	v, err, shared := l.group.Do("laps/"+key.String(), func() (any, error) {
		return l.loadLaps(context.WithoutCancel(ctx), key, eventName, kind)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logrus.WithField("key", key.String()).Debug("lap table fetch shared between callers")
	}
	return v.([]model.LapRecord), nil
}

func (l *Loader) loadLaps(ctx context.Context, key Key, eventName string, kind model.SessionKind) ([]model.LapRecord, error) {
	if laps, ok := l.laps.Get(key); ok {
		return laps, nil
	}
	log := logrus.WithField("key", key.String())

	if l.store != nil {
		laps, found, err := l.store.LoadLaps(key.Season, key.Event)
		if err != nil {
			log.WithError(err).Warn("reading stored lap table")
		} else if found && len(laps) > 0 {
			l.laps.Put(key, laps)
			return laps, nil
		}
	}

	events, err := l.ListEvents(ctx, key.Season)
	if err != nil {
		return nil, err
	}
	event, ok := model.FindEvent(events, eventName)
	if !ok {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "no event %q in %d", eventName, key.Season)
	}

	laps, err := l.upstream.LoadEventLaps(ctx, event, kind)
	if err != nil {
		return nil, err
	}
	if len(laps) == 0 {
		return laps, nil
	}

	l.laps.Put(key, laps)
	if l.store != nil {
		if err := l.store.SaveLaps(key.Season, key.Event, laps); err != nil {
			log.WithError(err).Warn("storing lap table")
		}
	}
	return laps, nil
}

// Sync drops the memoised calendars on every tick until exitChan is closed. Lap
// tables of past races never change and are kept.
func (l *Loader) Sync(ticker *time.Ticker, exitChan chan bool) {
	go func() {
		for {
			select {
			case <-exitChan:
				return
			case t := <-ticker.C:
				logrus.Debugf("resetting %d cached calendars at %s", l.schedules.Len(), t.Format(time.RFC3339))
				l.schedules.Reset()
			}
		}
	}()
}
