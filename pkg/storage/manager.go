// Package storage persists fetched lap tables and alert subscriptions in sqlite.
package storage

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"f1consistencybot/pkg/model"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultPath = "./f1consistency-bot.db"

type Subscriber struct {
	UserID string
	ChatID string
}

type Manager struct {
	db *sql.DB
	mu sync.Mutex
}

func NewManager(dbPath string) (*Manager, error) {
	if dbPath == "" {
		dbPath = DefaultPath
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening database %s", dbPath)
	}

	for _, stmt := range buildCreateTables() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "initialising database %s", dbPath)
		}
	}

	return &Manager{db: db}, nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.db.Close()
}

func normaliseEvent(event string) string {
	return strings.ToLower(strings.TrimSpace(event))
}

// LoadLaps returns the stored lap table of an event. The boolean is false when
// the event was never stored.
func (m *Manager) LoadLaps(season int, event string) ([]model.LapRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	event = normaliseEvent(event)
	query, args, exists := buildSelectSessionCommand(season, event)
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, false, errors.Wrap(err, "selecting session")
	}
	found, err := exists(rows)
	if err != nil || !found {
		return nil, false, errors.Wrap(err, "reading session")
	}

	query, args, read := buildSelectLapsCommand(season, event)
	rows, err = m.db.Query(query, args...)
	if err != nil {
		return nil, false, errors.Wrap(err, "selecting laps")
	}
	laps, err := read(rows)
	if err != nil {
		return nil, false, errors.Wrap(err, "reading laps")
	}
	return laps, true, nil
}

// SaveLaps replaces the stored lap table of an event. Empty tables are not
// stored so a session published later is fetched again.
func (m *Manager) SaveLaps(season int, event string, laps []model.LapRecord) error {
	if len(laps) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	event = normaliseEvent(event)
	tx, err := m.db.Begin()
	if err != nil {
		return errors.Wrap(err, "starting transaction")
	}
	defer tx.Rollback()

	query, args := buildDeleteLapsCommand(season, event)
	if _, err := tx.Exec(query, args...); err != nil {
		return errors.Wrap(err, "deleting laps")
	}

	stmt, err := tx.Prepare(buildInsertLapStatement())
	if err != nil {
		return errors.Wrap(err, "preparing lap insert")
	}
	defer stmt.Close()
	for _, lap := range laps {
		if _, err := stmt.Exec(lapArgs(season, event, lap)...); err != nil {
			return errors.Wrapf(err, "inserting lap %d of %s", lap.LapNumber, lap.CompetitorID)
		}
	}

	query, args = buildInsertSessionCommand(season, event, time.Now())
	if _, err := tx.Exec(query, args...); err != nil {
		return errors.Wrap(err, "inserting session")
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "committing laps")
	}
	logrus.WithFields(logrus.Fields{"season": season, "event": event, "laps": len(laps)}).Debug("lap table stored")
	return nil
}

// ToggleSubscription flips the race alert subscription of a user and returns
// the new state.
func (m *Manager) ToggleSubscription(userID, chatID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	enabled, err := m.isSubscribed(userID)
	if err != nil {
		return false, err
	}

	query, args := buildUpsertSubscriptionCommand(userID, chatID, !enabled)
	if _, err := m.db.Exec(query, args...); err != nil {
		return enabled, errors.Wrap(err, "updating subscription")
	}
	return !enabled, nil
}

func (m *Manager) IsSubscribed(userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.isSubscribed(userID)
}

func (m *Manager) isSubscribed(userID string) (bool, error) {
	query, args, read := buildSelectSubscriptionCommand(userID)
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return false, errors.Wrap(err, "selecting subscription")
	}
	return read(rows)
}

func (m *Manager) ListSubscribers() ([]Subscriber, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query, read := buildSelectSubscribersCommand()
	rows, err := m.db.Query(query)
	if err != nil {
		return []Subscriber{}, errors.Wrap(err, "selecting subscribers")
	}
	return read(rows)
}

func (m *Manager) MarkPublished(season, round int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	query, args := buildInsertPublishedCommand(season, round, time.Now())
	_, err := m.db.Exec(query, args...)
	return errors.Wrap(err, "marking race published")
}

func (m *Manager) IsPublished(season, round int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	query, args, exists := buildSelectPublishedCommand(season, round)
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return false, errors.Wrap(err, "selecting published race")
	}
	return exists(rows)
}
