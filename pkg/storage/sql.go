package storage

import (
	"database/sql"
	"time"

	"f1consistencybot/pkg/model"
)

func buildCreateTables() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS sessions (
		season INTEGER NOT NULL,
		event TEXT NOT NULL,
		fetched_at INTEGER NOT NULL,
		PRIMARY KEY (season, event));`,
		`CREATE TABLE IF NOT EXISTS laps (
		season INTEGER NOT NULL,
		event TEXT NOT NULL,
		competitor TEXT NOT NULL,
		lap INTEGER NOT NULL,
		duration_ms INTEGER,
		PRIMARY KEY (season, event, competitor, lap));`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
		userid TEXT PRIMARY KEY,
		chatid TEXT NOT NULL,
		enabled INTEGER NOT NULL);`,
		`CREATE TABLE IF NOT EXISTS published (
		season INTEGER NOT NULL,
		round INTEGER NOT NULL,
		published_at INTEGER NOT NULL,
		PRIMARY KEY (season, round));`,
	}
}

func buildSelectSessionCommand(season int, event string) (string, []any, func(*sql.Rows) (bool, error)) {
	return `SELECT 1 FROM sessions WHERE season = ? AND event = ?`, []any{season, event}, processExistsRows
}

func buildSelectLapsCommand(season int, event string) (string, []any, func(*sql.Rows) ([]model.LapRecord, error)) {
	fields := "competitor, lap, duration_ms"
	return `SELECT ` + fields + ` FROM laps WHERE season = ? AND event = ? ORDER BY competitor, lap`,
		[]any{season, event}, processSelectLapsRows
}

func processSelectLapsRows(rows *sql.Rows) ([]model.LapRecord, error) {
	defer rows.Close()

	laps := make([]model.LapRecord, 0)
	for rows.Next() {
		var competitor string
		var lap int
		var durationMs sql.NullInt64
		err := rows.Scan(&competitor, &lap, &durationMs)
		if err != nil {
			return laps, err
		}
		record := model.LapRecord{CompetitorID: competitor, LapNumber: lap}
		if durationMs.Valid {
			record.Duration = model.NewNullDuration(time.Duration(durationMs.Int64) * time.Millisecond)
		}
		laps = append(laps, record)
	}
	return laps, rows.Err()
}

func buildInsertSessionCommand(season int, event string, fetchedAt time.Time) (string, []any) {
	return `INSERT OR REPLACE INTO sessions (season, event, fetched_at) VALUES (?, ?, ?)`,
		[]any{season, event, fetchedAt.Unix()}
}

func buildDeleteLapsCommand(season int, event string) (string, []any) {
	return `DELETE FROM laps WHERE season = ? AND event = ?`, []any{season, event}
}

func buildInsertLapStatement() string {
	return `INSERT INTO laps (season, event, competitor, lap, duration_ms) VALUES (?, ?, ?, ?, ?)`
}

func lapArgs(season int, event string, lap model.LapRecord) []any {
	var durationMs sql.NullInt64
	if lap.Duration.Valid {
		durationMs = sql.NullInt64{Int64: lap.Duration.Duration.Milliseconds(), Valid: true}
	}
	return []any{season, event, lap.CompetitorID, lap.LapNumber, durationMs}
}

func buildSelectSubscriptionCommand(userID string) (string, []any, func(*sql.Rows) (bool, error)) {
	return `SELECT enabled FROM subscriptions WHERE userid = ?`, []any{userID}, processSelectSubscriptionRows
}

func processSelectSubscriptionRows(rows *sql.Rows) (bool, error) {
	defer rows.Close()

	// only can be one row
	if rows.Next() {
		var enabled int
		if err := rows.Scan(&enabled); err != nil {
			return false, err
		}
		return enabled == 1, nil
	}
	return false, rows.Err()
}

func buildUpsertSubscriptionCommand(userID, chatID string, enabled bool) (string, []any) {
	value := 0
	if enabled {
		value = 1
	}
	return `INSERT OR REPLACE INTO subscriptions (userid, chatid, enabled) VALUES (?, ?, ?)`,
		[]any{userID, chatID, value}
}

func buildSelectSubscribersCommand() (string, func(*sql.Rows) ([]Subscriber, error)) {
	return `SELECT userid, chatid FROM subscriptions WHERE enabled = 1 ORDER BY userid`, processSelectSubscribersRows
}

func processSelectSubscribersRows(rows *sql.Rows) ([]Subscriber, error) {
	defer rows.Close()

	subscribers := make([]Subscriber, 0)
	for rows.Next() {
		var s Subscriber
		if err := rows.Scan(&s.UserID, &s.ChatID); err != nil {
			return subscribers, err
		}
		subscribers = append(subscribers, s)
	}
	return subscribers, rows.Err()
}

func buildInsertPublishedCommand(season, round int, at time.Time) (string, []any) {
	return `INSERT OR IGNORE INTO published (season, round, published_at) VALUES (?, ?, ?)`,
		[]any{season, round, at.Unix()}
}

func buildSelectPublishedCommand(season, round int) (string, []any, func(*sql.Rows) (bool, error)) {
	return `SELECT 1 FROM published WHERE season = ? AND round = ?`, []any{season, round}, processExistsRows
}

func processExistsRows(rows *sql.Rows) (bool, error) {
	defer rows.Close()

	found := rows.Next()
	return found, rows.Err()
}
