// Package provider fetches race calendars and lap timings from an Ergast
// compatible API.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"f1consistencybot/pkg/helper"
	"f1consistencybot/pkg/model"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL  = "https://api.jolpi.ca/ergast/f1"
	DefaultTimeout  = 20 * time.Second
	DefaultPageSize = 100

	dateLayout = "2006-01-02"
)

type Client struct {
	baseURL  string
	pageSize int
	http     *http.Client
	now      func() time.Time
}

func NewClient(baseURL string, timeout time.Duration, pageSize int) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
		http:     &http.Client{Timeout: timeout},
		now:      time.Now,
	}
}

// ListEvents returns the calendar of a season ordered by round.
func (c *Client) ListEvents(ctx context.Context, season int) ([]model.Event, error) {
	var resp mrData[scheduleResponse]
	if err := c.get(ctx, fmt.Sprintf("/%d/races.json", season), url.Values{"limit": {"100"}}, &resp); err != nil {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "schedule of %d: %s", season, err)
	}

	races := resp.MRData.RaceTable.Races
	if len(races) == 0 {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "no calendar published for %d", season)
	}

	events := make([]model.Event, 0, len(races))
	for _, r := range races {
		round, err := strconv.Atoi(r.Round)
		if err != nil {
			logrus.WithField("season", season).Warnf("skipping race %q with round %q", r.RaceName, r.Round)
			continue
		}
		events = append(events, model.Event{
			Season:  season,
			Round:   round,
			Name:    r.RaceName,
			Circuit: r.Circuit.CircuitName,
			Date:    r.Date,
		})
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Round < events[j].Round
	})
	return events, nil
}

// LoadEventLaps returns the lap table of a calendar event ordered by competitor
// and lap number. Competitors are identified by their three letter code.
func (c *Client) LoadEventLaps(ctx context.Context, event model.Event, kind model.SessionKind) ([]model.LapRecord, error) {
	if kind != model.Race {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "%s sessions are not published by the timing API", kind)
	}

	season := event.Season
	if d, err := time.Parse(dateLayout, event.Date); err == nil && d.After(c.now()) {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "%s %d has not been run yet", event.Name, season)
	}

	codes, err := c.driverCodes(ctx, season, event.Round)
	if err != nil {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "drivers of %s %d: %s", event.Name, season, err)
	}

	laps, err := c.fetchLaps(ctx, season, event.Round)
	if err != nil {
		return nil, errors.Wrapf(model.ErrDataUnavailable, "laps of %s %d: %s", event.Name, season, err)
	}

	records := make([]model.LapRecord, 0, len(laps))
	for _, l := range laps {
		number, err := strconv.Atoi(l.Number)
		if err != nil || number < 1 {
			logrus.WithFields(logrus.Fields{"season": season, "round": event.Round}).Warnf("skipping lap %q", l.Number)
			continue
		}
		for _, t := range l.Timings {
			code, ok := codes[t.DriverID]
			if !ok {
				code = strings.ToUpper(t.DriverID)
			}
			records = append(records, model.LapRecord{
				CompetitorID: code,
				LapNumber:    number,
				Duration:     toNullDuration(t.Time),
			})
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CompetitorID != records[j].CompetitorID {
			return records[i].CompetitorID < records[j].CompetitorID
		}
		return records[i].LapNumber < records[j].LapNumber
	})

	logrus.WithFields(logrus.Fields{
		"season": season,
		"event":  event.Name,
		"laps":   len(records),
	}).Info("lap table fetched")
	return records, nil
}

// fetchLaps pages through the lap timings. The API pages by timing entry, so a
// lap may be split across two pages.
func (c *Client) fetchLaps(ctx context.Context, season, round int) ([]lap, error) {
	byNumber := map[string]*lap{}
	order := []string{}
	offset := 0
	for {
		query := url.Values{
			"limit":  {strconv.Itoa(c.pageSize)},
			"offset": {strconv.Itoa(offset)},
		}
		var resp mrData[lapsResponse]
		if err := c.get(ctx, fmt.Sprintf("/%d/%d/laps.json", season, round), query, &resp); err != nil {
			return nil, err
		}

		received := 0
		for _, r := range resp.MRData.RaceTable.Races {
			for _, l := range r.Laps {
				received += len(l.Timings)
				existing, ok := byNumber[l.Number]
				if !ok {
					copied := l
					byNumber[l.Number] = &copied
					order = append(order, l.Number)
					continue
				}
				existing.Timings = append(existing.Timings, l.Timings...)
			}
		}

		total, _ := strconv.Atoi(resp.MRData.Total)
		offset += c.pageSize
		if received == 0 || offset >= total {
			break
		}
	}

	laps := make([]lap, 0, len(order))
	for _, n := range order {
		laps = append(laps, *byNumber[n])
	}
	return laps, nil
}

func (c *Client) driverCodes(ctx context.Context, season, round int) (map[string]string, error) {
	var resp mrData[driversResponse]
	if err := c.get(ctx, fmt.Sprintf("/%d/%d/drivers.json", season, round), url.Values{"limit": {"100"}}, &resp); err != nil {
		return nil, err
	}

	codes := map[string]string{}
	for _, d := range resp.MRData.DriverTable.Drivers {
		code := d.Code
		if code == "" {
			code = helper.DriverCode(d.GivenName + " " + d.FamilyName)
		}
		codes[d.DriverID] = code
	}
	return codes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("GET %s: unexpected status %s", path, resp.Status)
	}

	return errors.Wrapf(json.Unmarshal(body, out), "GET %s: decoding response", path)
}
