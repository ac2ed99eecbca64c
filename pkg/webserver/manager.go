// Package webserver exposes the consistency dashboard as an HTTP API.
package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"f1consistencybot/pkg/chart"
	"f1consistencybot/pkg/dashboard"
	"f1consistencybot/pkg/model"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const DefaultAddress = ":8080"

type Manager struct {
	r         *mux.Router
	addr      string
	dashboard *dashboard.Dashboard
}

func NewManager(addr string, d *dashboard.Dashboard) *Manager {
	if addr == "" {
		addr = DefaultAddress
	}
	m := &Manager{
		r:         mux.NewRouter(),
		addr:      addr,
		dashboard: d,
	}

	m.apiHandlers()
	return m
}

func (m *Manager) Router() http.Handler {
	return m.r
}

func (m *Manager) apiHandlers() {
	api := m.r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/seasons", m.handleSeasons).Methods(http.MethodGet)
	api.HandleFunc("/seasons/{season:[0-9]+}/events", m.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/seasons/{season:[0-9]+}/events/{event}/competitors", m.handleCompetitors).Methods(http.MethodGet)
	api.HandleFunc("/consistency", m.handleConsistency).Methods(http.MethodGet)
	m.r.Use(loggingMiddleware)
}

func (m *Manager) Debug() {
	_ = m.r.Walk(func(route *mux.Route, router *mux.Router, ancestors []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, _ := route.GetMethods()
		logrus.WithField("methods", strings.Join(methods, ",")).Debugf("route %s", pathTemplate)
		return nil
	})
}

// Serve listens until ctx is cancelled, then shuts the server down gracefully.
func (m *Manager) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         m.addr,
		WriteTimeout: time.Second * 30,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      m.Router(),
	}

	errChan := make(chan error, 1)
	go func() {
		logrus.Infof("webserver listening on %s", m.addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return errors.Wrap(err, "webserver")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logrus.Info("webserver shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "webserver shutdown")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logrus.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request served")
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("writing response")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidSelection):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logrus.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: dashboard.Kind(err), Message: dashboard.UserMessage(err)})
}

func seasonParam(s string) (int, error) {
	season, err := strconv.Atoi(s)
	if err != nil {
		return 0, &dashboard.SelectionError{Message: "La temporada debe ser un año, por ejemplo 2024"}
	}
	return season, nil
}

func (m *Manager) handleSeasons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]int{"seasons": m.dashboard.Seasons()})
}

func (m *Manager) handleEvents(w http.ResponseWriter, r *http.Request) {
	season, err := seasonParam(mux.Vars(r)["season"])
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := m.dashboard.Events(r.Context(), season)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]model.Event{"events": events})
}

func (m *Manager) handleCompetitors(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	season, err := seasonParam(vars["season"])
	if err != nil {
		writeError(w, err)
		return
	}
	competitors, err := m.dashboard.Competitors(r.Context(), season, vars["event"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"competitors": competitors})
}

// selectionFromQuery reads season, event, mode, session and the competitors,
// given as repeated competitor parameters or a comma separated list.
func selectionFromQuery(r *http.Request) (dashboard.Selection, error) {
	q := r.URL.Query()
	season, err := seasonParam(q.Get("season"))
	if err != nil {
		return dashboard.Selection{}, err
	}
	mode, err := dashboard.ParseMode(q.Get("mode"))
	if err != nil {
		return dashboard.Selection{}, err
	}
	session, err := model.ParseSessionKind(q.Get("session"))
	if err != nil {
		return dashboard.Selection{}, err
	}

	competitors := []string{}
	for _, v := range q["competitor"] {
		for _, c := range strings.Split(v, ",") {
			if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
				competitors = append(competitors, c)
			}
		}
	}
	return dashboard.Selection{
		Season:      season,
		Event:       q.Get("event"),
		Mode:        mode,
		Competitors: competitors,
		Session:     session,
	}, nil
}

func (m *Manager) handleConsistency(w http.ResponseWriter, r *http.Request) {
	sel, err := selectionFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	spec, err := m.dashboard.Render(r.Context(), sel)
	if err != nil {
		writeError(w, err)
		return
	}

	switch r.URL.Query().Get("format") {
	case "", "json":
		writeJSON(w, http.StatusOK, spec)
	case "png":
		var buf bytes.Buffer
		if err := chart.RenderPNG(spec, &buf); err != nil {
			if errors.Is(err, chart.ErrNothingToPlot) {
				err = errors.Wrap(model.ErrEmptyResult, err.Error())
			}
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	case "txt":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(spec.Title + "\n\n" + chart.RenderTable(spec)))
	default:
		writeError(w, &dashboard.SelectionError{Message: "Formato desconocido, usa json, png o txt"})
	}
}
