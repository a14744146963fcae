package controller

import (
	"errors"
	"io"
	"net/http"

	"tncparking/internal/modules/dashboard/views"
	"tncparking/internal/parking"
	"tncparking/internal/session"
	"tncparking/internal/utils"
)

func (c *dashboardControllerImpl) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var s *session.Session
	if ck, err := r.Cookie(sessionCookieName); err == nil {
		s, _ = c.sessions.Get(ck.Value)
	}
	if s == nil {
		s = c.sessions.Create()
		http.SetCookie(w, sessionCookie(s.ID()))
	}

	info := s.Info()
	status := c.dataset.Status()
	var stats parking.SummaryStats
	if _, err := c.dataset.Ready(); err == nil {
		stats = s.Snapshot().Summary
	}

	data := views.DashboardData{
		SessionID:      s.ID(),
		DatasetStatus:  string(status.Status),
		DatasetError:   status.Error,
		Days:           views.DayOptions(info.Filter.Day),
		Hours:          views.HourOptions(info.Filter.Hour),
		OnStreet:       info.Filter.OnStreet,
		OffStreet:      info.Filter.OffStreet,
		Playback:       info.Playback.String(),
		OnStreetColor:  views.OnStreetColor,
		OffStreetColor: views.OffStreetColor,
		LegendTitle:    views.LegendTitle,
		Summary:        views.NewSummaryData(s.ID(), info.Filter, stats),
	}
	err := utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderDashboard(out, &data)
	})
	if err != nil {
		c.logger.Error("dashboard template render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render page")
	}
}

func (c *dashboardControllerImpl) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	id := sessionIDFromRequest(r)
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing session id")
		return
	}
	s, err := c.sessions.Get(id)
	if err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}

	f := s.Filter()
	var stats parking.SummaryStats
	if _, err := c.dataset.Ready(); err == nil {
		stats = s.Snapshot().Summary
	}
	data := views.NewSummaryData(s.ID(), f, stats)

	err = utils.WriteHTML(w, func(out io.Writer) error {
		return views.RenderSummaryPartial(out, &data)
	})
	if err != nil {
		c.logger.Error("summary partial render failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to render")
	}
}

func (c *dashboardControllerImpl) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	s := c.sessions.Create()
	utils.WriteJSON(w, http.StatusCreated, s.Info())
}

func (c *dashboardControllerImpl) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}
	utils.WriteJSON(w, http.StatusOK, s.Info())
}

func (c *dashboardControllerImpl) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := c.sessions.Delete(r.PathValue("id")); err != nil {
		utils.WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commandResponse struct {
	Session session.Info         `json:"session"`
	Summary parking.SummaryStats `json:"summary"`
}

func (c *dashboardControllerImpl) handleCommand(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}

	cmd, err := decodeCommand(w, r)
	if err != nil {
		status := commandStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		utils.WriteError(w, status, "invalid command body: "+err.Error())
		return
	}
	cmd.SessionID = s.ID()

	snap, err := s.Apply(cmd)
	if err != nil {
		status := commandStatus(err)
		if status == http.StatusInternalServerError {
			c.logger.Error("command failed", "session_id", s.ID(), "op", cmd.Op, "error", err)
		}
		utils.WriteError(w, status, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, commandResponse{Session: s.Info(), Summary: snap.Summary})
}

func (c *dashboardControllerImpl) handleMap(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}
	zoom, err := parseZoom(r)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !c.requireDataset(w) {
		return
	}
	utils.WriteGeoJSON(w, http.StatusOK, buildFeatureCollection(s.Snapshot(), zoom, c.logger))
}

func (c *dashboardControllerImpl) handleChart(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}
	key, err := parseChartKey(r.PathValue("key"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !c.requireDataset(w) {
		return
	}

	snap := s.Snapshot()
	buckets := snap.Daily
	if key == parking.BucketHour {
		buckets = snap.Hourly
	}
	utils.WriteJSON(w, http.StatusOK, views.NewChart(key, buckets, snap.Filter))
}

type summaryResponse struct {
	Stats   parking.SummaryStats `json:"stats"`
	Display views.SummaryData    `json:"display"`
}

func (c *dashboardControllerImpl) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, ok := c.lookupSession(w, r)
	if !ok {
		return
	}
	if !c.requireDataset(w) {
		return
	}
	snap := s.Snapshot()
	utils.WriteJSON(w, http.StatusOK, summaryResponse{
		Stats:   snap.Summary,
		Display: views.NewSummaryData(s.ID(), snap.Filter, snap.Summary),
	})
}

func (c *dashboardControllerImpl) handleDataset(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, c.dataset.Status())
}

func (c *dashboardControllerImpl) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := c.dataset.Reload(r.Context()); err != nil {
		utils.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	utils.WriteJSON(w, http.StatusOK, c.dataset.Status())
}

func (c *dashboardControllerImpl) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.PathValue("id")
	if id == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing session id")
		return nil, false
	}
	s, err := c.sessions.Get(id)
	if err != nil {
		if errors.Is(err, session.ErrUnknownSession) {
			utils.WriteError(w, http.StatusNotFound, err.Error())
		} else {
			utils.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return nil, false
	}
	return s, true
}

// requireDataset writes 503 while no dataset is loaded.
func (c *dashboardControllerImpl) requireDataset(w http.ResponseWriter) bool {
	if _, err := c.dataset.Ready(); err != nil {
		utils.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return false
	}
	return true
}
