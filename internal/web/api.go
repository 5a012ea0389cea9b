package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"net/http"
	"time"

	"weekhours/internal/capture"
	"weekhours/internal/chip"
	"weekhours/internal/everhour"
	"weekhours/internal/ics"
	"weekhours/internal/ledger"
	appLog "weekhours/internal/log"
	"weekhours/internal/model"
	"weekhours/internal/summary"
)

const maxBodyBytes = 4 << 20

// eventsResponse is the JSON response shape for /api/events and /api/parse.
type eventsResponse struct {
	Events    []model.ParsedEvent `json:"events"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type summaryResponse struct {
	Filter     string        `json:"filter"`
	Label      string        `json:"label"`
	Rows       []summary.Row `json:"rows"`
	TotalHours float64       `json:"total_hours"`
}

type projectHoursResponse struct {
	Filter string               `json:"filter"`
	Rows   []summary.ProjectRow `json:"rows"`
}

type weekResponse struct {
	Days []summary.DayTotal `json:"days"`
}

type everhourSendRequest struct {
	Title string `json:"title"`
}

// everhourRemoveRequest names entries directly or, with a ledger, by the
// meeting title they were created for.
type everhourRemoveRequest struct {
	IDs   []string `json:"ids"`
	Title string   `json:"title"`
}

type everhourResponse struct {
	Project string               `json:"project,omitempty"`
	Entries []everhour.TimeEntry `json:"entries,omitempty"`
	IDs     []string             `json:"ids"`
	Error   string               `json:"error,omitempty"`
}

type linkRequest struct {
	Title   string `json:"title"`
	Project string `json:"project"`
}

type linksResponse struct {
	Links map[string]string `json:"links"`
}

type ledgerResponse struct {
	Entries []ledger.Entry `json:"entries"`
}

// handleParse parses a posted chip array (strings or chip objects) and
// makes the result the current week.
//
// POST /api/parse
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	chips, err := capture.DecodeChips(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	events := chip.Parse(chips, s.now())
	s.SetEvents(events)
	appLog.Info("api parse", "chips", len(chips), "events", len(events))

	current, updatedAt := s.Events()
	writeJSON(w, http.StatusOK, eventsResponse{Events: current, UpdatedAt: updatedAt})
}

func (s *Server) handleEvents(w http.ResponseWriter, _ *http.Request) {
	events, updatedAt := s.Events()
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, UpdatedAt: updatedAt})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		if errors.Is(err, errNoRefresher) {
			writeError(w, http.StatusNotImplemented, "refresh is not configured")
			return
		}
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	s.handleEvents(w, r)
}

// handleSummary returns per-title totals annotated with their project.
//
// GET /api/summary?filter=week|monday|...|friday
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filterParam(w, r)
	if !ok {
		return
	}
	events, _ := s.Events()

	rows := s.annotate(summary.Totals(events, f))
	total := 0
	for _, row := range rows {
		total += row.Minutes
	}
	writeJSON(w, http.StatusOK, summaryResponse{
		Filter:     string(f),
		Label:      f.Label(),
		Rows:       rows,
		TotalHours: summary.Hours(total),
	})
}

// GET /api/project-hours?filter=
func (s *Server) handleProjectHours(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filterParam(w, r)
	if !ok {
		return
	}
	events, _ := s.Events()
	writeJSON(w, http.StatusOK, projectHoursResponse{
		Filter: string(f),
		Rows:   s.projectHours(events, f),
	})
}

// handleWeek returns Monday to Friday totals for the week containing the
// optional ?date=YYYY-MM-DD (today by default).
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	ref := s.now()
	if v := r.URL.Query().Get("date"); v != "" {
		d, err := time.Parse(time.DateOnly, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		ref = d
	}
	events, _ := s.Events()
	days, err := summary.DailyBreakdown(events, ref)
	if err != nil {
		appLog.Error("api week failed", err)
		writeError(w, http.StatusInternalServerError, "failed to build week")
		return
	}
	writeJSON(w, http.StatusOK, weekResponse{Days: days})
}

// handleExportCSV downloads the meeting summary or the project hours.
//
// GET /api/export.csv?kind=summary|hours&filter=
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	f, ok := s.filterParam(w, r)
	if !ok {
		return
	}
	events, _ := s.Events()

	var (
		buf      bytes.Buffer
		filename string
		err      error
	)
	switch r.URL.Query().Get("kind") {
	case "", "summary":
		filename = summary.SummaryFilename(f)
		err = summary.WriteSummaryCSV(&buf, s.annotate(summary.Totals(events, f)))
	case "hours":
		filename = summary.ProjectHoursFilename(f)
		err = summary.WriteProjectHoursCSV(&buf, s.projectHours(events, f), f)
	default:
		writeError(w, http.StatusBadRequest, "kind must be summary or hours")
		return
	}
	if err != nil {
		appLog.Error("api csv export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to write CSV")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleExportICS(w http.ResponseWriter, _ *http.Request) {
	events, _ := s.Events()
	body, err := ics.Export(events, time.Local, s.now())
	if err != nil {
		appLog.Error("api ics export failed", err)
		writeError(w, http.StatusInternalServerError, "failed to write calendar")
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="weekhours.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleEverhourSend books every event with the posted title on the task of
// the meeting's project.
//
// POST /api/everhour {"title": "..."}
func (s *Server) handleEverhourSend(w http.ResponseWriter, r *http.Request) {
	var req everhourSendRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	project := s.assign(req.Title)
	events, _ := s.Events()
	occurrences := summary.EventsWithTitle(events, req.Title, summary.FilterWeek)
	sent, err := s.everhour.SendTitle(r.Context(), req.Title, project, occurrences)
	s.recordSent(r.Context(), req.Title, project.Name, sent)

	resp := everhourResponse{Project: project.Name, Entries: sent, IDs: entryIDs(sent)}
	if err != nil {
		resp.Error = err.Error()
		writeJSON(w, everhourStatus(err), resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEverhourList returns recorded entries, optionally for one title.
//
// GET /api/everhour?title=
func (s *Server) handleEverhourList(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusNotImplemented, "ledger is not configured")
		return
	}
	var (
		entries []ledger.Entry
		err     error
	)
	if title := r.URL.Query().Get("title"); title != "" {
		entries, err = s.ledger.ForTitle(r.Context(), title)
	} else {
		entries, err = s.ledger.List(r.Context())
	}
	if err != nil {
		appLog.Error("api ledger list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}
	writeJSON(w, http.StatusOK, ledgerResponse{Entries: entries})
}

// handleEverhourRemove deletes entries by id, or every recorded entry of a
// title when a ledger is configured.
//
// DELETE /api/everhour {"ids": ["..."]} or {"title": "..."}
func (s *Server) handleEverhourRemove(w http.ResponseWriter, r *http.Request) {
	var req everhourRemoveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "ids or title are required")
		return
	}

	ids := req.IDs
	if len(ids) == 0 && req.Title != "" && s.ledger != nil {
		entries, err := s.ledger.ForTitle(r.Context(), req.Title)
		if err != nil {
			appLog.Error("api ledger lookup failed", err, "title", req.Title)
			writeError(w, http.StatusInternalServerError, "failed to read ledger")
			return
		}
		for _, e := range entries {
			ids = append(ids, e.EntryID)
		}
	}
	if len(ids) == 0 {
		writeError(w, http.StatusBadRequest, "ids or title are required")
		return
	}

	removed, err := s.everhour.RemoveEntries(r.Context(), ids)
	if s.ledger != nil && len(removed) > 0 {
		if _, ferr := s.ledger.Forget(r.Context(), removed); ferr != nil {
			appLog.Error("api ledger forget failed", ferr)
		}
	}
	if removed == nil {
		removed = []string{}
	}
	if err != nil {
		writeJSON(w, everhourStatus(err), everhourResponse{IDs: removed, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, everhourResponse{IDs: removed})
}

// GET /api/links
func (s *Server) handleLinks(w http.ResponseWriter, _ *http.Request) {
	s.cfgMu.Lock()
	links := maps.Clone(s.cfg.MeetingProjects)
	s.cfgMu.Unlock()

	if links == nil {
		links = map[string]string{}
	}
	writeJSON(w, http.StatusOK, linksResponse{Links: links})
}

// handleSetLink links a meeting title to a configured project, or unlinks it
// when project is empty, and saves the config.
//
// PUT /api/links {"title": "...", "project": "..."}
func (s *Server) handleSetLink(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil || req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	s.cfgMu.Lock()
	if req.Project != "" {
		if _, ok := s.cfg.Project(req.Project); !ok {
			s.cfgMu.Unlock()
			writeError(w, http.StatusUnprocessableEntity, "unknown project")
			return
		}
	}
	links := maps.Clone(s.cfg.MeetingProjects)
	if links == nil {
		links = map[string]string{}
	}
	if req.Project == "" {
		delete(links, req.Title)
	} else {
		links[req.Title] = req.Project
	}
	s.cfg.MeetingProjects = links
	err := s.saveConfigLocked()
	resp := linksResponse{Links: maps.Clone(links)}
	s.cfgMu.Unlock()

	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save config")
		return
	}
	appLog.Info("meeting link set", "title", req.Title, "project", req.Project)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) recordSent(ctx context.Context, title, project string, sent []everhour.TimeEntry) {
	if s.ledger == nil || len(sent) == 0 {
		return
	}
	entries := make([]ledger.Entry, 0, len(sent))
	for _, te := range sent {
		entries = append(entries, ledger.Entry{
			EntryID:   te.ID,
			Title:     title,
			Project:   project,
			TaskID:    te.TaskID,
			Date:      te.Date,
			Minutes:   te.Minutes,
			CreatedAt: s.now(),
		})
	}
	if err := s.ledger.Record(ctx, entries); err != nil {
		appLog.Error("api ledger record failed", err, "title", title)
	}
}

func entryIDs(sent []everhour.TimeEntry) []string {
	ids := make([]string, 0, len(sent))
	for _, te := range sent {
		ids = append(ids, te.ID)
	}
	return ids
}

func everhourStatus(err error) int {
	switch {
	case errors.Is(err, everhour.ErrNoToken),
		errors.Is(err, everhour.ErrNoProject),
		errors.Is(err, everhour.ErrNoTaskID),
		errors.Is(err, everhour.ErrNoEvents):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) filterParam(w http.ResponseWriter, r *http.Request) (summary.Filter, bool) {
	f, err := summary.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	return f, true
}

// annotate fills in each row's project, persisting new auto-links.
func (s *Server) annotate(rows []summary.Row) []summary.Row {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	linker := summary.NewLinker(s.cfg.Projects, s.cfg.MeetingProjects)
	rows = linker.Annotate(rows)
	s.saveLinksLocked(linker)
	return rows
}

// assign links title to a project and returns it. A link to a project that
// is no longer configured comes back without a task id.
func (s *Server) assign(title string) model.Project {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	linker := summary.NewLinker(s.cfg.Projects, s.cfg.MeetingProjects)
	name := linker.Assign(title)
	s.saveLinksLocked(linker)
	if name == "" {
		return model.Project{}
	}
	if p, ok := s.cfg.Project(name); ok {
		return p
	}
	return model.Project{Name: name}
}

// projectHours auto-links every title first so the totals include titles
// that were never shown in a summary.
func (s *Server) projectHours(events []model.ParsedEvent, f summary.Filter) []summary.ProjectRow {
	s.annotate(summary.Totals(events, summary.FilterWeek))

	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	return summary.ProjectHours(events, f, s.cfg.MeetingProjects)
}

func (s *Server) saveLinksLocked(linker *summary.Linker) {
	if !linker.Changed() {
		return
	}
	s.cfg.MeetingProjects = linker.Mapping()
	_ = s.saveConfigLocked()
}

func (s *Server) saveConfigLocked() error {
	if s.cfgPath == "" {
		return nil
	}
	if err := s.cfg.Save(s.cfgPath); err != nil {
		appLog.Error("failed to save meeting links", err, "config_path", s.cfgPath)
		return err
	}
	return nil
}
