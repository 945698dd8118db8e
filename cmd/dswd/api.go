package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"dswagg-backend/lib/schedstore"
	"dswagg-backend/lib/scrapers/dsw"
	"dswagg-backend/lib/timezone"
	"dswagg-backend/services/timetable"
)

// Api serves the read side over plain JSON. Live data comes from the
// cached scrape pipeline; when the site is down the sync snapshots in
// the database answer instead, marked stale.
type Api struct {
	service timetable.CachedService
	store   schedstore.Store
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func pathId(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	return id, err == nil
}

// scheduleRange reads from/to/interval, defaulting to the current
// week.
func scheduleRange(r *http.Request) (from, to string, interval dsw.IntervalType, err error) {
	q := r.URL.Query()

	from = q.Get("from")
	to = q.Get("to")
	if from == "" {
		from = timezone.Now().Format("2006-01-02")
	}
	if to == "" {
		to = timezone.Now().AddDate(0, 0, 6).Format("2006-01-02")
	}
	for _, date := range []string{from, to} {
		_, err = time.Parse("2006-01-02", date)
		if err != nil {
			return "", "", 0, errors.New("dates must look like 2006-01-02")
		}
	}

	interval = dsw.IntervalWeek
	if raw := q.Get("interval"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < int(dsw.IntervalWeek) || parsed > int(dsw.IntervalSemester) {
			return "", "", 0, errors.New("interval must be 1 (week), 2 (month) or 3 (semester)")
		}
		interval = dsw.IntervalType(parsed)
	}
	return from, to, interval, nil
}

func (a Api) SearchGroups(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter")
		return
	}

	groups, err := a.service.SearchGroups(r.Context(), query)
	if err != nil {
		slog.WarnContext(r.Context(), "group search failed", "query", query, "err", err)
		writeError(w, http.StatusBadGateway, "timetable site unavailable")
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (a Api) GroupSchedule(w http.ResponseWriter, r *http.Request) {
	groupId, ok := pathId(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "group id must be a number")
		return
	}
	from, to, interval, err := scheduleRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.service.FetchGroupSchedule(r.Context(), groupId, from, to, interval)
	if err != nil {
		a.serveGroupSnapshot(w, r, groupId, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// serveGroupSnapshot answers a failed live fetch from the last sync
// pass, if one exists.
func (a Api) serveGroupSnapshot(w http.ResponseWriter, r *http.Request, groupId int, cause error) {
	rec, err := a.store.GetGroupSchedule(r.Context(), groupId)
	if err != nil {
		slog.WarnContext(r.Context(), "group schedule failed with no snapshot",
			"group_id", groupId, "err", cause)
		writeError(w, http.StatusBadGateway, "timetable site unavailable")
		return
	}

	slog.WarnContext(r.Context(), "serving stale group schedule",
		"group_id", groupId, "updated_at", rec.UpdatedAt, "err", cause)
	writeJSON(w, http.StatusOK, map[string]any{
		"groupId":       groupId,
		"groupSchedule": rec.Schedule,
		"fetchedAt":     rec.UpdatedAt.In(timezone.Location).Format(time.RFC3339),
		"stale":         true,
	})
}

func (a Api) DailySchedule(w http.ResponseWriter, r *http.Request) {
	groupId, ok := pathId(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "group id must be a number")
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		date = timezone.Now().Format("2006-01-02")
	}
	_, err := time.Parse("2006-01-02", date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must look like 2006-01-02")
		return
	}

	resp, err := a.service.FetchDailySchedule(r.Context(), groupId, date)
	if err != nil {
		a.serveGroupSnapshot(w, r, groupId, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a Api) Aggregate(w http.ResponseWriter, r *http.Request) {
	groupId, ok := pathId(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "group id must be a number")
		return
	}
	from, to, interval, err := scheduleRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.service.Aggregate(r.Context(), groupId, from, to, interval)
	if err != nil {
		a.serveGroupSnapshot(w, r, groupId, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a Api) TeacherCard(w http.ResponseWriter, r *http.Request) {
	teacherId, ok := pathId(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "teacher id must be a number")
		return
	}
	from, to, interval, err := scheduleRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	card := a.service.GetTeacherCard(r.Context(), teacherId, r.URL.Query().Get("name"), from, to, interval)
	if card.Title == "" && card.Email == "" && len(card.Schedule) == 0 {
		// degraded card, prefer the snapshot when it is richer
		rec, err := a.store.GetTeacherCard(r.Context(), teacherId)
		if err == nil {
			writeJSON(w, http.StatusOK, rec.Card)
			return
		}
	}
	writeJSON(w, http.StatusOK, card)
}

func (a Api) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.CacheStats())
}

func (a Api) SyncStatus(w http.ResponseWriter, r *http.Request) {
	run, err := a.store.LatestSyncRun(r.Context())
	if errors.Is(err, schedstore.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]any{"ran": false})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read sync status")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ran":           true,
		"startedAt":     run.StartedAt.In(timezone.Location).Format(time.RFC3339),
		"finishedAt":    run.FinishedAt.In(timezone.Location).Format(time.RFC3339),
		"groupsTotal":   run.GroupsTotal,
		"groupsFailed":  run.GroupsFailed,
		"teachersTotal": run.TeachersTotal,
	})
}
