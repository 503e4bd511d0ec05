package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
)

type ScheduleStore interface {
	GetWeeklyHours(ctx context.Context) (schedule.Week, error)
	// UpsertWeek saves all days or none.
	UpsertWeek(ctx context.Context, days []schedule.WeeklyHours) error
	GetOverridesInRange(ctx context.Context, from, to clock.Date) ([]schedule.Override, error)
	UpsertOverride(ctx context.Context, o schedule.Override) (schedule.Override, error)
	DeleteOverride(ctx context.Context, id string) error
}

type ScheduleHandler struct {
	store  ScheduleStore
	clock  clock.Clock
	loc    *time.Location
	logger *slog.Logger
}

func NewScheduleHandler(store ScheduleStore, clk clock.Clock, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleHandler{store: store, clock: clk, loc: loc, logger: logger}
}

type weeklyHoursItem struct {
	Weekday  int             `json:"weekday"`
	Open     clock.TimeOfDay `json:"open"`
	Close    clock.TimeOfDay `json:"close"`
	IsClosed bool            `json:"is_closed"`
}

type weeklyHoursBody struct {
	Days []weeklyHoursItem `json:"days"`
}

type overrideItem struct {
	ID       string           `json:"id,omitempty"`
	Date     clock.Date       `json:"date"`
	Open     *clock.TimeOfDay `json:"open"`
	Close    *clock.TimeOfDay `json:"close"`
	IsClosed bool             `json:"is_closed"`
	Reason   string           `json:"reason,omitempty"`
}

func toOverrideItem(o schedule.Override) overrideItem {
	return overrideItem{ID: o.ID, Date: o.Date, Open: o.Open, Close: o.Close, IsClosed: o.IsClosed, Reason: o.Reason}
}

// WeeklyHours reads (GET) or replaces days of (PUT) the recurring schedule.
func (h *ScheduleHandler) WeeklyHours(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPut) {
		return
	}
	if r.Method == http.MethodPut {
		var body weeklyHoursBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		if len(body.Days) == 0 {
			http.Error(w, "days is required", http.StatusBadRequest)
			return
		}
		hours := make([]schedule.WeeklyHours, 0, len(body.Days))
		for _, d := range body.Days {
			wh := schedule.WeeklyHours{Weekday: d.Weekday, Open: d.Open, Close: d.Close, IsClosed: d.IsClosed}
			if err := schedule.ValidateWeeklyHours(wh); err != nil {
				writeError(w, h.logger, "invalid weekly hours", err)
				return
			}
			hours = append(hours, wh)
		}
		if err := h.store.UpsertWeek(r.Context(), hours); err != nil {
			writeError(w, h.logger, "failed to save weekly hours", err)
			return
		}
	}

	week, err := h.store.GetWeeklyHours(r.Context())
	if err != nil {
		writeError(w, h.logger, "failed to load weekly hours", err)
		return
	}
	resp := weeklyHoursBody{Days: make([]weeklyHoursItem, 0, len(week))}
	for _, wh := range week {
		resp.Days = append(resp.Days, weeklyHoursItem{Weekday: wh.Weekday, Open: wh.Open, Close: wh.Close, IsClosed: wh.IsClosed})
	}
	sort.Slice(resp.Days, func(i, j int) bool { return resp.Days[i].Weekday < resp.Days[j].Weekday })
	writeJSON(w, http.StatusOK, resp)
}

// Overrides lists (GET ?from=&to=), upserts (PUT) or deletes (DELETE ?id=)
// date overrides.
func (h *ScheduleHandler) Overrides(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPut, http.MethodDelete) {
		return
	}
	switch r.Method {
	case http.MethodGet:
		h.listOverrides(w, r)
	case http.MethodPut:
		h.putOverride(w, r)
	case http.MethodDelete:
		id := strings.TrimSpace(r.URL.Query().Get("id"))
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		if err := h.store.DeleteOverride(r.Context(), id); err != nil {
			writeError(w, h.logger, "failed to delete override", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *ScheduleHandler) listOverrides(w http.ResponseWriter, r *http.Request) {
	today := clock.DateOf(h.clock.Now().In(h.loc))
	from, to := today, today.AddDays(90)

	q := r.URL.Query()
	if d, err := parseOptionalDate(q.Get("from")); err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	} else if d != nil {
		from = *d
	}
	if d, err := parseOptionalDate(q.Get("to")); err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	} else if d != nil {
		to = *d
	}
	if to.Before(from) {
		http.Error(w, "to must not be before from", http.StatusBadRequest)
		return
	}

	overrides, err := h.store.GetOverridesInRange(r.Context(), from, to)
	if err != nil {
		writeError(w, h.logger, "failed to load overrides", err)
		return
	}
	items := make([]overrideItem, 0, len(overrides))
	for _, o := range overrides {
		items = append(items, toOverrideItem(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"overrides": items})
}

func (h *ScheduleHandler) putOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideItem
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Date.IsZero() {
		http.Error(w, "date is required", http.StatusBadRequest)
		return
	}
	saved, err := h.store.UpsertOverride(r.Context(), schedule.Override{
		Date:     req.Date,
		Open:     req.Open,
		Close:    req.Close,
		IsClosed: req.IsClosed,
		Reason:   strings.TrimSpace(req.Reason),
	})
	if err != nil {
		writeError(w, h.logger, "failed to save override", err)
		return
	}
	writeJSON(w, http.StatusOK, toOverrideItem(saved))
}
