package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
)

type AvailabilityReader interface {
	Availability(ctx context.Context, requested *clock.Date, windowDays int) (availability.Availability, error)
}

type AvailabilityHandler struct {
	service AvailabilityReader
	logger  *slog.Logger
}

func NewAvailabilityHandler(service AvailabilityReader, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{service: service, logger: logger}
}

type slotItem struct {
	StartAt string `json:"start_at"`
	EndAt   string `json:"end_at"`
}

type dayItem struct {
	Date      clock.Date            `json:"date"`
	State     availability.DayState `json:"state"`
	FreeSlots int                   `json:"free_slots"`
	Reason    string                `json:"reason,omitempty"`
}

type availabilityResponse struct {
	Today              clock.Date   `json:"today"`
	From               clock.Date   `json:"from"`
	To                 clock.Date   `json:"to"`
	SelectedDate       clock.Date   `json:"selected_date"`
	Notice             string       `json:"notice,omitempty"`
	SlotMinutes        int          `json:"slot_minutes"`
	Slots              []slotItem   `json:"slots"`
	SoonestAvailable   *clock.Date  `json:"soonest_available"`
	OpenDates          []clock.Date `json:"open_dates"`
	AvailableDates     []clock.Date `json:"available_dates"`
	MisconfiguredDates []clock.Date `json:"misconfigured_dates"`
	Days               []dayItem    `json:"days"`
}

// Get serves the calendar window and the slots of the selected day.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	requested, err := parseOptionalDate(q.Get("date"))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	windowDays := availability.DefaultWindow
	if raw := q.Get("window_days"); raw != "" {
		windowDays, err = strconv.Atoi(raw)
		if err != nil || windowDays < 0 {
			http.Error(w, "invalid window_days", http.StatusBadRequest)
			return
		}
	}

	avail, err := h.service.Availability(r.Context(), requested, windowDays)
	if err != nil {
		writeError(w, h.logger, "failed to load availability", err)
		return
	}

	resp := availabilityResponse{
		Today:              avail.Today,
		From:               avail.Scan.From,
		To:                 avail.Scan.To,
		SelectedDate:       avail.Selection.Date,
		Notice:             string(avail.Selection.Notice),
		SlotMinutes:        int(avail.Duration / time.Minute),
		Slots:              make([]slotItem, 0, len(avail.Slots)),
		SoonestAvailable:   avail.Scan.SoonestAvailable,
		OpenDates:          nonNilDates(avail.Scan.OpenDates),
		AvailableDates:     nonNilDates(avail.Scan.AvailableDates),
		MisconfiguredDates: nonNilDates(avail.Scan.MisconfiguredDates),
		Days:               make([]dayItem, 0, len(avail.Scan.Days)),
	}
	for _, s := range avail.Slots {
		resp.Slots = append(resp.Slots, slotItem{
			StartAt: s.Format(time.RFC3339),
			EndAt:   s.Add(avail.Duration).Format(time.RFC3339),
		})
	}
	for _, d := range avail.Scan.Days {
		resp.Days = append(resp.Days, dayItem{Date: d.Date, State: d.State, FreeSlots: d.FreeSlots, Reason: d.Reason})
	}
	writeJSON(w, http.StatusOK, resp)
}

func nonNilDates(ds []clock.Date) []clock.Date {
	if ds == nil {
		return []clock.Date{}
	}
	return ds
}
