package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type AppointmentManager interface {
	Cancel(ctx context.Context, appointmentID, reason string) (model.Appointment, error)
	Delete(ctx context.Context, appointmentID string) error
}

type AppointmentLister interface {
	List(ctx context.Context, from, to time.Time, limit int) ([]model.Appointment, error)
}

type AdminHandler struct {
	manager AppointmentManager
	lister  AppointmentLister
	loc     *time.Location
	logger  *slog.Logger
}

func NewAdminHandler(manager AppointmentManager, lister AppointmentLister, loc *time.Location, logger *slog.Logger) *AdminHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AdminHandler{manager: manager, lister: lister, loc: loc, logger: logger}
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

// Appointments lists (GET ?from=&to=&limit=) or deletes (DELETE ?id=).
func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodDelete) {
		return
	}
	q := r.URL.Query()

	if r.Method == http.MethodDelete {
		id := strings.TrimSpace(q.Get("id"))
		if id == "" {
			http.Error(w, "missing id", http.StatusBadRequest)
			return
		}
		if err := h.manager.Delete(r.Context(), id); err != nil {
			writeError(w, h.logger, "failed to delete appointment", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	limit, err := parseLimit(q.Get("limit"), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var from, to time.Time
	if d, err := parseOptionalDate(q.Get("from")); err != nil {
		http.Error(w, "invalid from", http.StatusBadRequest)
		return
	} else if d != nil {
		from = d.Start(h.loc)
	}
	if d, err := parseOptionalDate(q.Get("to")); err != nil {
		http.Error(w, "invalid to", http.StatusBadRequest)
		return
	} else if d != nil {
		to = d.AddDays(1).Start(h.loc)
	}

	appts, err := h.lister.List(r.Context(), from, to, limit)
	if err != nil {
		writeError(w, h.logger, "failed to list appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": toAppointmentItems(appts)})
}

func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "missing appointment_id", http.StatusBadRequest)
		return
	}

	appt, err := h.manager.Cancel(r.Context(), req.AppointmentID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, h.logger, "failed to cancel appointment", err)
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentItem(appt))
}
