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

type Booker interface {
	Book(ctx context.Context, accountID string, startAt time.Time) (model.Appointment, error)
}

type AccountAppointments interface {
	ListForAccount(ctx context.Context, accountID string, limit int) ([]model.Appointment, error)
}

type BookingHandler struct {
	booker       Booker
	appointments AccountAppointments
	loc          *time.Location
	logger       *slog.Logger
}

func NewBookingHandler(booker Booker, appointments AccountAppointments, loc *time.Location, logger *slog.Logger) *BookingHandler {
	if loc == nil {
		loc = time.Local
	}
	return &BookingHandler{booker: booker, appointments: appointments, loc: loc, logger: logger}
}

type createBookingRequest struct {
	StartAt   string `json:"start_at"`
	AccountID string `json:"account_id"`
}

// Create books a slot for the caller. Admins may book on behalf of another
// account.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	startAt, err := parseStartAt(req.StartAt, h.loc)
	if err != nil {
		http.Error(w, "invalid start_at", http.StatusBadRequest)
		return
	}

	accountID := p.AccountID
	if target := strings.TrimSpace(req.AccountID); target != "" && target != p.AccountID {
		if p.Role != model.RoleAdmin {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		accountID = target
	}

	appt, err := h.booker.Book(r.Context(), accountID, startAt)
	if err != nil {
		writeError(w, h.logger, "failed to book appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentItem(appt))
}

// Mine lists the caller's appointments.
func (h *BookingHandler) Mine(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	appts, err := h.appointments.ListForAccount(r.Context(), p.AccountID, limit)
	if err != nil {
		writeError(w, h.logger, "failed to list appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": toAppointmentItems(appts)})
}
