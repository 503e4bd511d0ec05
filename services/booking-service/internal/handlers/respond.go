package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/schedule"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const maxListLimit = 500

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps core errors onto status codes. Unknown errors are logged
// and hidden behind a 500.
func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, booking.ErrSlotTaken):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, schedule.ErrMisconfigured),
		errors.Is(err, schedule.ErrDayClosed),
		errors.Is(err, booking.ErrInPast),
		errors.Is(err, booking.ErrOutsideHours),
		errors.Is(err, booking.ErrOffGrid):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, booking.ErrAccountInactive):
		http.Error(w, err.Error(), http.StatusForbidden)
	case storage.IsNotFound(err):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		logger.Error(msg, "err", err)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	return false
}

func parseLimit(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > maxListLimit {
		return 0, errors.New("limit must be between 1 and 500")
	}
	return n, nil
}

func parseOptionalDate(raw string) (*clock.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := clock.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseStartAt accepts RFC 3339 or a wall-clock time in the business zone.
func parseStartAt(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid start_at")
}

type appointmentItem struct {
	AppointmentID string `json:"appointment_id"`
	AccountID     string `json:"account_id"`
	StartAt       string `json:"start_at"`
	EndAt         string `json:"end_at"`
	Status        string `json:"status"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CancelReason  string `json:"cancel_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	item := appointmentItem{
		AppointmentID: a.ID,
		AccountID:     a.AccountID,
		StartAt:       a.StartAt.Format(time.RFC3339),
		EndAt:         a.EndAt.Format(time.RFC3339),
		Status:        string(a.Status),
		CancelReason:  a.CancelReason,
		CreatedAt:     a.CreatedAt.Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		item.CancelledAt = a.CancelledAt.Format(time.RFC3339)
	}
	return item
}

func toAppointmentItems(appts []model.Appointment) []appointmentItem {
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	return items
}
