// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/astraietm/registration/internal/auth"
	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/payment"
	"github.com/astraietm/registration/internal/repository"
	"github.com/astraietm/registration/internal/service"
)

// Handler holds all HTTP handlers for the registration API.
type Handler struct {
	registrations *service.RegistrationService
	payments      *service.PaymentService
	checkins      *service.CheckInService
	events        *service.EventService
	admin         *service.AdminService
	log           *slog.Logger
}

// New constructs a Handler.
func New(
	registrations *service.RegistrationService,
	payments *service.PaymentService,
	checkins *service.CheckInService,
	events *service.EventService,
	admin *service.AdminService,
	log *slog.Logger,
) *Handler {
	return &Handler{
		registrations: registrations,
		payments:      payments,
		checkins:      checkins,
		events:        events,
		admin:         admin,
		log:           log,
	}
}

// ─── Helper utilities ────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps domain errors onto the HTTP taxonomy:
// validation and state conflicts are 400, unknown resources are 404,
// everything unexpected is a logged 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrEventNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	case errors.Is(err, repository.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "ticket token not found")
	case errors.Is(err, payment.ErrOrderNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "payment order not found")
	case errors.Is(err, repository.ErrCapacityExceeded):
		writeError(w, http.StatusBadRequest, "event is fully booked")
	case errors.Is(err, repository.ErrAlreadyRegistered):
		writeError(w, http.StatusBadRequest, "you are already registered for this event")
	case errors.Is(err, service.ErrInvalidSignature):
		writeError(w, http.StatusBadRequest, "payment verification failed: invalid signature")
	case errors.Is(err, service.ErrRegistrationClosed),
		errors.Is(err, service.ErrPaymentRequired),
		errors.Is(err, service.ErrPaymentNotRequired),
		errors.Is(err, service.ErrInvalidTeamSize),
		errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.log.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// ─── Public reads ────────────────────────────────────────────────────────────

// HealthCheck handles GET /health.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListEvents handles GET /events.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	// Empty array rather than null for client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /events/{id}.
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.events.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// ─── Registration and payment ────────────────────────────────────────────────

// Register handles POST /register for free events.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.registrations.Register(r.Context(), user, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// MyRegistrations handles GET /my-registrations: the caller's own
// confirmed registrations.
func (h *Handler) MyRegistrations(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	regs, err := h.registrations.MyRegistrations(r.Context(), user)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// CreateOrder handles POST /payment/create-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req model.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	handle, err := h.payments.CreateOrder(r.Context(), user, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

// VerifyPayment handles POST /payment/verify. Replayed confirmations
// return the already-confirmed registration with the same 200.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req model.VerifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.payments.VerifyPayment(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"message":      "payment verified successfully",
		"registration": reg,
	})
}

// ─── Check-in ────────────────────────────────────────────────────────────────

// VerifyToken handles GET /verify/{token}. Both granted and
// already-used outcomes return 200 so scanner clients can render them;
// only unknown tokens are 404.
func (h *Handler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	result, err := h.checkins.CheckIn(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ─── Admin ───────────────────────────────────────────────────────────────────

// CreateEvent handles POST /admin/events.
func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.events.Create(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// ListRegistrations handles GET /admin/registrations.
func (h *Handler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	regs, err := h.admin.ListRegistrations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// ClearRegistrations handles DELETE /admin/registrations. Payments are
// removed by cascade.
func (h *Handler) ClearRegistrations(w http.ResponseWriter, r *http.Request) {
	count, err := h.admin.ClearRegistrations(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "registrations cleared",
		"deleted_count": count,
	})
}

// PutSetting handles PUT /admin/settings/{key}.
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	setting, err := h.admin.SetSetting(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, setting)
}
