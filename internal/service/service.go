// Package service implements business logic, validation, and
// orchestration between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/repository"
)

// ErrInvalidInput is returned for missing or malformed request fields.
var ErrInvalidInput = errors.New("invalid input")

// ErrRegistrationClosed is returned when the event's open flag is unset
// or the current time falls outside the registration window.
var ErrRegistrationClosed = errors.New("registration closed")

// ErrPaymentRequired is returned when a paid event is sent through the
// free registration flow.
var ErrPaymentRequired = errors.New("event requires payment")

// ErrPaymentNotRequired is returned when an order is requested for a
// free event.
var ErrPaymentNotRequired = errors.New("event does not require payment")

// ErrInvalidSignature is returned when a payment callback fails
// signature verification.
var ErrInvalidSignature = errors.New("invalid payment signature")

// ErrInvalidTeamSize is returned when the team does not fit the
// event's team-size bounds.
var ErrInvalidTeamSize = errors.New("invalid team size")

// EventStore is the event persistence the services depend on.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// RegistrationStore is the registration persistence the services
// depend on. The transactional methods own their atomic sections.
type RegistrationStore interface {
	RegisterConfirmed(ctx context.Context, p repository.CreateRegistrationParams) (*model.Registration, error)
	HasConfirmed(ctx context.Context, eventID, userID string) (bool, error)
	ConfirmedCount(ctx context.Context, eventID string) (int, error)
	CheckIn(ctx context.Context, token string) (*model.Registration, bool, error)
	ListByUser(ctx context.Context, userID string) ([]model.Registration, error)
	ListAll(ctx context.Context) ([]model.Registration, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// PaymentStore is the payment persistence the services depend on.
type PaymentStore interface {
	ConfirmPayment(ctx context.Context, p repository.ConfirmPaymentParams) (*model.Registration, bool, error)
	RecordFailure(ctx context.Context, orderID, paymentID, signature string, amountPaise int64, currency string) error
}

// SettingsStore is the runtime settings persistence.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*model.Setting, error)
	Set(ctx context.Context, key, value string) (*model.Setting, error)
}

// TicketNotifier queues a ticket email for asynchronous delivery.
// Delivery is fire-and-forget: failures are observability events and
// never reach the request path.
type TicketNotifier interface {
	QueueTicket(reg model.Registration, event model.Event)
}

// validateWindow maps the event's registration window onto
// ErrRegistrationClosed with a caller-actionable message.
func validateWindow(event *model.Event, now time.Time) error {
	if !event.IsRegistrationOpen {
		return fmt.Errorf("%w: registration is currently closed", ErrRegistrationClosed)
	}
	if now.Before(event.RegistrationStart) {
		return fmt.Errorf("%w: registration starts on %s",
			ErrRegistrationClosed, event.RegistrationStart.Format(time.RFC1123))
	}
	if now.After(event.RegistrationEnd) {
		return fmt.Errorf("%w: registration deadline has passed", ErrRegistrationClosed)
	}
	return nil
}

// teamSize counts the comma-separated member names, including the
// registrant themselves.
func teamSize(members string) int {
	n := 1
	for _, m := range strings.Split(members, ",") {
		if strings.TrimSpace(m) != "" {
			n++
		}
	}
	return n
}

// validateTeam applies the event's team-size bounds.
func validateTeam(event *model.Event, req teamFields) error {
	if !event.IsTeamEvent {
		return nil
	}
	if strings.TrimSpace(req.teamName) == "" {
		return fmt.Errorf("%w: team_name is required for team events", ErrInvalidInput)
	}
	if !event.ValidTeamSize(teamSize(req.teamMembers)) {
		return ErrInvalidTeamSize
	}
	return nil
}

type teamFields struct {
	teamName    string
	teamMembers string
}
