package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/astraietm/registration/internal/model"
)

// EventService handles event reads and admin event creation.
type EventService struct {
	events EventStore
}

// NewEventService constructs an EventService.
func NewEventService(events EventStore) *EventService {
	return &EventService{events: events}
}

// Create validates the admin payload and creates an event.
func (s *EventService) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if req.RegistrationLimit < 0 {
		return nil, fmt.Errorf("%w: registration_limit must not be negative", ErrInvalidInput)
	}
	if !req.RegistrationEnd.After(req.RegistrationStart) {
		return nil, fmt.Errorf("%w: registration_end must be after registration_start", ErrInvalidInput)
	}
	if req.IsTeamEvent && (req.TeamSizeMin < 1 || req.TeamSizeMax < req.TeamSizeMin) {
		return nil, fmt.Errorf("%w: team size bounds are inconsistent", ErrInvalidInput)
	}
	if req.RequiresPayment && req.PaymentAmount <= 0 {
		return nil, fmt.Errorf("%w: payment_amount must be positive for paid events", ErrInvalidInput)
	}
	if req.Currency == "" {
		req.Currency = "INR"
	}
	return s.events.Create(ctx, req)
}

// List returns all events.
func (s *EventService) List(ctx context.Context) ([]model.Event, error) {
	return s.events.List(ctx)
}

// Get returns a single event by id.
func (s *EventService) Get(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}
	return s.events.GetByID(ctx, id)
}
