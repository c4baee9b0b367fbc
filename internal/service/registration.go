package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/repository"
)

// RegistrationService handles the free-event registration flow. Paid
// events are routed to the PaymentService instead; no seat is granted
// here for them.
type RegistrationService struct {
	events   EventStore
	regs     RegistrationStore
	notifier TicketNotifier
	now      func() time.Time
}

// NewRegistrationService constructs a RegistrationService.
func NewRegistrationService(events EventStore, regs RegistrationStore, notifier TicketNotifier) *RegistrationService {
	return &RegistrationService{
		events:   events,
		regs:     regs,
		notifier: notifier,
		now:      time.Now,
	}
}

// Register validates eligibility and confirms a seat for a free event.
// The capacity check and the confirming insert run atomically in the
// store; everything before that is pre-validation outside any lock.
func (s *RegistrationService) Register(ctx context.Context, user model.User, req model.RegisterRequest) (*model.Registration, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	if req.EventID == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.RequiresPayment {
		return nil, ErrPaymentRequired
	}
	if err := validateWindow(event, s.now()); err != nil {
		return nil, err
	}
	if err := validateTeam(event, teamFields{req.TeamName, req.TeamMembers}); err != nil {
		return nil, err
	}

	reg, err := s.regs.RegisterConfirmed(ctx, repository.CreateRegistrationParams{
		EventID:     event.ID,
		UserID:      user.ID,
		UserEmail:   user.Email,
		UserName:    user.Name,
		TeamName:    strings.TrimSpace(req.TeamName),
		TeamMembers: strings.TrimSpace(req.TeamMembers),
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		College:     strings.TrimSpace(req.College),
	})
	if err != nil {
		return nil, err
	}

	s.notifier.QueueTicket(*reg, *event)
	return reg, nil
}

// MyRegistrations returns the caller's confirmed registrations, newest
// first. PENDING and CANCELLED rows are never shown.
func (s *RegistrationService) MyRegistrations(ctx context.Context, user model.User) ([]model.Registration, error) {
	return s.regs.ListByUser(ctx, user.ID)
}
