package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/payment"
	"github.com/astraietm/registration/internal/repository"
)

// Keys under which registration intent travels in the gateway order's
// notes. The deferred-creation design stores no local rows at order
// time; verification re-fetches the order and trusts these fields.
const (
	noteEventID     = "event_id"
	noteUserID      = "user_id"
	noteUserEmail   = "user_email"
	noteUserName    = "user_name"
	noteTeamName    = "team_name"
	noteTeamMembers = "team_members"
	notePhoneNumber = "phone_number"
	noteCollege     = "college"
)

// PaymentService reconciles external gateway payments with
// registrations.
type PaymentService struct {
	events   EventStore
	regs     RegistrationStore
	payments PaymentStore
	gateway  payment.Gateway
	notifier TicketNotifier

	keyID  string
	secret string
	now    func() time.Time
}

// NewPaymentService constructs a PaymentService. keyID is the public
// gateway key returned to checkout clients; secret is the shared HMAC
// secret for signature verification.
func NewPaymentService(events EventStore, regs RegistrationStore, payments PaymentStore, gw payment.Gateway, notifier TicketNotifier, keyID, secret string) *PaymentService {
	return &PaymentService{
		events:   events,
		regs:     regs,
		payments: payments,
		gateway:  gw,
		notifier: notifier,
		keyID:    keyID,
		secret:   secret,
		now:      time.Now,
	}
}

// CreateOrder validates eligibility and registers an intended charge
// with the gateway. No local rows are created: the registration intent
// is encoded in the order's notes and only becomes a Registration when
// the payment verifies, so abandoned checkouts leave nothing behind.
// The capacity reading here is advisory; VerifyPayment re-checks it
// under lock at the moment the seat is actually granted.
func (s *PaymentService) CreateOrder(ctx context.Context, user model.User, req model.CreateOrderRequest) (*model.OrderHandle, error) {
	req.EventID = strings.TrimSpace(req.EventID)
	if req.EventID == "" {
		return nil, fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.RequiresPayment {
		return nil, ErrPaymentNotRequired
	}

	confirmed, err := s.regs.HasConfirmed(ctx, event.ID, user.ID)
	if err != nil {
		return nil, err
	}
	if confirmed {
		return nil, repository.ErrAlreadyRegistered
	}

	if err := validateWindow(event, s.now()); err != nil {
		return nil, err
	}
	if err := validateTeam(event, teamFields{req.TeamName, req.TeamMembers}); err != nil {
		return nil, err
	}

	count, err := s.regs.ConfirmedCount(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if count >= event.RegistrationLimit {
		return nil, repository.ErrCapacityExceeded
	}

	order, err := s.gateway.CreateOrder(ctx, payment.CreateOrderParams{
		AmountPaise: event.AmountPaise,
		Currency:    event.Currency,
		Receipt:     "reg_" + uuid.New().String(),
		Notes: map[string]string{
			noteEventID:     event.ID,
			noteUserID:      user.ID,
			noteUserEmail:   user.Email,
			noteUserName:    user.Name,
			noteTeamName:    strings.TrimSpace(req.TeamName),
			noteTeamMembers: strings.TrimSpace(req.TeamMembers),
			notePhoneNumber: strings.TrimSpace(req.PhoneNumber),
			noteCollege:     strings.TrimSpace(req.College),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create payment order: %w", err)
	}

	return &model.OrderHandle{
		OrderID:   order.ID,
		Amount:    event.AmountPaise,
		Currency:  event.Currency,
		KeyID:     s.keyID,
		EventName: event.Title,
	}, nil
}

// VerifyPayment reconciles a gateway checkout callback. It is
// idempotent on the order id: a replayed confirmation returns the
// already-confirmed registration and sends no second email.
func (s *PaymentService) VerifyPayment(ctx context.Context, req model.VerifyPaymentRequest) (*model.Registration, error) {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, fmt.Errorf("%w: missing payment details", ErrInvalidInput)
	}

	if !payment.VerifySignature(req.OrderID, req.PaymentID, req.Signature, s.secret) {
		// Record the attempt as FAILED so it is auditable, then reject
		// without leaking which part of the signature was wrong.
		if err := s.payments.RecordFailure(ctx, req.OrderID, req.PaymentID, req.Signature, 0, "INR"); err != nil {
			return nil, err
		}
		return nil, ErrInvalidSignature
	}

	order, err := s.gateway.FetchOrder(ctx, req.OrderID)
	if err != nil {
		// Only a gateway not-found is the caller's problem; an outage
		// must surface as a dependency failure, not a 404.
		if errors.Is(err, payment.ErrOrderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetch order %s: %w", req.OrderID, err)
	}

	eventID := order.Notes[noteEventID]
	userID := order.Notes[noteUserID]
	if eventID == "" || userID == "" {
		return nil, fmt.Errorf("%w: order carries no registration intent", ErrInvalidInput)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	reg, replayed, err := s.payments.ConfirmPayment(ctx, repository.ConfirmPaymentParams{
		OrderID:     req.OrderID,
		PaymentID:   req.PaymentID,
		Signature:   req.Signature,
		AmountPaise: order.AmountPaise,
		Currency:    order.Currency,
		Registration: repository.CreateRegistrationParams{
			EventID:     eventID,
			UserID:      userID,
			UserEmail:   order.Notes[noteUserEmail],
			UserName:    order.Notes[noteUserName],
			TeamName:    order.Notes[noteTeamName],
			TeamMembers: order.Notes[noteTeamMembers],
			PhoneNumber: order.Notes[notePhoneNumber],
			College:     order.Notes[noteCollege],
		},
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		s.notifier.QueueTicket(*reg, *event)
	}
	return reg, nil
}
