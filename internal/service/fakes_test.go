package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/payment"
	"github.com/astraietm/registration/internal/repository"
	"github.com/astraietm/registration/internal/token"
)

// fakeStore is an in-memory stand-in for the repository layer. A single
// mutex serializes every method, which is the same contract the real
// store provides through row locks and transactions.
type fakeStore struct {
	mu       sync.Mutex
	events   map[string]model.Event
	regs     map[string]model.Registration // keyed by registration id
	payments map[string]model.Payment      // keyed by gateway order id
	settings map[string]model.Setting
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:   map[string]model.Event{},
		regs:     map[string]model.Registration{},
		payments: map[string]model.Payment{},
		settings: map[string]model.Setting{},
	}
}

func (s *fakeStore) addEvent(e model.Event) model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	s.events[e.ID] = e
	return e
}

func (s *fakeStore) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := model.Event{
		ID:                 uuid.New().String(),
		Title:              req.Title,
		Venue:              req.Venue,
		EventDate:          req.EventDate,
		RegistrationStart:  req.RegistrationStart,
		RegistrationEnd:    req.RegistrationEnd,
		RegistrationLimit:  req.RegistrationLimit,
		IsRegistrationOpen: req.IsRegistrationOpen,
		IsTeamEvent:        req.IsTeamEvent,
		TeamSizeMin:        req.TeamSizeMin,
		TeamSizeMax:        req.TeamSizeMax,
		RequiresPayment:    req.RequiresPayment,
		AmountPaise:        model.ToPaise(req.PaymentAmount),
		Currency:           req.Currency,
		CreatedAt:          time.Now(),
	}
	s.events[e.ID] = e
	return &e, nil
}

func (s *fakeStore) List(context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	return &e, nil
}

func (s *fakeStore) confirmedCountLocked(eventID string) int {
	n := 0
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.Status.Confirmed() {
			n++
		}
	}
	return n
}

func (s *fakeStore) hasConfirmedLocked(eventID, userID string) bool {
	for _, reg := range s.regs {
		if reg.EventID == eventID && reg.UserID == userID && reg.Status.Confirmed() {
			return true
		}
	}
	return false
}

func (s *fakeStore) insertConfirmedLocked(p repository.CreateRegistrationParams) (*model.Registration, error) {
	tok, err := token.New()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	reg := model.Registration{
		ID:          uuid.New().String(),
		EventID:     p.EventID,
		UserID:      p.UserID,
		UserEmail:   p.UserEmail,
		UserName:    p.UserName,
		TeamName:    p.TeamName,
		TeamMembers: p.TeamMembers,
		PhoneNumber: p.PhoneNumber,
		College:     p.College,
		Status:      model.StatusRegistered,
		Token:       tok,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.regs[reg.ID] = reg
	return &reg, nil
}

func (s *fakeStore) RegisterConfirmed(_ context.Context, p repository.CreateRegistrationParams) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[p.EventID]
	if !ok {
		return nil, repository.ErrEventNotFound
	}
	if s.hasConfirmedLocked(p.EventID, p.UserID) {
		return nil, repository.ErrAlreadyRegistered
	}
	if s.confirmedCountLocked(p.EventID) >= event.RegistrationLimit {
		return nil, repository.ErrCapacityExceeded
	}
	return s.insertConfirmedLocked(p)
}

func (s *fakeStore) HasConfirmed(_ context.Context, eventID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasConfirmedLocked(eventID, userID), nil
}

func (s *fakeStore) ConfirmedCount(_ context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.confirmedCountLocked(eventID), nil
}

func (s *fakeStore) CheckIn(_ context.Context, tok string) (*model.Registration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, reg := range s.regs {
		if reg.Token != tok {
			continue
		}
		if reg.Status == model.StatusAttended {
			return &reg, false, nil
		}
		reg.Status = model.StatusAttended
		reg.UpdatedAt = time.Now()
		s.regs[id] = reg
		return &reg, true, nil
	}
	return nil, false, repository.ErrTokenNotFound
}

func (s *fakeStore) ListByUser(_ context.Context, userID string) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, reg := range s.regs {
		if reg.UserID == userID && reg.Status.Confirmed() {
			out = append(out, reg)
		}
	}
	return out, nil
}

func (s *fakeStore) ListAll(context.Context) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Registration
	for _, reg := range s.regs {
		out = append(out, reg)
	}
	return out, nil
}

func (s *fakeStore) DeleteAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.regs))
	s.regs = map[string]model.Registration{}
	s.payments = map[string]model.Payment{}
	return n, nil
}

func (s *fakeStore) ConfirmPayment(_ context.Context, p repository.ConfirmPaymentParams) (*model.Registration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pay, ok := s.payments[p.OrderID]; ok && pay.Status == model.PaymentSuccess {
		reg, ok := s.regs[pay.RegistrationID]
		if !ok {
			return nil, false, fmt.Errorf("fake: payment %s has no registration", p.OrderID)
		}
		return &reg, true, nil
	}

	event, ok := s.events[p.Registration.EventID]
	if !ok {
		return nil, false, repository.ErrEventNotFound
	}
	if s.hasConfirmedLocked(p.Registration.EventID, p.Registration.UserID) {
		return nil, false, repository.ErrAlreadyRegistered
	}
	if s.confirmedCountLocked(p.Registration.EventID) >= event.RegistrationLimit {
		return nil, false, repository.ErrCapacityExceeded
	}

	reg, err := s.insertConfirmedLocked(p.Registration)
	if err != nil {
		return nil, false, err
	}
	now := time.Now()
	s.payments[p.OrderID] = model.Payment{
		ID:             uuid.New().String(),
		RegistrationID: reg.ID,
		OrderID:        p.OrderID,
		PaymentID:      p.PaymentID,
		Signature:      p.Signature,
		AmountPaise:    p.AmountPaise,
		Currency:       p.Currency,
		Status:         model.PaymentSuccess,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return reg, false, nil
}

func (s *fakeStore) RecordFailure(_ context.Context, orderID, paymentID, signature string, amountPaise int64, currency string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pay, ok := s.payments[orderID]; ok && pay.Status == model.PaymentSuccess {
		return nil // SUCCESS is immutable
	}
	now := time.Now()
	s.payments[orderID] = model.Payment{
		ID:          uuid.New().String(),
		OrderID:     orderID,
		PaymentID:   paymentID,
		Signature:   signature,
		AmountPaise: amountPaise,
		Currency:    currency,
		Status:      model.PaymentFailed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return nil
}

func (s *fakeStore) Get(_ context.Context, key string) (*model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[key]
	if !ok {
		return nil, repository.ErrSettingNotFound
	}
	return &setting, nil
}

func (s *fakeStore) Set(_ context.Context, key, value string) (*model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting, ok := s.settings[key]
	if !ok {
		setting = model.Setting{Key: key, Version: 0}
	}
	setting.Value = value
	setting.Version++
	setting.UpdatedAt = time.Now()
	s.settings[key] = setting
	return &setting, nil
}

// paymentByOrder is a test helper.
func (s *fakeStore) paymentByOrder(orderID string) (model.Payment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pay, ok := s.payments[orderID]
	return pay, ok
}

// registrationCount is a test helper.
func (s *fakeStore) registrationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.regs)
}

// fakeNotifier records queued ticket emails.
type fakeNotifier struct {
	mu      sync.Mutex
	tickets []model.Registration
}

func (n *fakeNotifier) QueueTicket(reg model.Registration, _ model.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tickets = append(n.tickets, reg)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.tickets)
}

// fakeGateway is an in-memory payment gateway.
type fakeGateway struct {
	mu        sync.Mutex
	orders    map[string]payment.Order
	createErr error
	fetchErr  error
	seq       int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: map[string]payment.Order{}}
}

func (g *fakeGateway) CreateOrder(_ context.Context, p payment.CreateOrderParams) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.seq++
	order := payment.Order{
		ID:          fmt.Sprintf("order_%03d", g.seq),
		AmountPaise: p.AmountPaise,
		Currency:    p.Currency,
		Receipt:     p.Receipt,
		Notes:       p.Notes,
	}
	g.orders[order.ID] = order
	return &order, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, orderID string) (*payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	order, ok := g.orders[orderID]
	if !ok {
		return nil, payment.ErrOrderNotFound
	}
	return &order, nil
}
