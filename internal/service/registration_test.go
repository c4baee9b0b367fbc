package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/repository"
)

func openFreeEvent(limit int) model.Event {
	now := time.Now()
	return model.Event{
		Title:              "Tech Quiz",
		Venue:              "Main Auditorium",
		EventDate:          now.Add(48 * time.Hour),
		RegistrationStart:  now.Add(-time.Hour),
		RegistrationEnd:    now.Add(time.Hour),
		RegistrationLimit:  limit,
		IsRegistrationOpen: true,
		Currency:           "INR",
	}
}

func testUser(id string) model.User {
	return model.User{ID: id, Email: id + "@example.com", Name: "User " + id}
}

func TestRegisterFreeEvent(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewRegistrationService(store, store, notifier)
	event := store.addEvent(openFreeEvent(10))

	reg, err := svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{EventID: event.ID})
	require.NoError(t, err)

	assert.Equal(t, model.StatusRegistered, reg.Status)
	assert.Equal(t, event.ID, reg.EventID)
	assert.Equal(t, "u1", reg.UserID)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, 1, notifier.count(), "ticket email queued exactly once")
}

func TestRegisterValidation(t *testing.T) {
	now := time.Now()

	notStarted := openFreeEvent(10)
	notStarted.RegistrationStart = now.Add(time.Second)
	notStarted.RegistrationEnd = now.Add(time.Hour)

	ended := openFreeEvent(10)
	ended.RegistrationStart = now.Add(-2 * time.Hour)
	ended.RegistrationEnd = now.Add(-time.Second)

	closed := openFreeEvent(10)
	closed.IsRegistrationOpen = false

	paid := openFreeEvent(10)
	paid.RequiresPayment = true
	paid.AmountPaise = 5000

	tests := []struct {
		name    string
		event   model.Event
		wantErr error
	}{
		{"window not started", notStarted, ErrRegistrationClosed},
		{"window ended", ended, ErrRegistrationClosed},
		{"flag closed", closed, ErrRegistrationClosed},
		{"paid event rejected", paid, ErrPaymentRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewRegistrationService(store, store, &fakeNotifier{})
			event := store.addEvent(tt.event)

			_, err := svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{EventID: event.ID})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, store.registrationCount(), "no registration created")
		})
	}
}

func TestRegisterUnknownEvent(t *testing.T) {
	store := newFakeStore()
	svc := NewRegistrationService(store, store, &fakeNotifier{})

	_, err := svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{EventID: "missing"})
	assert.ErrorIs(t, err, repository.ErrEventNotFound)

	_, err = svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterCapacityExceeded(t *testing.T) {
	store := newFakeStore()
	svc := NewRegistrationService(store, store, &fakeNotifier{})
	event := store.addEvent(openFreeEvent(1))

	_, err := svc.Register(context.Background(), testUser("a"), model.RegisterRequest{EventID: event.ID})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), testUser("b"), model.RegisterRequest{EventID: event.ID})
	assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
}

func TestRegisterDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := NewRegistrationService(store, store, &fakeNotifier{})
	event := store.addEvent(openFreeEvent(10))

	_, err := svc.Register(context.Background(), testUser("a"), model.RegisterRequest{EventID: event.ID})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), testUser("a"), model.RegisterRequest{EventID: event.ID})
	assert.ErrorIs(t, err, repository.ErrAlreadyRegistered)
}

func TestRegisterTeamBounds(t *testing.T) {
	team := openFreeEvent(10)
	team.IsTeamEvent = true
	team.TeamSizeMin = 2
	team.TeamSizeMax = 4

	tests := []struct {
		name    string
		request model.RegisterRequest
		wantErr error
	}{
		{"valid team", model.RegisterRequest{TeamName: "Bytes", TeamMembers: "alice, bob"}, nil},
		{"too small", model.RegisterRequest{TeamName: "Solo"}, ErrInvalidTeamSize},
		{"too large", model.RegisterRequest{TeamName: "Crowd", TeamMembers: "a, b, c, d"}, ErrInvalidTeamSize},
		{"missing team name", model.RegisterRequest{TeamMembers: "alice, bob"}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			svc := NewRegistrationService(store, store, &fakeNotifier{})
			event := store.addEvent(team)
			tt.request.EventID = event.ID

			_, err := svc.Register(context.Background(), testUser("u1"), tt.request)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestMyRegistrations(t *testing.T) {
	store := newFakeStore()
	svc := NewRegistrationService(store, store, &fakeNotifier{})
	quiz := store.addEvent(openFreeEvent(10))
	hack := store.addEvent(openFreeEvent(10))

	_, err := svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{EventID: quiz.ID})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{EventID: hack.ID})
	require.NoError(t, err)
	_, err = svc.Register(context.Background(), testUser("u2"), model.RegisterRequest{EventID: quiz.ID})
	require.NoError(t, err)

	// A cancelled row must never appear in the listing.
	store.mu.Lock()
	store.regs["cancelled"] = model.Registration{
		ID: "cancelled", EventID: quiz.ID, UserID: "u1", Status: model.StatusCancelled,
	}
	store.mu.Unlock()

	regs, err := svc.MyRegistrations(context.Background(), model.User{ID: "u1"})
	require.NoError(t, err)
	assert.Len(t, regs, 2)
	for _, reg := range regs {
		assert.Equal(t, "u1", reg.UserID)
		assert.True(t, reg.Status.Confirmed())
	}

	regs, err = svc.MyRegistrations(context.Background(), model.User{ID: "u3"})
	require.NoError(t, err)
	assert.Empty(t, regs)
}

// TestRegisterLastSeatRace exercises the correctness-critical property:
// N concurrent registrations racing for one remaining seat must produce
// exactly one success.
func TestRegisterLastSeatRace(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := NewRegistrationService(store, store, notifier)
	event := store.addEvent(openFreeEvent(1))

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(context.Background(), testUser(string(rune('a'+i))),
				model.RegisterRequest{EventID: event.ID})
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, repository.ErrCapacityExceeded)
		}
	}
	assert.Equal(t, 1, successes, "exactly one registration wins the last seat")
	assert.Equal(t, 1, store.registrationCount())
	assert.Equal(t, 1, notifier.count())
}
