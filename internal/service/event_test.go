package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astraietm/registration/internal/model"
)

func validEventRequest() model.CreateEventRequest {
	now := time.Now()
	return model.CreateEventRequest{
		Title:              "Hackathon",
		Venue:              "Lab 3",
		EventDate:          now.Add(72 * time.Hour),
		RegistrationStart:  now,
		RegistrationEnd:    now.Add(48 * time.Hour),
		RegistrationLimit:  100,
		IsRegistrationOpen: true,
	}
}

func TestCreateEvent(t *testing.T) {
	svc := NewEventService(newFakeStore())

	event, err := svc.Create(context.Background(), validEventRequest())
	require.NoError(t, err)
	assert.Equal(t, "Hackathon", event.Title)
	assert.Equal(t, "INR", event.Currency, "currency defaults to INR")
}

func TestCreateEventValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.CreateEventRequest)
	}{
		{"missing title", func(r *model.CreateEventRequest) { r.Title = " " }},
		{"negative limit", func(r *model.CreateEventRequest) { r.RegistrationLimit = -1 }},
		{"window inverted", func(r *model.CreateEventRequest) {
			r.RegistrationEnd = r.RegistrationStart.Add(-time.Hour)
		}},
		{"team bounds inconsistent", func(r *model.CreateEventRequest) {
			r.IsTeamEvent = true
			r.TeamSizeMin = 4
			r.TeamSizeMax = 2
		}},
		{"paid with zero amount", func(r *model.CreateEventRequest) {
			r.RequiresPayment = true
			r.PaymentAmount = 0
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewEventService(newFakeStore())
			req := validEventRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestPaidEventAmountConversion(t *testing.T) {
	svc := NewEventService(newFakeStore())
	req := validEventRequest()
	req.RequiresPayment = true
	req.PaymentAmount = 50.00

	event, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), event.AmountPaise)
}
