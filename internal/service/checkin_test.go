package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/repository"
)

func confirmedRegistration(t *testing.T, store *fakeStore) *model.Registration {
	t.Helper()
	event := store.addEvent(openFreeEvent(10))
	svc := NewRegistrationService(store, store, &fakeNotifier{})
	reg, err := svc.Register(context.Background(), testUser("u1"), model.RegisterRequest{EventID: event.ID})
	require.NoError(t, err)
	return reg
}

func TestCheckIn(t *testing.T) {
	store := newFakeStore()
	reg := confirmedRegistration(t, store)
	svc := NewCheckInService(store)

	first, err := svc.CheckIn(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.True(t, first.Valid)
	assert.Equal(t, model.StatusAttended, first.Registrant.Status)
	assert.True(t, first.Registrant.IsUsed())

	second, err := svc.CheckIn(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.False(t, second.Valid, "second scan reports already used")
	assert.Equal(t, reg.ID, second.Registrant.ID)

	third, err := svc.CheckIn(context.Background(), reg.Token)
	require.NoError(t, err)
	assert.False(t, third.Valid, "every later scan stays already used")
}

func TestCheckInUnknownToken(t *testing.T) {
	svc := NewCheckInService(newFakeStore())

	_, err := svc.CheckIn(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, repository.ErrTokenNotFound)

	_, err = svc.CheckIn(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

// TestCheckInConcurrentScans verifies the compare-and-set transition:
// two simultaneous scans of the same QR code resolve to exactly one
// granted and one already-used outcome.
func TestCheckInConcurrentScans(t *testing.T) {
	store := newFakeStore()
	reg := confirmedRegistration(t, store)
	svc := NewCheckInService(store)

	const n = 8
	var wg sync.WaitGroup
	results := make([]*model.CheckInResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.CheckIn(context.Background(), reg.Token)
			require.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	granted := 0
	for _, res := range results {
		if res.Valid {
			granted++
		}
	}
	assert.Equal(t, 1, granted, "exactly one scan is granted")
}
