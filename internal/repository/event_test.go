package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetByIDMalformedID(t *testing.T) {
	repo := NewEventRepository(nil)

	// Non-UUID ids must resolve to not-found before any query runs:
	// the UUID column would otherwise reject the comparison outright.
	for _, id := range []string{"abc", "123", "robert'); DROP TABLE events;--", ""} {
		_, err := repo.GetByID(context.Background(), id)
		assert.ErrorIs(t, err, ErrEventNotFound, "id %q", id)
	}
}
