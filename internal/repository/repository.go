// Package repository implements all database queries for the
// registration platform. It uses pgx directly (no ORM) so the locking
// behaviour of every statement stays visible.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/token"
)

// ErrEventNotFound is returned when a requested event does not exist.
var ErrEventNotFound = errors.New("event not found")

// ErrTokenNotFound is returned when no registration holds a ticket token.
var ErrTokenNotFound = errors.New("ticket token not found")

// ErrPaymentNotFound is returned when no payment matches a gateway order.
var ErrPaymentNotFound = errors.New("payment record not found")

// ErrSettingNotFound is returned for unknown runtime setting keys.
var ErrSettingNotFound = errors.New("setting not found")

// ErrCapacityExceeded is returned when an event has no remaining seats.
var ErrCapacityExceeded = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the user already holds a
// confirmed registration for the event.
var ErrAlreadyRegistered = errors.New("already registered for this event")

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a violation of the named
// unique constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == constraint
}

const registrationColumns = `id, event_id, user_id, user_email, user_name,
	team_name, team_members, phone_number, college, status, token,
	created_at, updated_at`

func scanRegistration(row pgx.Row) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(
		&reg.ID, &reg.EventID, &reg.UserID, &reg.UserEmail, &reg.UserName,
		&reg.TeamName, &reg.TeamMembers, &reg.PhoneNumber, &reg.College,
		&reg.Status, &reg.Token, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

// lockEvent acquires an exclusive row-level lock on the event and
// returns its registration limit. Every transaction that confirms a
// seat takes this lock first, so concurrent confirmations for the same
// event serialize here instead of racing the capacity count.
func lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (limit int, err error) {
	err = tx.QueryRow(ctx,
		`SELECT registration_limit FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrEventNotFound
		}
		return 0, fmt.Errorf("lock event row: %w", err)
	}
	return limit, nil
}

// confirmedCount is the capacity ledger: the number of registrations
// holding a seat. PENDING and CANCELLED rows never count, so abandoned
// payment attempts do not block seats. Must run inside the same
// transaction as the confirming insert.
func confirmedCount(ctx context.Context, tx pgx.Tx, eventID string) (int, error) {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND status IN ('REGISTERED', 'ATTENDED')`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed registrations: %w", err)
	}
	return n, nil
}

// insertConfirmed creates a REGISTERED row with a freshly issued token.
// Token collisions are astronomically unlikely; the retry loop is a
// safety net around the unique index, not the primary mechanism.
func insertConfirmed(ctx context.Context, tx pgx.Tx, p CreateRegistrationParams) (*model.Registration, error) {
	// A leftover unconfirmed row (e.g. CANCELLED, or PENDING from an
	// older release) would trip the (user, event) unique index; clear
	// it so the fresh confirmation can land.
	_, err := tx.Exec(ctx,
		`DELETE FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		   AND status NOT IN ('REGISTERED', 'ATTENDED')`,
		p.EventID, p.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("clear stale registration: %w", err)
	}

	for attempt := 0; attempt < 5; attempt++ {
		tok, err := token.New()
		if err != nil {
			return nil, err
		}
		reg, err := scanRegistration(tx.QueryRow(ctx,
			`INSERT INTO registrations
			   (id, event_id, user_id, user_email, user_name, team_name,
			    team_members, phone_number, college, status, token)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'REGISTERED', $10)
			 RETURNING `+registrationColumns,
			uuid.New().String(), p.EventID, p.UserID, p.UserEmail, p.UserName, p.TeamName,
			p.TeamMembers, p.PhoneNumber, p.College, tok,
		))
		if err == nil {
			return reg, nil
		}
		if isUniqueViolation(err, "registrations_token_key") {
			continue
		}
		if isUniqueViolation(err, "registrations_user_event_key") {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return nil, errors.New("exhausted token generation attempts")
}
