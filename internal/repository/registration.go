package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astraietm/registration/internal/model"
)

// CreateRegistrationParams carries everything needed to confirm a seat.
type CreateRegistrationParams struct {
	EventID     string
	UserID      string
	UserEmail   string
	UserName    string
	TeamName    string
	TeamMembers string
	PhoneNumber string
	College     string
}

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db *pgxpool.Pool
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db *pgxpool.Pool) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// RegisterConfirmed performs a concurrency-safe free-event registration.
//
// A naive read-then-write sequence lets two transactions read the same
// confirmed count before either inserts, overshooting capacity. The
// event-row lock taken by lockEvent serialises contenders so only one
// transaction at a time can run the count-check-insert sequence.
func (r *RegistrationRepository) RegisterConfirmed(ctx context.Context, p CreateRegistrationParams) (*model.Registration, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	limit, err := lockEvent(ctx, tx, p.EventID)
	if err != nil {
		return nil, err
	}

	confirmed, err := r.hasConfirmedTx(ctx, tx, p.EventID, p.UserID)
	if err != nil {
		return nil, err
	}
	if confirmed {
		return nil, ErrAlreadyRegistered
	}

	count, err := confirmedCount(ctx, tx, p.EventID)
	if err != nil {
		return nil, err
	}
	if count >= limit {
		return nil, ErrCapacityExceeded
	}

	reg, err := insertConfirmed(ctx, tx, p)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, nil
}

func (r *RegistrationRepository) hasConfirmedTx(ctx context.Context, tx pgx.Tx, eventID, userID string) (bool, error) {
	var n int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		   AND status IN ('REGISTERED', 'ATTENDED')`,
		eventID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return n > 0, nil
}

// HasConfirmed reports whether the user already holds a confirmed
// registration for the event. Advisory read used before gateway calls;
// the confirming transaction re-checks under lock.
func (r *RegistrationRepository) HasConfirmed(ctx context.Context, eventID, userID string) (bool, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		   AND status IN ('REGISTERED', 'ATTENDED')`,
		eventID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check duplicate: %w", err)
	}
	return n > 0, nil
}

// ConfirmedCount returns the capacity ledger reading outside any
// transaction. Advisory only: order creation uses it to fail fast, the
// verification transaction re-checks under the event-row lock.
func (r *RegistrationRepository) ConfirmedCount(ctx context.Context, eventID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND status IN ('REGISTERED', 'ATTENDED')`,
		eventID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count confirmed registrations: %w", err)
	}
	return n, nil
}

// CheckIn consumes a ticket token. The status transition is a single
// guarded UPDATE, so two simultaneous scans of the same QR code resolve
// to exactly one granted and one already-used outcome.
func (r *RegistrationRepository) CheckIn(ctx context.Context, tok string) (reg *model.Registration, granted bool, err error) {
	reg, err = scanRegistration(r.db.QueryRow(ctx,
		`UPDATE registrations
		 SET status = 'ATTENDED', updated_at = now()
		 WHERE token = $1 AND status <> 'ATTENDED'
		 RETURNING `+registrationColumns,
		tok,
	))
	if err == nil {
		return reg, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("check in: %w", err)
	}

	// Nothing updated: either the ticket was already used or the token
	// does not exist.
	reg, err = scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE token = $1`,
		tok,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrTokenNotFound
		}
		return nil, false, fmt.Errorf("look up token: %w", err)
	}
	return reg, false, nil
}

// ListByUser returns the user's confirmed registrations, newest first.
func (r *RegistrationRepository) ListByUser(ctx context.Context, userID string) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 WHERE user_id = $1 AND status IN ('REGISTERED', 'ATTENDED')
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations for user: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// ListAll returns every registration, newest first. Admin use.
func (r *RegistrationRepository) ListAll(ctx context.Context) ([]model.Registration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+` FROM registrations
		 ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []model.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	return regs, rows.Err()
}

// DeleteAll removes every registration and, via cascade, every payment.
// Admin bulk-clear. Returns the number of rows removed.
func (r *RegistrationRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM registrations`)
	if err != nil {
		return 0, fmt.Errorf("delete registrations: %w", err)
	}
	return tag.RowsAffected(), nil
}
