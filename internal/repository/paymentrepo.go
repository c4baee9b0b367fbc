package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astraietm/registration/internal/model"
)

// ConfirmPaymentParams carries a verified gateway payment together with
// the registration intent recovered from the order's notes.
type ConfirmPaymentParams struct {
	OrderID     string
	PaymentID   string
	Signature   string
	AmountPaise int64
	Currency    string

	Registration CreateRegistrationParams
}

// PaymentRepository handles persistence for payments and the
// registration rows they confirm.
type PaymentRepository struct {
	db *pgxpool.Pool
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// ConfirmPayment finalises a verified payment as one atomic unit:
// replay detection, capacity re-check and registration insert all run
// inside a single transaction.
//
// Gateways deliver confirmations more than once, and sometimes
// concurrently. A FOR UPDATE on the payment row alone is not enough:
// for a first-time order no row exists, so nothing is locked and two
// simultaneous deliveries would both pass the replay check. The
// sentinel insert below claims the order id's unique slot first, which
// blocks a concurrent delivery of the same order until this
// transaction resolves; the loser then sees the committed SUCCESS row
// and takes the replay path. A seat promised at order creation may be
// gone by the time payment completes, so capacity is re-checked here
// under the event-row lock, never trusted from order-creation time.
func (r *PaymentRepository) ConfirmPayment(ctx context.Context, p ConfirmPaymentParams) (reg *model.Registration, replayed bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// Claim the order id. Rolls back with the transaction if the
	// confirmation fails, and does nothing when a row already exists.
	_, err = tx.Exec(ctx,
		`INSERT INTO payments (id, razorpay_order_id, amount_paise, currency)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (razorpay_order_id) DO NOTHING`,
		uuid.New().String(), p.OrderID, p.AmountPaise, p.Currency,
	)
	if err != nil {
		return nil, false, fmt.Errorf("claim payment order: %w", err)
	}

	var (
		payStatus model.PaymentStatus
		regID     *string
	)
	err = tx.QueryRow(ctx,
		`SELECT status, registration_id FROM payments
		 WHERE razorpay_order_id = $1 FOR UPDATE`,
		p.OrderID,
	).Scan(&payStatus, &regID)
	if err != nil {
		return nil, false, fmt.Errorf("lock payment row: %w", err)
	}
	if payStatus == model.PaymentSuccess && regID != nil {
		reg, err = scanRegistration(tx.QueryRow(ctx,
			`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`,
			*regID,
		))
		if err != nil {
			return nil, false, fmt.Errorf("load confirmed registration: %w", err)
		}
		if err = tx.Commit(ctx); err != nil {
			return nil, false, fmt.Errorf("commit transaction: %w", err)
		}
		return reg, true, nil
	}

	limit, err := lockEvent(ctx, tx, p.Registration.EventID)
	if err != nil {
		return nil, false, err
	}

	var dup int
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM registrations
		 WHERE event_id = $1 AND user_id = $2
		   AND status IN ('REGISTERED', 'ATTENDED')`,
		p.Registration.EventID, p.Registration.UserID,
	).Scan(&dup)
	if err != nil {
		return nil, false, fmt.Errorf("check duplicate: %w", err)
	}
	if dup > 0 {
		return nil, false, ErrAlreadyRegistered
	}

	count, err := confirmedCount(ctx, tx, p.Registration.EventID)
	if err != nil {
		return nil, false, err
	}
	if count >= limit {
		return nil, false, ErrCapacityExceeded
	}

	reg, err = insertConfirmed(ctx, tx, p.Registration)
	if err != nil {
		return nil, false, err
	}

	// A PENDING or FAILED row for this order may already exist; the
	// guard keeps a SUCCESS row immutable either way.
	_, err = tx.Exec(ctx,
		`INSERT INTO payments
		   (id, registration_id, razorpay_order_id, razorpay_payment_id,
		    razorpay_signature, amount_paise, currency, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 'SUCCESS')
		 ON CONFLICT (razorpay_order_id) DO UPDATE SET
		   registration_id     = EXCLUDED.registration_id,
		   razorpay_payment_id = EXCLUDED.razorpay_payment_id,
		   razorpay_signature  = EXCLUDED.razorpay_signature,
		   status              = 'SUCCESS',
		   updated_at          = now()
		 WHERE payments.status <> 'SUCCESS'`,
		uuid.New().String(), reg.ID, p.OrderID, p.PaymentID, p.Signature,
		p.AmountPaise, p.Currency,
	)
	if err != nil {
		return nil, false, fmt.Errorf("record payment success: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("commit transaction: %w", err)
	}
	return reg, false, nil
}

// RecordFailure marks an order's payment FAILED. Signature mismatches
// land here; a SUCCESS row is never downgraded.
func (r *PaymentRepository) RecordFailure(ctx context.Context, orderID, paymentID, signature string, amountPaise int64, currency string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO payments
		   (id, razorpay_order_id, razorpay_payment_id, razorpay_signature,
		    amount_paise, currency, status)
		 VALUES ($1, $2, $3, $4, $5, $6, 'FAILED')
		 ON CONFLICT (razorpay_order_id) DO UPDATE SET
		   razorpay_payment_id = EXCLUDED.razorpay_payment_id,
		   razorpay_signature  = EXCLUDED.razorpay_signature,
		   status              = 'FAILED',
		   updated_at          = now()
		 WHERE payments.status <> 'SUCCESS'`,
		uuid.New().String(), orderID, paymentID, signature, amountPaise, currency,
	)
	if err != nil {
		return fmt.Errorf("record payment failure: %w", err)
	}
	return nil
}

// GetByOrderID returns the payment for a gateway order id.
func (r *PaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Payment, error) {
	var p model.Payment
	var regID *string
	err := r.db.QueryRow(ctx,
		`SELECT id, registration_id, razorpay_order_id, razorpay_payment_id,
		        razorpay_signature, amount_paise, currency, status,
		        created_at, updated_at
		 FROM payments WHERE razorpay_order_id = $1`,
		orderID,
	).Scan(&p.ID, &regID, &p.OrderID, &p.PaymentID, &p.Signature,
		&p.AmountPaise, &p.Currency, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}
	if regID != nil {
		p.RegistrationID = *regID
	}
	return &p, nil
}
