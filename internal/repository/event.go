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

const eventColumns = `id, title, description, venue, category, event_date,
	registration_start, registration_end, registration_limit,
	is_registration_open, is_team_event, team_size_min, team_size_max,
	requires_payment, amount_paise, currency, created_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Venue, &e.Category, &e.EventDate,
		&e.RegistrationStart, &e.RegistrationEnd, &e.RegistrationLimit,
		&e.IsRegistrationOpen, &e.IsTeamEvent, &e.TeamSizeMin, &e.TeamSizeMax,
		&e.RequiresPayment, &e.AmountPaise, &e.Currency, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// EventRepository handles persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event, err := scanEvent(r.db.QueryRow(ctx,
		`INSERT INTO events
		   (id, title, description, venue, category, event_date,
		    registration_start, registration_end, registration_limit,
		    is_registration_open, is_team_event, team_size_min,
		    team_size_max, requires_payment, amount_paise, currency)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		         $14, $15, $16)
		 RETURNING `+eventColumns,
		uuid.New().String(), req.Title, req.Description, req.Venue,
		req.Category, req.EventDate, req.RegistrationStart,
		req.RegistrationEnd, req.RegistrationLimit, req.IsRegistrationOpen,
		req.IsTeamEvent, req.TeamSizeMin, req.TeamSizeMax,
		req.RequiresPayment, model.ToPaise(req.PaymentAmount), req.Currency,
	))
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	return event, nil
}

// List returns all events ordered by creation time descending.
func (r *EventRepository) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// GetByID returns a single event or ErrEventNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	// The id column is UUID; comparing it against arbitrary text raises
	// an invalid-input error instead of finding no rows. A non-UUID id
	// cannot match anything, so it is simply not found.
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrEventNotFound
	}
	event, err := scanEvent(r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}
