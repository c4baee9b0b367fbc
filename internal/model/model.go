// Package model defines the core domain types for the event registration
// and ticketing platform.
package model

import (
	"encoding/json"
	"math"
	"time"
)

// RegistrationStatus is the lifecycle state of a Registration.
type RegistrationStatus string

const (
	// StatusPending marks a registration awaiting payment confirmation.
	// The deferred-order payment flow never parks registrations here;
	// the value exists for older rows and admin tooling.
	StatusPending RegistrationStatus = "PENDING"
	// StatusRegistered marks a confirmed registration holding a seat.
	StatusRegistered RegistrationStatus = "REGISTERED"
	// StatusAttended marks a registration whose ticket has been scanned.
	StatusAttended RegistrationStatus = "ATTENDED"
	// StatusCancelled is terminal and only reachable via admin action.
	StatusCancelled RegistrationStatus = "CANCELLED"
)

// Confirmed reports whether the status counts against event capacity.
func (s RegistrationStatus) Confirmed() bool {
	return s == StatusRegistered || s == StatusAttended
}

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Event represents a registrable event created by an organizer.
type Event struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Venue              string    `json:"venue"`
	Category           string    `json:"category"`
	EventDate          time.Time `json:"event_date"`
	RegistrationStart  time.Time `json:"registration_start"`
	RegistrationEnd    time.Time `json:"registration_end"`
	RegistrationLimit  int       `json:"registration_limit"`
	IsRegistrationOpen bool      `json:"is_registration_open"`
	IsTeamEvent        bool      `json:"is_team_event"`
	TeamSizeMin        int       `json:"team_size_min"`
	TeamSizeMax        int       `json:"team_size_max"`
	RequiresPayment    bool      `json:"requires_payment"`
	AmountPaise        int64     `json:"amount_paise"`
	Currency           string    `json:"currency"`
	CreatedAt          time.Time `json:"created_at"`
}

// WindowOpen reports whether registrations are accepted at the given
// instant: the open flag must be set and now must fall inside
// [RegistrationStart, RegistrationEnd].
func (e *Event) WindowOpen(now time.Time) bool {
	if !e.IsRegistrationOpen {
		return false
	}
	return !now.Before(e.RegistrationStart) && !now.After(e.RegistrationEnd)
}

// ValidTeamSize reports whether a team of n members is admissible.
// Non-team events only accept solo registrations.
func (e *Event) ValidTeamSize(n int) bool {
	if !e.IsTeamEvent {
		return n <= 1
	}
	return n >= e.TeamSizeMin && n <= e.TeamSizeMax
}

// User is the authenticated caller identity carried by the JWT. The
// platform does not manage users itself; the auth provider does.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Admin bool   `json:"admin"`
}

// Registration represents a user's claim on one seat at one event.
// Unique on (UserID, EventID); the token is issued lazily on the first
// confirmed save and never changes afterwards.
type Registration struct {
	ID          string             `json:"id"`
	EventID     string             `json:"event_id"`
	UserID      string             `json:"user_id"`
	UserEmail   string             `json:"user_email"`
	UserName    string             `json:"user_name"`
	TeamName    string             `json:"team_name,omitempty"`
	TeamMembers string             `json:"team_members,omitempty"`
	PhoneNumber string             `json:"phone_number,omitempty"`
	College     string             `json:"college,omitempty"`
	Status      RegistrationStatus `json:"status"`
	Token       string             `json:"token"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// IsUsed is kept for older ticket-scanner clients that predate the
// status field. It is derived from Status, never stored.
func (r *Registration) IsUsed() bool {
	return r.Status == StatusAttended
}

// MarshalJSON adds the derived is_used field to the payload so older
// scanner clients keep working without a second source of truth.
func (r Registration) MarshalJSON() ([]byte, error) {
	type registrationAlias Registration
	return json.Marshal(struct {
		registrationAlias
		IsUsed bool `json:"is_used"`
	}{registrationAlias(r), r.Status == StatusAttended})
}

// Payment records one gateway charge attempt, keyed by the gateway
// order id. Once SUCCESS it is immutable.
type Payment struct {
	ID             string        `json:"id"`
	RegistrationID string        `json:"registration_id,omitempty"`
	OrderID        string        `json:"razorpay_order_id"`
	PaymentID      string        `json:"razorpay_payment_id,omitempty"`
	Signature      string        `json:"-"`
	AmountPaise    int64         `json:"amount_paise"`
	Currency       string        `json:"currency"`
	Status         PaymentStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// ToPaise converts a rupee amount to the smallest currency unit.
func ToPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

// CreateEventRequest is the admin payload for creating a new event.
type CreateEventRequest struct {
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Venue              string    `json:"venue"`
	Category           string    `json:"category"`
	EventDate          time.Time `json:"event_date"`
	RegistrationStart  time.Time `json:"registration_start"`
	RegistrationEnd    time.Time `json:"registration_end"`
	RegistrationLimit  int       `json:"registration_limit"`
	IsRegistrationOpen bool      `json:"is_registration_open"`
	IsTeamEvent        bool      `json:"is_team_event"`
	TeamSizeMin        int       `json:"team_size_min"`
	TeamSizeMax        int       `json:"team_size_max"`
	RequiresPayment    bool      `json:"requires_payment"`
	PaymentAmount      float64   `json:"payment_amount"`
	Currency           string    `json:"currency"`
}

// RegisterRequest is the payload for registering for a free event.
type RegisterRequest struct {
	EventID     string `json:"event"`
	TeamName    string `json:"team_name,omitempty"`
	TeamMembers string `json:"team_members,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	College     string `json:"college,omitempty"`
}

// CreateOrderRequest is the payload for starting a paid registration.
type CreateOrderRequest struct {
	EventID     string `json:"event_id"`
	TeamName    string `json:"team_name,omitempty"`
	TeamMembers string `json:"team_members,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	College     string `json:"college,omitempty"`
}

// VerifyPaymentRequest carries the gateway callback fields the client
// relays after checkout.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// OrderHandle is returned to the client for collecting payment.
// Amount is in the smallest currency unit (paise for INR).
type OrderHandle struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id"`
	EventName string `json:"event_name"`
}

// CheckInResult is the displayable outcome of a ticket scan. "Already
// used" is an expected result, not an error, so scanners can render it.
type CheckInResult struct {
	Valid      bool          `json:"valid"`
	Message    string        `json:"message"`
	Registrant *Registration `json:"registrant,omitempty"`
}

// Setting is one row of the versioned runtime configuration store.
type Setting struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
