package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/astraietm/registration/internal/model"
)

// Check-in outcome messages rendered by door-scanner clients.
const (
	msgGranted     = "Verification successful! Access Granted."
	msgAlreadyUsed = "QR Code has already been used."
)

// CheckInService consumes ticket tokens at the venue door.
type CheckInService struct {
	regs RegistrationStore
}

// NewCheckInService constructs a CheckInService.
func NewCheckInService(regs RegistrationStore) *CheckInService {
	return &CheckInService{regs: regs}
}

// CheckIn resolves a scanned token to a displayable outcome. "Already
// used" is a result, not an error: the scanner shows it and moves on.
// The store's compare-and-set transition guarantees that two
// simultaneous scans of the same token produce exactly one grant.
func (s *CheckInService) CheckIn(ctx context.Context, token string) (*model.CheckInResult, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrInvalidInput)
	}

	reg, granted, err := s.regs.CheckIn(ctx, token)
	if err != nil {
		return nil, err
	}

	res := &model.CheckInResult{Valid: granted, Registrant: reg}
	if granted {
		res.Message = msgGranted
	} else {
		res.Message = msgAlreadyUsed
	}
	return res, nil
}
