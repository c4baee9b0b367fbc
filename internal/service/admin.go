package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/astraietm/registration/internal/model"
	"github.com/astraietm/registration/internal/repository"
)

// SettingMaintenanceMode is the runtime flag that puts the platform in
// maintenance: mutating endpoints return 503 while it reads "on".
const SettingMaintenanceMode = "maintenance_mode"

// AdminService handles staff-only operations: registration listings,
// the bulk clear, and the versioned runtime settings.
type AdminService struct {
	regs     RegistrationStore
	settings SettingsStore
}

// NewAdminService constructs an AdminService.
func NewAdminService(regs RegistrationStore, settings SettingsStore) *AdminService {
	return &AdminService{regs: regs, settings: settings}
}

// ListRegistrations returns every registration, newest first.
func (s *AdminService) ListRegistrations(ctx context.Context) ([]model.Registration, error) {
	return s.regs.ListAll(ctx)
}

// ClearRegistrations deletes all registrations; payments cascade.
func (s *AdminService) ClearRegistrations(ctx context.Context) (int64, error) {
	return s.regs.DeleteAll(ctx)
}

// SetSetting upserts a runtime setting, bumping its version.
func (s *AdminService) SetSetting(ctx context.Context, key, value string) (*model.Setting, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("%w: setting key is required", ErrInvalidInput)
	}
	return s.settings.Set(ctx, key, value)
}

// MaintenanceOn reads the maintenance flag at request time. A missing
// key means maintenance is off; store errors are returned so the
// caller can decide to fail open.
func (s *AdminService) MaintenanceOn(ctx context.Context) (bool, error) {
	setting, err := s.settings.Get(ctx, SettingMaintenanceMode)
	if err != nil {
		if errors.Is(err, repository.ErrSettingNotFound) {
			return false, nil
		}
		return false, err
	}
	return setting.Value == "on", nil
}
