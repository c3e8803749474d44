package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/events"
	"github.com/dmitrijs2005/repairdesk/internal/repositories/settings"
)

// Setting keys understood by the application.
const (
	SettingShopName    = "shop_name"
	SettingShopAddress = "shop_address"
	SettingShopPhone   = "shop_phone"
	SettingTerms       = "terms"
	SettingBackupPath  = "backup_path"
)

// DefaultSettings are returned for keys that were never set on this device.
var DefaultSettings = map[string]string{
	SettingShopName:    "My Repair Shop",
	SettingShopAddress: "",
	SettingShopPhone:   "",
	SettingTerms:       "Devices not collected within 30 days of completion may be disposed of.",
}

type SettingsService interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// All merges stored values over DefaultSettings.
	All(ctx context.Context) (map[string]string, error)
}

type settingsService struct {
	deps Deps
}

func NewSettingsService(deps Deps) SettingsService {
	return &settingsService{deps: deps.withDefaults()}
}

func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	v, ok, err := settings.NewSQLiteRepository(s.deps.DB).Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return DefaultSettings[key], nil
	}
	return v, nil
}

// Set stores a device-local setting. Settings are not tenant data, so a
// device without an organization may still change them; the change is only
// audited once one exists.
func (s *settingsService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return invalid("setting key is required")
	}
	if err := settings.NewSQLiteRepository(s.deps.DB).Set(ctx, key, value); err != nil {
		return err
	}

	org, err := s.deps.tenant(ctx)
	if errors.Is(err, common.ErrOrganizationNotConfigured) {
		return nil
	}
	if err != nil {
		return err
	}
	s.deps.emit(ctx, org.ID, events.ActionSettings, events.EntitySettings, key, key+" changed")
	return nil
}

func (s *settingsService) All(ctx context.Context) (map[string]string, error) {
	stored, err := settings.NewSQLiteRepository(s.deps.DB).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(DefaultSettings)+len(stored))
	for k, v := range DefaultSettings {
		out[k] = v
	}
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}
