package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BindingTTL is how long a pairing survives without being renewed.
const BindingTTL = 365 * 24 * time.Hour

var bindingKeys = []string{
	models.SettingTableToken,
	models.SettingRestaurantID,
	models.SettingTableInfo,
}

var identityKeys = append(append([]string(nil), bindingKeys...),
	models.SettingLanguage,
	models.SettingSessionToken,
)

// DeviceStore persists the device binding and the small amount of state that
// outlives a restart. It never touches the network.
type DeviceStore struct {
	DB  *gorm.DB
	now func() time.Time

	mu    sync.RWMutex
	token string
}

func NewDeviceStore(db *gorm.DB) *DeviceStore {
	return &DeviceStore{DB: db, now: time.Now}
}

// Load returns the persisted binding, or nil when the device is unbound.
func (s *DeviceStore) Load() (*models.DeviceBinding, error) {
	values, err := s.getMany(models.SettingTableToken, models.SettingRestaurantID, models.SettingTableInfo)
	if err != nil {
		return nil, err
	}

	token := values[models.SettingTableToken]
	s.setCachedToken(token)
	if token == "" {
		return nil, nil
	}

	binding := &models.DeviceBinding{
		TableToken:   token,
		RestaurantID: models.FlexID(values[models.SettingRestaurantID]),
	}
	if raw := values[models.SettingTableInfo]; raw != "" {
		var info models.TableInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			utils.ErrorLogger.Printf("Ignoring corrupt table info in device store: %v", err)
		} else {
			binding.TableInfo = &info
		}
	}
	return binding, nil
}

// Save replaces any previous binding with b. Language and session marker are
// left alone.
func (s *DeviceStore) Save(b *models.DeviceBinding) error {
	return s.write(b, bindingKeys)
}

// Replace is a clean install of b: every identity key, language and session
// marker included, is dropped and b written in the same transaction. On
// error the store is left as it was.
func (s *DeviceStore) Replace(b *models.DeviceBinding) error {
	return s.write(b, identityKeys)
}

func (s *DeviceStore) write(b *models.DeviceBinding, drop []string) error {
	if b == nil || b.TableToken == "" {
		return errors.New("binding has no table token")
	}

	rows := []models.DeviceSetting{
		s.row(models.SettingTableToken, b.TableToken),
		s.row(models.SettingRestaurantID, b.RestaurantID.String()),
	}
	if b.TableInfo != nil {
		info, err := json.Marshal(b.TableInfo)
		if err != nil {
			return fmt.Errorf("encode table info: %w", err)
		}
		rows = append(rows, s.row(models.SettingTableInfo, string(info)))
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("setting_key IN ?", drop).Delete(&models.DeviceSetting{}).Error; err != nil {
			return err
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		utils.ErrorLogger.Printf("Error saving device binding: %v", err)
		return err
	}
	s.setCachedToken(b.TableToken)
	utils.InfoLogger.Printf("Device bound to restaurant %s", b.RestaurantID)
	return nil
}

// Clear removes every identity key, leaving the store as on a fresh device.
func (s *DeviceStore) Clear() error {
	if err := s.DB.Where("setting_key IN ?", identityKeys).Delete(&models.DeviceSetting{}).Error; err != nil {
		utils.ErrorLogger.Printf("Error clearing device binding: %v", err)
		return err
	}
	s.setCachedToken("")
	return nil
}

// TableToken is the cached token, used by the backend client for every call.
func (s *DeviceStore) TableToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *DeviceStore) Language() (string, error) {
	values, err := s.getMany(models.SettingLanguage)
	if err != nil {
		return "", err
	}
	return values[models.SettingLanguage], nil
}

func (s *DeviceStore) SetLanguage(lang string) error {
	return s.upsert(s.row(models.SettingLanguage, lang))
}

// SessionMarker is the process-scoped session id, if any.
func (s *DeviceStore) SessionMarker() (string, error) {
	values, err := s.getMany(models.SettingSessionToken)
	if err != nil {
		return "", err
	}
	return values[models.SettingSessionToken], nil
}

func (s *DeviceStore) SetSessionMarker(sessionID string) error {
	row := models.DeviceSetting{Key: models.SettingSessionToken, Value: sessionID, Ephemeral: true}
	return s.upsert(row)
}

func (s *DeviceStore) ClearSessionMarker() error {
	return s.DB.Where("setting_key = ?", models.SettingSessionToken).Delete(&models.DeviceSetting{}).Error
}

// PurgeEphemeral drops values that must not survive a restart.
func (s *DeviceStore) PurgeEphemeral() error {
	res := s.DB.Where("ephemeral = ?", true).Delete(&models.DeviceSetting{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		utils.InfoLogger.Printf("Purged %d session-scoped settings", res.RowsAffected)
	}
	return nil
}

// PurgeExpired drops expired rows and returns how many were removed.
func (s *DeviceStore) PurgeExpired() (int64, error) {
	res := s.DB.Where("expires_at IS NOT NULL AND expires_at <= ?", s.now()).Delete(&models.DeviceSetting{})
	return res.RowsAffected, res.Error
}

func (s *DeviceStore) row(key, value string) models.DeviceSetting {
	expires := s.now().Add(BindingTTL)
	return models.DeviceSetting{Key: key, Value: value, ExpiresAt: &expires}
}

func (s *DeviceStore) upsert(row models.DeviceSetting) error {
	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "ephemeral", "expires_at", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		utils.ErrorLogger.Printf("Error writing setting %s: %v", row.Key, err)
	}
	return err
}

// getMany reads the unexpired values of keys. Missing keys map to "".
func (s *DeviceStore) getMany(keys ...string) (map[string]string, error) {
	var rows []models.DeviceSetting
	err := s.DB.Where("setting_key IN ?", keys).
		Where("expires_at IS NULL OR expires_at > ?", s.now()).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(keys))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *DeviceStore) setCachedToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}
