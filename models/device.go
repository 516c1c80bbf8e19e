package models

import "time"

// Setting keys persisted on the device. They mirror the cookie names used by
// the web kiosk so an operator can recognise them in a dump of the store.
const (
	SettingTableToken   = "ordengo_table_token"
	SettingRestaurantID = "ordengo_restaurant_id"
	SettingTableInfo    = "ordengo_table_info"
	SettingLanguage     = "ordengo_lang"
	SettingSessionToken = "ordengo_session_token"
)

// DeviceSetting is one persisted key/value pair. Ephemeral rows only live for
// the current process and are purged on boot.
type DeviceSetting struct {
	Key       string     `gorm:"column:setting_key;primaryKey;type:varchar(64)" json:"key"`
	Value     string     `gorm:"type:text;not null" json:"value"`
	Ephemeral bool       `gorm:"not null;default:false" json:"ephemeral"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

// Expired reports whether the setting is past its expiry at now.
func (s DeviceSetting) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// TableInfo is the table metadata cached at pairing time.
type TableInfo struct {
	ID             FlexID   `json:"id"`
	UUID           string   `json:"uuid,omitempty"`
	Number         FlexID   `json:"number"`
	RestaurantName string   `json:"restaurantName"`
	Currency       string   `json:"currency,omitempty"`
	Locales        []string `json:"locales,omitempty"`
}

// DeviceBinding identifies which table of which restaurant this device serves.
type DeviceBinding struct {
	RestaurantID FlexID     `json:"restaurantId"`
	TableToken   string     `json:"-"`
	TableInfo    *TableInfo `json:"tableInfo,omitempty"`
}

// TableRef is the table reference sent to REST endpoints: the numeric id when
// known, otherwise the UUID.
func (b *DeviceBinding) TableRef() FlexID {
	if b == nil || b.TableInfo == nil {
		return ""
	}
	if !b.TableInfo.ID.IsZero() {
		return b.TableInfo.ID
	}
	return FlexID(b.TableInfo.UUID)
}

// Clone returns a deep copy so callers never share the cached binding.
func (b *DeviceBinding) Clone() *DeviceBinding {
	if b == nil {
		return nil
	}
	out := *b
	if b.TableInfo != nil {
		info := *b.TableInfo
		info.Locales = append([]string(nil), b.TableInfo.Locales...)
		out.TableInfo = &info
	}
	return &out
}
