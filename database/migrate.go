package database

import (
	"time"

	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/utils"
	"gorm.io/gorm"
)

// Migrate creates the device store schema and drops settings that expired
// while the daemon was not running.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.DeviceSetting{}); err != nil {
		utils.ErrorLogger.Errorf("Error migrating device settings: %v", err)
		return err
	}

	res := db.Where("expires_at IS NOT NULL AND expires_at <= ?", time.Now()).
		Delete(&models.DeviceSetting{})
	if res.Error != nil {
		utils.ErrorLogger.Errorf("Error purging expired settings: %v", res.Error)
		return res.Error
	}
	if res.RowsAffected > 0 {
		utils.InfoLogger.Infof("Purged %d expired device settings", res.RowsAffected)
	}

	var count int64
	db.Model(&models.DeviceSetting{}).Count(&count)
	utils.InfoLogger.Infof("Device store ready (%d settings)", count)
	return nil
}
