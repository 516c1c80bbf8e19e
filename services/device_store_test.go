package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/models"
)

func sampleBinding() *models.DeviceBinding {
	return &models.DeviceBinding{
		RestaurantID: "42",
		TableToken:   "tok-1",
		TableInfo: &models.TableInfo{
			ID:             "7",
			UUID:           "3f2a9c1e-8b7d-4e6f-a5c4-1d2e3f4a5b6c",
			Number:         "7",
			RestaurantName: "Casa Test",
			Currency:       "EUR",
			Locales:        []string{"es"},
		},
	}
}

func TestDeviceStoreUnboundIsNotAnError(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))

	b, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, "", store.TableToken())
}

func TestDeviceStoreSurvivesRestart(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))
	require.NoError(t, store.Save(sampleBinding()))
	require.NoError(t, store.SetLanguage("br"))
	assert.Equal(t, "tok-1", store.TableToken())

	reopened := NewDeviceStore(openTestDB(t, t.Name()))
	b, err := reopened.Load()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, sampleBinding(), b)
	assert.Equal(t, "tok-1", reopened.TableToken())

	lang, err := reopened.Language()
	require.NoError(t, err)
	assert.Equal(t, "br", lang)
}

func TestDeviceStoreSaveOverwrites(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))
	require.NoError(t, store.Save(sampleBinding()))

	next := &models.DeviceBinding{RestaurantID: "9", TableToken: "tok-2"}
	require.NoError(t, store.Save(next))

	b, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, next, b)
	assert.Error(t, store.Save(&models.DeviceBinding{}))
}

func TestDeviceStoreClearRemovesEverything(t *testing.T) {
	db := openTestDB(t, t.Name())
	store := NewDeviceStore(db)
	require.NoError(t, store.Save(sampleBinding()))
	require.NoError(t, store.SetLanguage("es"))
	require.NoError(t, store.SetSessionMarker("101"))

	require.NoError(t, store.Clear())

	var count int64
	require.NoError(t, db.Model(&models.DeviceSetting{}).Count(&count).Error)
	assert.Zero(t, count)
	b, err := store.Load()
	assert.NoError(t, err)
	assert.Nil(t, b)
}

func TestDeviceStoreExpiry(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))
	require.NoError(t, store.Save(sampleBinding()))

	later := time.Now().Add(BindingTTL + time.Hour)
	store.now = func() time.Time { return later }

	b, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, b, "an expired token means the device is unbound")

	n, err := store.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestDeviceStoreSessionMarkerIsEphemeral(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))
	require.NoError(t, store.Save(sampleBinding()))
	require.NoError(t, store.SetSessionMarker("101"))
	require.NoError(t, store.SetSessionMarker("102"))

	marker, err := store.SessionMarker()
	require.NoError(t, err)
	assert.Equal(t, "102", marker)

	require.NoError(t, store.PurgeEphemeral())
	marker, err = store.SessionMarker()
	require.NoError(t, err)
	assert.Empty(t, marker)

	b, err := store.Load()
	require.NoError(t, err)
	assert.NotNil(t, b)
}
