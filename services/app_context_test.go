package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/models"
)

func TestAppContextLifecycle(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))
	app := NewAppContext(store, "", "")

	b, err := app.Init()
	require.NoError(t, err)
	assert.Nil(t, b)
	assert.Equal(t, "es", app.Language())
	assert.Equal(t, "EUR", app.Currency())

	binding := sampleBinding()
	binding.TableInfo.Currency = "brl"
	require.NoError(t, app.Bind(binding))
	assert.Equal(t, "BRL", app.Currency())

	// The returned binding is a copy.
	got := app.Binding()
	got.TableInfo.RestaurantName = "changed"
	assert.Equal(t, "Casa Test", app.Binding().TableInfo.RestaurantName)

	require.NoError(t, app.SetLanguage("en"))
	assert.Equal(t, "us", app.Language())
	assert.Error(t, app.SetLanguage("klingon"))
	assert.Equal(t, "us", app.Language())

	lang, err := store.Language()
	require.NoError(t, err)
	assert.Equal(t, "us", lang, "language is persisted with the in-memory write")

	app.SetSettings(&models.RestaurantSettings{Currency: "usd", Config: json.RawMessage(`{"a":1}`)})
	snap := app.Snapshot()
	assert.Equal(t, "USD", snap.Currency)
	assert.JSONEq(t, `{"a":1}`, string(snap.Config))
	assert.True(t, snap.Paired)

	// A second context on the same store sees the persisted state.
	again := NewAppContext(store, "es", "EUR")
	b, err = again.Init()
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "us", again.Language())

	require.NoError(t, app.Unbind())
	snap = app.Snapshot()
	assert.False(t, snap.Paired)
	assert.Equal(t, "es", snap.Language)
	assert.Equal(t, "EUR", snap.Currency)
	assert.Nil(t, snap.Config)
}

func TestBindIsCleanInstall(t *testing.T) {
	store := NewDeviceStore(openTestDB(t, t.Name()))
	app := NewAppContext(store, "es", "EUR")
	require.NoError(t, app.Bind(sampleBinding()))
	require.NoError(t, app.SetLanguage("br"))
	require.NoError(t, store.SetSessionMarker("77"))

	next := sampleBinding()
	next.TableToken = "tok-2"
	require.NoError(t, app.Bind(next))

	assert.Equal(t, "es", app.Language())
	lang, err := store.Language()
	require.NoError(t, err)
	assert.Empty(t, lang)
	marker, err := store.SessionMarker()
	require.NoError(t, err)
	assert.Empty(t, marker)
}
