package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/testsupport"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

func TestPingAndUnpairedState(t *testing.T) {
	app := setupApp(t)

	w, resp := app.request(t, "GET", "/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", resp.Message)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, testUIOrigin, w.Header().Get("Access-Control-Allow-Origin"))

	snap := app.state(t)
	assert.False(t, snap.App.Paired)
	assert.Equal(t, models.RouteSetup, snap.State.UI.Route)
	assert.Equal(t, "es", snap.App.Language)
}

func TestPreflightShortCircuits(t *testing.T) {
	app := setupApp(t)
	w, _ := app.request(t, "OPTIONS", "/cart/items", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSetupFlow(t *testing.T) {
	app := setupApp(t)

	w, resp := app.request(t, "GET", "/setup", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Device is not paired", resp.Message)

	w, resp = app.request(t, "POST", "/setup", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = app.request(t, "POST", "/setup", gin.H{"token": "unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, utils.Localize("es", utils.MsgInvalidTableToken), resp.Message)
	var ed errorData
	decode(t, resp.Data, &ed)
	assert.Equal(t, utils.MsgInvalidTableToken, ed.Key)

	app.pair(t)

	w, resp = app.request(t, "GET", "/setup", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, resp.Message, "already paired")
	var setup services.AppSnapshot
	decode(t, resp.Data, &setup)
	assert.True(t, setup.Paired)
	require.NotNil(t, setup.Table)
	assert.Equal(t, "Casa Test", setup.Table.RestaurantName)

	snap := app.state(t)
	assert.Equal(t, models.RouteLanguage, snap.State.UI.Route)
	require.NotNil(t, snap.App.Identity)
	assert.Equal(t, testsupport.TestTableUUID, snap.App.Identity.Value)
}

func TestSetupRejectionKeepsBinding(t *testing.T) {
	app := setupApp(t)
	app.pair(t)

	w, _ := app.request(t, "POST", "/setup", gin.H{"token": "unknown"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	snap := app.state(t)
	assert.True(t, snap.App.Paired)
	assert.Equal(t, models.FlexID(testsupport.TestRestaurantID), snap.App.RestaurantID)
}

func TestLanguageSelection(t *testing.T) {
	app := setupApp(t)

	w, resp := app.request(t, "POST", "/language", gin.H{"language": "pt"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.Localize("es", utils.MsgNotPaired), resp.Message)

	app.pair(t)

	w, _ = app.request(t, "POST", "/language", gin.H{"language": "xx"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp = app.request(t, "POST", "/language", gin.H{"language": "pt"})
	require.Equal(t, http.StatusOK, w.Code)
	var snap services.KioskSnapshot
	decode(t, resp.Data, &snap)
	assert.Equal(t, "br", snap.App.Language)
	assert.Equal(t, models.RouteMenu, snap.State.UI.Route)

	// Customer messages follow the chosen language.
	w, resp = app.request(t, "POST", "/orders/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.Localize("br", utils.MsgCartEmpty), resp.Message)
}

func TestNavigation(t *testing.T) {
	app := setupApp(t)

	w, _ := app.request(t, "POST", "/navigation/view", gin.H{"view": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := app.request(t, "POST", "/navigation/view", gin.H{"view": "menu"})
	require.Equal(t, http.StatusOK, w.Code)
	var ui services.UIView
	decode(t, resp.Data, &ui)
	assert.Equal(t, models.ViewMenu, ui.View)

	_, _ = app.request(t, "POST", "/navigation/subcategory", gin.H{"subcategoryId": 9})
	w, resp = app.request(t, "POST", "/navigation/category", gin.H{"categoryId": 3})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &ui)
	assert.Equal(t, "3", ui.CategoryID)
	assert.Equal(t, models.SubcategoryAll, ui.SubcategoryID)

	w, resp = app.request(t, "POST", "/navigation/subcategory", gin.H{"subcategoryId": "5"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &ui)
	assert.Equal(t, "5", ui.SubcategoryID)

	w, _ = app.request(t, "POST", "/navigation/category", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModals(t *testing.T) {
	app := setupApp(t)

	w, _ := app.request(t, "POST", "/modals/nope/open", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := app.request(t, "POST", "/modals/cart/open", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap services.StateSnapshot
	decode(t, resp.Data, &snap)
	assert.Equal(t, []models.Modal{models.ModalCart}, snap.UI.Modals)

	_, _ = app.request(t, "POST", "/modals/about/open", nil)
	w, resp = app.request(t, "POST", "/modals/cart/close", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, resp.Data, &snap)
	assert.Equal(t, []models.Modal{models.ModalAbout}, snap.UI.Modals)
}
