package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/testsupport"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

type notifiedResponse struct {
	WaiterNotified bool `json:"waiterNotified"`
}

func TestRequestBillRequiresMethod(t *testing.T) {
	app := setupApp(t)
	app.pair(t)

	w, resp := app.request(t, "POST", "/bill", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, utils.Localize("es", utils.MsgBillMethodRequired), resp.Message)

	w, _ = app.request(t, "POST", "/bill", gin.H{"paymentMethod": "crypto"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	_, _, _, notifications := app.backend.Counts()
	assert.Zero(t, notifications)
}

func TestRequestBill(t *testing.T) {
	app := setupApp(t)
	app.pair(t)
	_, _ = app.request(t, "POST", "/modals/account/open", nil)

	w, resp := app.request(t, "POST", "/bill", gin.H{"paymentMethod": "card"})
	require.Equal(t, http.StatusCreated, w.Code, resp.Message)
	assert.Equal(t, utils.Localize("es", utils.MsgWaiterNotified), resp.Message)
	var out notifiedResponse
	decode(t, resp.Data, &out)
	assert.True(t, out.WaiterNotified)

	app.backend.Lock()
	require.Len(t, app.backend.Notifications, 1)
	n := app.backend.Notifications[0]
	app.backend.Unlock()
	assert.Equal(t, models.NotificationRequestBill, n.Type)
	assert.Equal(t, "card", n.PaymentMethod)
	assert.Equal(t, models.FlexID(testsupport.TestTableID), n.TableID)
	assert.Equal(t, models.FlexID(testsupport.TestRestaurantID), n.RestaurantID)

	snap := app.state(t)
	assert.Contains(t, snap.State.UI.Modals, models.ModalWaiter)
	assert.NotContains(t, snap.State.UI.Modals, models.ModalAccount)
}

func TestCallWaiter(t *testing.T) {
	app := setupApp(t)
	app.pair(t)

	w, _ := app.request(t, "POST", "/waiter", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	app.backend.Lock()
	require.Len(t, app.backend.Notifications, 1)
	assert.Equal(t, models.NotificationCallWaiter, app.backend.Notifications[0].Type)
	assert.Empty(t, app.backend.Notifications[0].PaymentMethod)
	app.backend.NotificationStatus = http.StatusServiceUnavailable
	app.backend.Unlock()

	w, resp := app.request(t, "POST", "/waiter", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, utils.Localize("es", utils.MsgWaiterFailed), resp.Message)
}

func TestCallWaiterUnpaired(t *testing.T) {
	app := setupApp(t)

	w, resp := app.request(t, "POST", "/waiter", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, utils.Localize("es", utils.MsgNotPaired), resp.Message)
}

func TestWaiterIsRateLimited(t *testing.T) {
	app := setupApp(t)
	app.pair(t)

	for i := 0; i < 3; i++ {
		w, _ := app.request(t, "POST", "/waiter", nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, _ := app.request(t, "POST", "/waiter", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	_, _, _, notifications := app.backend.Counts()
	assert.Equal(t, 3, notifications)
}
