package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// NotificationController sends staff requests: the bill and the waiter.
type NotificationController struct {
	Kiosk *services.Kiosk
}

func NewNotificationController(k *services.Kiosk) *NotificationController {
	return &NotificationController{Kiosk: k}
}

// RequestBill -> POST /bill {paymentMethod}
func (nc *NotificationController) RequestBill(c *gin.Context) {
	var body struct {
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := nc.Kiosk.Ordering.RequestBill(c.Request.Context(), body.PaymentMethod); err != nil {
		respondUserError(c, nc.Kiosk.App.Language(), err)
		return
	}
	nc.respondNotified(c)
}

// CallWaiter -> POST /waiter
func (nc *NotificationController) CallWaiter(c *gin.Context) {
	if err := nc.Kiosk.Ordering.CallWaiter(c.Request.Context()); err != nil {
		respondUserError(c, nc.Kiosk.App.Language(), err)
		return
	}
	nc.respondNotified(c)
}

func (nc *NotificationController) respondNotified(c *gin.Context) {
	lang := nc.Kiosk.App.Language()
	utils.RespondJSON(c, http.StatusCreated, utils.Localize(lang, utils.MsgWaiterNotified), gin.H{
		"waiterNotified": nc.Kiosk.State.WaiterNotified(),
		"ui":             nc.Kiosk.State.Snapshot().UI,
	})
}
