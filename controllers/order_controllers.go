package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

type OrderController struct {
	Kiosk *services.Kiosk
}

func NewOrderController(k *services.Kiosk) *OrderController {
	return &OrderController{Kiosk: k}
}

// SubmitOrder sends the cart to the kitchen.
func (oc *OrderController) SubmitOrder(c *gin.Context) {
	conf, err := oc.Kiosk.Ordering.SubmitOrder(c.Request.Context())
	if err != nil {
		respondUserError(c, oc.Kiosk.App.Language(), err)
		return
	}

	// The table was reset while the order was in flight; the shell already
	// moved on, so nothing is shown.
	if conf.Absorbed {
		utils.RespondJSON(c, http.StatusOK, "", conf)
		return
	}

	lang := oc.Kiosk.App.Language()
	utils.RespondJSON(c, http.StatusCreated, utils.Localize(lang, utils.MsgOrderSent), gin.H{
		"order": conf,
		"cart":  oc.Kiosk.State.Cart(),
	})
}
