package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

var userErrorStatus = map[string]int{
	utils.MsgNotPaired:          http.StatusConflict,
	utils.MsgCartEmpty:          http.StatusBadRequest,
	utils.MsgBillMethodRequired: http.StatusBadRequest,
	utils.MsgInvalidTableToken:  http.StatusNotFound,
	utils.MsgPairingFailed:      http.StatusBadGateway,
	utils.MsgOrderFailed:        http.StatusBadGateway,
	utils.MsgBillFailed:         http.StatusBadGateway,
	utils.MsgWaiterFailed:       http.StatusBadGateway,
	utils.MsgInvalidPIN:         http.StatusUnauthorized,
}

// respondUserError answers with the localized customer message for err. The
// underlying cause only goes to the log.
func respondUserError(c *gin.Context, lang string, err error) {
	key := services.UserMessageKey(err)
	code, ok := userErrorStatus[key]
	if !ok {
		code = http.StatusInternalServerError
	}
	utils.ErrorLogger.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	utils.RespondMessage(c, code, utils.Localize(lang, key), gin.H{"key": key})
}

func isUserError(err error) bool {
	var ue *services.UserError
	return errors.As(err, &ue)
}
