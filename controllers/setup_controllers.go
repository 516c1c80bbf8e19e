package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// SetupController pairs the device with a table.
type SetupController struct {
	Kiosk *services.Kiosk
}

func NewSetupController(k *services.Kiosk) *SetupController {
	return &SetupController{Kiosk: k}
}

// GetSetup tells the setup screen whether a binding already exists, so it
// can warn before it gets replaced.
func (sc *SetupController) GetSetup(c *gin.Context) {
	snap := sc.Kiosk.App.Snapshot()
	message := "Device is not paired"
	if snap.Paired {
		message = "Device is already paired, a new token replaces the current table"
	}
	utils.RespondJSON(c, http.StatusOK, message, snap)
}

// Pair validates the table token against the backend and stores the binding.
func (sc *SetupController) Pair(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	snap, err := sc.Kiosk.Pair(c.Request.Context(), body.Token)
	if err != nil {
		respondUserError(c, sc.Kiosk.App.Language(), err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, "Device paired", snap)
}
