package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/kiosk"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// LockdownController exposes the kiosk guard and the idle monitor to the
// shell.
type LockdownController struct {
	Guard *kiosk.Guard
	Idle  *kiosk.IdleMonitor
}

func NewLockdownController(g *kiosk.Guard, idle *kiosk.IdleMonitor) *LockdownController {
	return &LockdownController{Guard: g, Idle: idle}
}

func (lc *LockdownController) GetPolicy(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Kiosk policy", lc.Guard.Policy())
}

// HandleEvent -> back, visibility, key and contextmenu reports
func (lc *LockdownController) HandleEvent(c *gin.Context) {
	var ev kiosk.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	verdict, err := lc.Guard.HandleEvent(ev)
	if errors.Is(err, kiosk.ErrUnknownEvent) {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Event handled", verdict)
}

// Activity resets the idle timer.
func (lc *LockdownController) Activity(c *gin.Context) {
	lc.Idle.Activity()
	utils.RespondJSON(c, http.StatusOK, "Activity recorded", gin.H{"idle": lc.Idle.IsIdle()})
}
