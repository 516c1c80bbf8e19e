package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/models"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// KioskController serves the state and navigation endpoints of the UI shell.
type KioskController struct {
	Kiosk *services.Kiosk
}

func NewKioskController(k *services.Kiosk) *KioskController {
	return &KioskController{Kiosk: k}
}

func (kc *KioskController) Ping(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "pong", gin.H{"time": time.Now().UTC()})
}

// GetState returns the full snapshot the shell renders from.
func (kc *KioskController) GetState(c *gin.Context) {
	utils.RespondJSON(c, http.StatusOK, "Kiosk state", kc.Kiosk.Snapshot())
}

// SetLanguage -> flag screen choice
func (kc *KioskController) SetLanguage(c *gin.Context) {
	var body struct {
		Language string `json:"language" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := kc.Kiosk.ChooseLanguage(body.Language); err != nil {
		if isUserError(err) {
			respondUserError(c, kc.Kiosk.App.Language(), err)
			return
		}
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Language updated", kc.Kiosk.Snapshot())
}

func (kc *KioskController) SetView(c *gin.Context) {
	var body struct {
		View string `json:"view" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if err := kc.Kiosk.State.SetView(models.View(body.View)); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "View updated", kc.Kiosk.State.Snapshot().UI)
}

func (kc *KioskController) SetCategory(c *gin.Context) {
	var body struct {
		CategoryID models.FlexID `json:"categoryId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	kc.Kiosk.State.SetCategory(body.CategoryID.String())
	utils.RespondJSON(c, http.StatusOK, "Category updated", kc.Kiosk.State.Snapshot().UI)
}

func (kc *KioskController) SetSubcategory(c *gin.Context) {
	var body struct {
		SubcategoryID models.FlexID `json:"subcategoryId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	kc.Kiosk.State.SetSubcategory(body.SubcategoryID.String())
	utils.RespondJSON(c, http.StatusOK, "Subcategory updated", kc.Kiosk.State.Snapshot().UI)
}

// OpenModal / CloseModal -> /modals/:name/open, /modals/:name/close
func (kc *KioskController) OpenModal(c *gin.Context) {
	kc.toggleModal(c, true)
}

func (kc *KioskController) CloseModal(c *gin.Context) {
	kc.toggleModal(c, false)
}

func (kc *KioskController) toggleModal(c *gin.Context, open bool) {
	modal := models.Modal(c.Param("name"))
	var err error
	if open {
		err = kc.Kiosk.State.OpenModal(modal)
	} else {
		err = kc.Kiosk.State.CloseModal(modal)
	}
	if errors.Is(err, services.ErrInvalidModal) {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Modal updated", kc.Kiosk.State.Snapshot())
}
