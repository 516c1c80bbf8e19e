package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/services"
	"github.com/yeremiapane/ordengo-kiosk/utils"
	"golang.org/x/crypto/bcrypt"
)

const defaultTokenTTL = 15 * time.Minute

// AdminController is the maintenance surface, reached through the hidden
// admin modal of the shell.
type AdminController struct {
	Kiosk    *services.Kiosk
	PINHash  string
	TokenTTL time.Duration
	Clients  func() int
}

func NewAdminController(k *services.Kiosk, pinHash string, ttl time.Duration) *AdminController {
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	return &AdminController{Kiosk: k, PINHash: pinHash, TokenTTL: ttl}
}

// Login exchanges the maintenance PIN for a short-lived token.
func (ac *AdminController) Login(c *gin.Context) {
	var body struct {
		PIN string `json:"pin" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if ac.PINHash == "" {
		utils.RespondError(c, http.StatusServiceUnavailable, errors.New("maintenance access is not configured"))
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ac.PINHash), []byte(body.PIN)); err != nil {
		utils.ErrorLogger.Println("Maintenance login rejected")
		utils.RespondMessage(c, http.StatusUnauthorized,
			utils.Localize(ac.Kiosk.App.Language(), utils.MsgInvalidPIN), gin.H{"key": utils.MsgInvalidPIN})
		return
	}

	deviceID := ac.Kiosk.App.Identity().Value
	if deviceID == "" {
		deviceID = "unpaired"
	}
	token, err := utils.GenerateToken(deviceID, utils.RoleAdmin, ac.TokenTTL)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Maintenance session opened on device %s", deviceID)
	utils.RespondJSON(c, http.StatusOK, "Login successful", gin.H{
		"token":      token,
		"expires_in": int(ac.TokenTTL.Seconds()),
	})
}

// Logout revokes the current token.
func (ac *AdminController) Logout(c *gin.Context) {
	token := c.GetString("token")
	claims, ok := c.Get("claims")
	expiry := time.Now().Add(ac.TokenTTL)
	if cc, isClaims := claims.(*utils.CustomClaims); ok && isClaims && cc.ExpiresAt != nil {
		expiry = cc.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiry)
	utils.RespondJSON(c, http.StatusOK, "Logged out", nil)
}

// Unbind de-pairs the device and sends the shell back to setup.
func (ac *AdminController) Unbind(c *gin.Context) {
	var body struct {
		Reason string `json:"reason"`
	}
	// The body is optional.
	_ = c.ShouldBindJSON(&body)
	if body.Reason == "" {
		body.Reason = "maintenance unbind"
	}

	if err := ac.Kiosk.Unbind(body.Reason); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.InfoLogger.Printf("Device unbound from maintenance by %s", c.GetString("device_id"))
	utils.RespondJSON(c, http.StatusOK, "Device unbound", ac.Kiosk.App.Snapshot())
}

// Diagnostics reports what a technician needs to check a device in the field.
func (ac *AdminController) Diagnostics(c *gin.Context) {
	clients := 0
	if ac.Clients != nil {
		clients = ac.Clients()
	}
	utils.RespondJSON(c, http.StatusOK, "Diagnostics", gin.H{
		"kiosk":          ac.Kiosk.Snapshot(),
		"ui_clients":     clients,
		"session_id":     ac.Kiosk.Resolver.SessionID(),
		"session_marker": ac.Kiosk.SessionMarker(),
		"generation":     ac.Kiosk.Resolver.Generation(),
	})
}
