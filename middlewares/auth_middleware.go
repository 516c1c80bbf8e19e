package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// Context keys set by AdminAuthMiddleware.
const (
	CtxDeviceID = "device_id"
	CtxRole     = "role"
	CtxToken    = "token"
	CtxClaims   = "claims"
)

// AdminAuthMiddleware guards the maintenance endpoints with a bearer JWT.
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("authorization header missing"))
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid authorization format"))
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ParseToken(tokenString)
		if err != nil || claims == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid or expired token"))
			c.Abort()
			return
		}

		utils.InfoLogger.Debugf("Maintenance token accepted for device %s", claims.DeviceID)

		c.Set(CtxDeviceID, claims.DeviceID)
		c.Set(CtxRole, claims.Role)
		c.Set(CtxToken, tokenString)
		c.Set(CtxClaims, claims)

		c.Next()
	}
}
