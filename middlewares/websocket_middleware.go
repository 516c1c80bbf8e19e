package middlewares

import (
	"net"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/ordengo-kiosk/utils"
)

// LocalOnly rejects callers that are not on this device. The UI hub and the
// maintenance surface are never meant to be reachable from the network.
func LocalOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			host = c.Request.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			utils.ErrorLogger.Printf("Rejected non-local client %s on %s", c.Request.RemoteAddr, c.Request.URL.Path)
			c.AbortWithStatus(403)
			return
		}
		c.Next()
	}
}

// TrackActivity reports every state-changing call as customer activity.
func TrackActivity(activity func()) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != "GET" && c.Request.Method != "OPTIONS" && activity != nil {
			activity()
		}
		c.Next()
	}
}
