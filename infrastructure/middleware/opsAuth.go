package middlewares

import (
	"os"

	apperrors "facemark.io/application/appErrors"
	"github.com/gin-gonic/gin"
)

// OpsAuthMiddleware gates the ops api behind a shared key. When OPS_API_KEY
// is unset the api stays open, which is the expected mode on a kiosk bound to
// localhost.
func OpsAuthMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		expected := os.Getenv("OPS_API_KEY")
		if expected == "" {
			ctx.Next()
			return
		}
		if ctx.GetHeader("X-Ops-Key") != expected {
			apperrors.AuthenticationError(ctx, "invalid ops api key")
			return
		}
		ctx.Next()
	}
}
