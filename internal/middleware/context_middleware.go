package middleware

import (
	"go-pointage/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextLogger runs after AuthMiddleware and propagates the caller and a
// scoped logger to the request context so services never touch gin.
func ContextLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := contextutil.Actor{
			UserID:     c.GetString(ContextUserID),
			EmployeeID: c.GetString(ContextEmployeeID),
			Role:       c.GetString(ContextRole),
		}

		ctx := c.Request.Context()
		rid := contextutil.GetRequestID(ctx)

		reqLogger := logger.With(
			zap.String("request_id", rid),
			zap.String("user_id", actor.UserID),
			zap.String("role", actor.Role),
		)

		ctx = contextutil.WithActor(ctx, actor)
		ctx = contextutil.WithLogger(ctx, reqLogger)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
