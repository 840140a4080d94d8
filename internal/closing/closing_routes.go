package closing

import (
	"go-pointage/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, rdb *redis.Client) {
	r.POST("/timesheets/:employee_id/:year/:month/validate",
		middleware.RBACAuthorize(rbacService, "timesheet", "validate"),
		middleware.Idempotency(rdb),
		h.Validate,
	)
	r.POST("/months/:year/:month/close",
		middleware.RBACAuthorize(rbacService, "month", "close"),
		middleware.Idempotency(rdb),
		h.Close,
	)
}
