package timesheet

import (
	"go-pointage/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RegisterRoutes mounts the timesheet endpoints on an authenticated group.
func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, rdb *redis.Client) {
	timesheets := r.Group("/timesheets")
	{
		timesheets.GET("",
			middleware.RBACAuthorize(rbacService, "timesheet", "read_all"),
			h.GetOverview,
		)

		employeeMonth := timesheets.Group("/:employee_id/:year/:month")
		employeeMonth.Use(middleware.SelfOrRBAC(rbacService, "employee_id", "timesheet", "read_all"))
		{
			employeeMonth.GET("",
				middleware.RBACAuthorize(rbacService, "timesheet", "read"),
				h.GetEmployeeMonth,
			)
			employeeMonth.POST("/open",
				middleware.RBACAuthorize(rbacService, "timesheet", "write"),
				h.OpenMonth,
			)
			employeeMonth.POST("/entries",
				middleware.RBACAuthorize(rbacService, "timesheet", "write"),
				middleware.Idempotency(rdb),
				h.SaveEntry,
			)
			employeeMonth.POST("/entries/batch",
				middleware.RBACAuthorize(rbacService, "timesheet", "write"),
				middleware.Idempotency(rdb),
				h.SaveEntriesBatch,
			)
		}
	}
}
