package hourbank

import (
	"go-pointage/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, h *Handler, rbacService middleware.RBACService, rdb *redis.Client) {
	bank := r.Group("/hour-bank/:employee_id")
	bank.Use(middleware.SelfOrRBAC(rbacService, "employee_id", "hour_bank", "read_all"))
	{
		bank.GET("", middleware.RBACAuthorize(rbacService, "hour_bank", "read"), h.GetBalance)
		bank.GET("/ledger", middleware.RBACAuthorize(rbacService, "hour_bank", "read"), h.GetLedger)
	}

	movements := r.Group("/timesheets/:employee_id/:year/:month/bank")
	movements.Use(middleware.SelfOrRBAC(rbacService, "employee_id", "timesheet", "read_all"))
	{
		movements.POST("/withdraw",
			middleware.RBACAuthorize(rbacService, "hour_bank", "withdraw"),
			middleware.Idempotency(rdb),
			h.Withdraw,
		)
		movements.POST("/deposit",
			middleware.RBACAuthorize(rbacService, "hour_bank", "deposit"),
			middleware.Idempotency(rdb),
			h.Deposit,
		)
	}
}
