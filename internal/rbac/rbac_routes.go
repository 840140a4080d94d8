package rbac

import (
	"go-pointage/internal/domain"
	"go-pointage/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes expects r to be behind AuthMiddleware.
func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	group := r.Group("/rbac")
	group.Use(middleware.RoleMiddleware(domain.RoleSupervisor, domain.RoleHRAdmin))
	{
		group.POST("/enforce", handler.Enforce)
	}
}
