package middleware

import (
	"go-pointage/internal/domain"
	"go-pointage/internal/shared/apperror"
	"go-pointage/internal/shared/response"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RBACService adalah interface lokal.
// Apapun package yang punya method Enforce(domain.EnforceRequest) bisa masuk ke sini.
type RBACService interface {
	Enforce(req domain.EnforceRequest) (bool, error)
}

func RBACAuthorize(service RBACService, resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			response.Abort(c, http.StatusUnauthorized, apperror.CodeUnauthorized, "missing auth context")
			return
		}

		allowed, err := service.Enforce(domain.EnforceRequest{
			Role:     role,
			Resource: resource,
			Action:   action,
		})
		if err != nil {
			abortAppError(c, apperror.ErrInternal)
			return
		}

		if !allowed {
			response.Error(c, http.StatusForbidden, apperror.CodeForbidden,
				apperror.ErrForbidden.Message,
				map[string]any{"required": resource + ":" + action},
			)
			c.Abort()
			return
		}
		c.Next()
	}
}

// SelfOrRBAC lets a caller through when the path param names their own
// employee record; anyone else needs resource:action.
func SelfOrRBAC(service RBACService, param, resource, action string) gin.HandlerFunc {
	authorize := RBACAuthorize(service, resource, action)
	return func(c *gin.Context) {
		own := c.GetString(ContextEmployeeID)
		if own != "" && own == c.Param(param) {
			c.Next()
			return
		}
		authorize(c)
	}
}
