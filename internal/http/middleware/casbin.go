package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/researchguru/authsvc/domain"
)

// CasbinMW gates routes by the caller's role through the policy service
type CasbinMW struct {
	policies domain.PolicyService
	logger   *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(policies domain.PolicyService, log *zap.Logger) *CasbinMW {
	if log == nil {
		log = zap.NewNop()
	}
	return &CasbinMW{policies: policies, logger: log}
}

// Enforce returns the casbin authorization middleware. It must run after
// AuthMiddleware.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, ok := AuthContextFrom(c)
		if !ok {
			abortWithMessage(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		// Match against the route pattern so path parameters do not leak into policies
		resource := c.FullPath()
		if resource == "" {
			resource = c.Request.URL.Path
		}

		allowed, err := mw.policies.CheckPermission(domain.RoleSubject(ac.Role), resource, c.Request.Method)
		if err != nil {
			mw.logger.Error("authorization check failed", zap.String("resource", resource), zap.Error(err))
			abortWithMessage(c, http.StatusInternalServerError, "Authorization check failed")
			return
		}
		if !allowed {
			abortWithMessage(c, http.StatusForbidden, "Forbidden: insufficient role permissions")
			return
		}

		c.Next()
	}
}
