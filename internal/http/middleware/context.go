package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/researchguru/authsvc/domain"
)

const (
	// RequestIDHeader carries the correlation identifier in both directions
	RequestIDHeader = "X-Request-ID"

	// AccessTokenCookie and RefreshTokenCookie are the httpOnly cookies set at login
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	authContextKey = "auth_context"
)

// AuthContextFrom returns the caller identity set by AuthMiddleware
func AuthContextFrom(c *gin.Context) (domain.AuthContext, bool) {
	v, ok := c.Get(authContextKey)
	if !ok {
		return domain.AuthContext{}, false
	}
	ac, ok := v.(domain.AuthContext)
	return ac, ok
}

func setAuthContext(c *gin.Context, ac domain.AuthContext) {
	c.Set(authContextKey, ac)
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": message})
}
