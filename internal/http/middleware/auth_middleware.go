package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/researchguru/authsvc/domain"
)

// AuthMiddleware requires a valid access token, taken from the accessToken
// cookie or an "Authorization: Bearer" header, and stores the caller's
// domain.AuthContext for the handlers.
func AuthMiddleware(tokenSvc domain.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := AccessToken(c)
		if token == "" {
			abortWithMessage(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		claims, err := tokenSvc.VerifyAccess(token)
		if err != nil {
			if errors.Is(err, domain.ErrTokenExpired) {
				abortWithMessage(c, http.StatusUnauthorized, "Token expired")
				return
			}
			abortWithMessage(c, http.StatusUnauthorized, "Not authorized, token failed")
			return
		}

		setAuthContext(c, domain.AuthContext{AccountID: claims.AccountID, Role: claims.Role})
		c.Next()
	}
}

// AccessToken returns the presented access token, preferring the cookie
func AccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && cookie != "" {
		return cookie
	}
	return BearerToken(c)
}

// BearerToken returns the token of an "Authorization: Bearer" header
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
