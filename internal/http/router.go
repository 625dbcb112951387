package httpx

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/researchguru/authsvc/internal/http/handlers"
	"github.com/researchguru/authsvc/internal/http/middleware"
)

// RouterDeps carries everything BuildRouter mounts. RateLimiter, Metrics and
// MetricsHandler are optional.
type RouterDeps struct {
	Logger      *zap.Logger
	CORSOrigins []string

	Auth     *handlers.AuthHandlers
	Users    *handlers.UserHandlers
	Policies *handlers.PolicyHandlers

	AuthMW   *middleware.AuthMW
	CasbinMW *middleware.CasbinMW

	RateLimiter   *middleware.RateLimiter
	AuthRateLimit middleware.RateLimitRule

	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler

	// Ready reports backing-store health for /health
	Ready func(ctx context.Context) error
}

func BuildRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(d.Logger))
	if d.Metrics != nil {
		r.Use(d.Metrics.Handler())
	}
	r.Use(middleware.CORS(d.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		if d.Ready != nil {
			if err := d.Ready(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	if d.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}

	jwt := d.AuthMW.WithJWT()

	auth := r.Group("/auth")
	if d.RateLimiter != nil {
		auth.Use(d.RateLimiter.RateLimit(d.AuthRateLimit))
	}
	auth.POST("/register", d.Auth.Register)
	auth.POST("/verify-otp", d.Auth.VerifyOTP)
	auth.POST("/resend-otp", d.Auth.ResendOTP)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh-token", d.Auth.Refresh)
	auth.POST("/forgot-password", d.Auth.ForgotPassword)
	auth.POST("/reset-password", d.Auth.ResetPassword)
	auth.POST("/logout", jwt, d.Auth.Logout)
	auth.GET("/me", jwt, d.Auth.Me)

	users := r.Group("/users").Use(jwt, d.CasbinMW.Enforce())
	users.POST("/create-admin", d.Users.CreateAdmin)

	adm := r.Group("/admin").Use(jwt, d.CasbinMW.Enforce())
	adm.GET("/policies", d.Policies.List)
	adm.POST("/policies", d.Policies.Add)
	adm.DELETE("/policies", d.Policies.Remove)

	return r
}
