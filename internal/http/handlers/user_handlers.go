package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/researchguru/authsvc/domain"
	"github.com/researchguru/authsvc/internal/http/middleware"
)

// UserHandlers handles privileged account management
type UserHandlers struct {
	authSvc domain.AuthService
}

// NewUserHandlers creates new user handlers
func NewUserHandlers(authSvc domain.AuthService) *UserHandlers {
	useJSONFieldNames()
	return &UserHandlers{authSvc: authSvc}
}

// CreateAdminRequest represents an admin provisioning request
type CreateAdminRequest struct {
	Name     string `json:"name" binding:"required,min=3"`
	Username string `json:"username" binding:"required,alphanum,min=3,max=30"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" binding:"required,min=8"`
}

// CreateAdmin provisions a pre-verified administrator
func (h *UserHandlers) CreateAdmin(c *gin.Context) {
	caller, ok := middleware.AuthContextFrom(c)
	if !ok {
		fail(c, http.StatusUnauthorized, "Not authorized, no token")
		return
	}

	var req CreateAdminRequest
	if !bind(c, &req) {
		return
	}

	account, err := h.authSvc.ProvisionAdmin(c.Request.Context(), caller, domain.ProvisionInput{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "Admin created successfully.", account.Sanitize())
}
