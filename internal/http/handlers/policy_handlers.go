package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/researchguru/authsvc/domain"
)

// PolicyHandlers manages the role policies behind the casbin gate
type PolicyHandlers struct {
	policies domain.PolicyService
}

// NewPolicyHandlers creates new policy handlers
func NewPolicyHandlers(policies domain.PolicyService) *PolicyHandlers {
	useJSONFieldNames()
	return &PolicyHandlers{policies: policies}
}

type policyReq struct {
	Sub string `json:"sub" binding:"required"`
	Obj string `json:"obj" binding:"required"`
	Act string `json:"act" binding:"required"`
}

// List returns every stored policy
func (h *PolicyHandlers) List(c *gin.Context) {
	respond(c, http.StatusOK, "", h.policies.GetPolicies())
}

// Add stores a policy
func (h *PolicyHandlers) Add(c *gin.Context) {
	var r policyReq
	if !bind(c, &r) {
		return
	}
	if err := h.policies.AddPolicy(r.Sub, r.Obj, r.Act); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Policy not added.")
		return
	}
	respond(c, http.StatusCreated, "Policy added.", r)
}

// Remove deletes a policy
func (h *PolicyHandlers) Remove(c *gin.Context) {
	var r policyReq
	if !bind(c, &r) {
		return
	}
	if err := h.policies.RemovePolicy(r.Sub, r.Obj, r.Act); err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, "Policy not removed.")
		return
	}
	respond(c, http.StatusOK, "Policy removed.", nil)
}
