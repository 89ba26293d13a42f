package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/transport/http/response"
)

type AdminHandler struct {
	admin *app.AdminService
	roles *app.RoleGate
}

type ConfirmResetRequest struct {
	Token string `json:"token" binding:"required"`
}

func NewAdminHandler(admin *app.AdminService, roles *app.RoleGate) *AdminHandler {
	return &AdminHandler{admin: admin, roles: roles}
}

// RequestReset starts the destructive reset; nothing is deleted until ConfirmReset.
func (h *AdminHandler) RequestReset(c *gin.Context) {
	challenge, err := h.admin.RequestReset(c.Request.Context(), requestSession(c, h.roles))
	if err != nil {
		response.FromApp(c, err)
		return
	}
	response.OK(c, challenge)
}

func (h *AdminHandler) ConfirmReset(c *gin.Context) {
	var req ConfirmResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "confirmation token is required")
		return
	}

	report, err := h.admin.ConfirmReset(c.Request.Context(), requestSession(c, h.roles), req.Token)
	if err != nil {
		response.FromApp(c, err)
		return
	}
	response.OK(c, report)
}
