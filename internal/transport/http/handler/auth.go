package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/model"
	"github.com/flisboa999/guiaturismo/internal/transport/http/middleware"
	"github.com/flisboa999/guiaturismo/internal/transport/http/response"
)

type AuthHandler struct {
	authService *app.AuthService
	roles       *app.RoleGate
}

type RegisterRequest struct {
	DisplayName string `json:"displayName" binding:"max=64"`
	Email       string `json:"email" binding:"required,email,max=128"`
	Password    string `json:"password" binding:"required,min=8,max=128"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=128"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

func NewAuthHandler(authService *app.AuthService, roles *app.RoleGate) *AuthHandler {
	return &AuthHandler{authService: authService, roles: roles}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Register(c.Request.Context(), app.RegisterInput{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Password:    req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmailExists):
			response.Error(c, http.StatusBadRequest, response.CodeEmailExists, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "register failed")
		}
		return
	}

	response.OK(c, gin.H{
		"token": result.Token,
		"user":  h.userView(result.User),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.authService.Login(c.Request.Context(), app.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrInvalidCredential):
			response.Error(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "login failed")
		}
		return
	}

	response.OK(c, gin.H{
		"token": result.Token,
		"user":  h.userView(result.User),
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found in token")
		return
	}

	user, err := h.authService.GetUserByID(c.Request.Context(), identity.UserID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch current user failed")
		return
	}
	if user == nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "user not found")
		return
	}

	response.OK(c, h.userView(user))
}

func (h *AuthHandler) userView(user *model.User) gin.H {
	role := h.roles.Resolve(&app.Identity{UserID: user.ID, Email: user.Email, Name: user.DisplayName})
	return gin.H{
		"id":          user.ID,
		"displayName": user.DisplayName,
		"email":       user.Email,
		"role":        role,
	}
}
