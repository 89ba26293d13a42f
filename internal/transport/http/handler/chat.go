package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/model"
	"github.com/flisboa999/guiaturismo/internal/transport/http/middleware"
	"github.com/flisboa999/guiaturismo/internal/transport/http/response"
)

// TurnLister reads the current window of chat turns.
type TurnLister interface {
	Recent(ctx context.Context, limit int) ([]model.ChatTurn, error)
}

type ChatHandler struct {
	submissions *app.SubmissionService
	turns       TurnLister
	admin       *app.AdminService
	roles       *app.RoleGate
}

type SendMessageRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"sessionId"`
	UserAgent string `json:"userAgent"`
	Mode      string `json:"mode"`
	ControlID string `json:"controlId"`
}

type EditTurnRequest struct {
	Prompt string `json:"prompt"`
}

func NewChatHandler(submissions *app.SubmissionService, turns TurnLister, admin *app.AdminService, roles *app.RoleGate) *ChatHandler {
	return &ChatHandler{
		submissions: submissions,
		turns:       turns,
		admin:       admin,
		roles:       roles,
	}
}

// SendMessage is the callable endpoint. It always answers in the callable
// envelope, never the {code,message,data} one.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CallableFailure(c, app.InvalidArgument(app.ErrInvalidInput))
		return
	}

	userAgent := req.UserAgent
	if strings.TrimSpace(userAgent) == "" {
		userAgent = c.Request.UserAgent()
	}

	result, err := h.submissions.Submit(c.Request.Context(), app.SubmitInput{
		Prompt:    req.Prompt,
		SessionID: req.SessionID,
		UserAgent: userAgent,
		Mode:      app.ParseMode(req.Mode),
		ControlID: req.ControlID,
		Identity:  middleware.IdentityFrom(c),
	})
	if err != nil {
		response.CallableFailure(c, err)
		return
	}

	response.Result(c, result)
}

func (h *ChatHandler) ListTurns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	turns, err := h.turns.Recent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list turns failed")
		return
	}

	response.OK(c, turns)
}

func (h *ChatHandler) EditTurn(c *gin.Context) {
	var req EditTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	id := c.Param("id")
	session := requestSession(c, h.roles)
	if err := h.admin.EditTurn(c.Request.Context(), session, id, req.Prompt); err != nil {
		response.FromApp(c, err)
		return
	}

	response.OK(c, gin.H{"id": id})
}

// requestSession builds a one-request session context from the bearer identity.
func requestSession(c *gin.Context, roles *app.RoleGate) *app.SessionContext {
	session := app.NewSessionContext(roles, nil)
	if identity := middleware.IdentityFrom(c); identity != nil {
		session.OnIdentityChange(identity)
	}
	return session
}
