package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flisboa999/guiaturismo/internal/app"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeUnauthorized       = 40100
	CodeForbidden          = 40300
	CodeNotFound           = 40400
	CodeTooManyRequests    = 42900
	CodeInternalServer     = 50000
	CodeEmailExists        = 40002
	CodeInvalidCredentials = 40101
	CodeResetUnconfirmed   = 40301
	CodeTurnNotFound       = 40401
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// FromApp writes a classified app error in the {code,message,data} envelope.
func FromApp(c *gin.Context, err error) {
	appErr := app.AsError(err)
	status := HTTPStatus(appErr.Code)
	code := CodeInternalServer
	switch {
	case appErr.Code == app.CodeInvalidArgument:
		code = CodeBadRequest
	case appErr.Code == app.CodeUnauthenticated:
		code = CodeUnauthorized
	case appErr.Code == app.CodePermissionDenied && errors.Is(err, app.ErrResetUnconfirmed):
		code = CodeResetUnconfirmed
	case appErr.Code == app.CodePermissionDenied:
		code = CodeForbidden
	case appErr.Code == app.CodeNotFound:
		code = CodeTurnNotFound
	case appErr.Code == app.CodeResourceExhausted:
		code = CodeTooManyRequests
	}
	Error(c, status, code, appErr.Message)
}

// CallableError is the error half of the callable envelope.
type CallableError struct {
	Status  app.Code `json:"status"`
	Message string   `json:"message"`
	Details string   `json:"details,omitempty"`
}

// Result writes a callable success: {"result": data}.
func Result(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"result": data})
}

// CallableFailure writes a callable failure: {"error": {...}}.
func CallableFailure(c *gin.Context, err error) {
	appErr := app.AsError(err)
	c.JSON(HTTPStatus(appErr.Code), gin.H{"error": CallableError{
		Status:  appErr.Code,
		Message: appErr.Message,
		Details: appErr.Details,
	}})
}

func HTTPStatus(code app.Code) int {
	switch code {
	case app.CodeInvalidArgument:
		return http.StatusBadRequest
	case app.CodeUnauthenticated:
		return http.StatusUnauthorized
	case app.CodePermissionDenied:
		return http.StatusForbidden
	case app.CodeNotFound:
		return http.StatusNotFound
	case app.CodeResourceExhausted:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
