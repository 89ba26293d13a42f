package http

import (
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/liveview"
	"github.com/flisboa999/guiaturismo/internal/observability"
	"github.com/flisboa999/guiaturismo/internal/store"
	"github.com/flisboa999/guiaturismo/internal/transport/http/handler"
	"github.com/flisboa999/guiaturismo/internal/transport/http/middleware"
)

// Dependencies is everything the router serves.
type Dependencies struct {
	AppName   string
	Env       string
	GinMode   string
	WebRoot   string
	StartedAt time.Time

	Auth        *app.AuthService
	Submissions *app.SubmissionService
	Admin       *app.AdminService
	Roles       *app.RoleGate
	Turns       *store.Collection
	Controls    *liveview.ControlRelay
	Metrics     *observability.Metrics
	Health      []handler.HealthCheck
}

func NewRouter(deps Dependencies) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetrics("chat")
	}
	if deps.Controls == nil {
		deps.Controls = liveview.NewControlRelay()
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = time.Now()
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	if deps.WebRoot != "" {
		router.StaticFile("/", filepath.Join(deps.WebRoot, "index.html"))
		router.Static("/static", deps.WebRoot)
	}

	healthHandler := handler.NewHealthHandler(deps.AppName, deps.Env, deps.StartedAt, deps.Health)
	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	authHandler := handler.NewAuthHandler(deps.Auth, deps.Roles)
	chatHandler := handler.NewChatHandler(deps.Submissions, deps.Turns, deps.Admin, deps.Roles)
	adminHandler := handler.NewAdminHandler(deps.Admin, deps.Roles)
	liveHandler := handler.NewLiveHandler(deps.Turns, deps.Auth, deps.Roles, deps.Controls, deps.Metrics)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(deps.Auth), authHandler.Me)

	chatGroup := v1.Group("/chat")
	chatGroup.POST("/messages", middleware.OptionalJWT(deps.Auth), chatHandler.SendMessage)
	chatGroup.GET("/turns", chatHandler.ListTurns)
	chatGroup.PATCH("/turns/:id", middleware.AuthJWT(deps.Auth), chatHandler.EditTurn)
	chatGroup.GET("/live", liveHandler.Serve)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.AuthJWT(deps.Auth))
	adminGroup.POST("/reset", adminHandler.RequestReset)
	adminGroup.POST("/reset/confirm", adminHandler.ConfirmReset)

	return router
}
