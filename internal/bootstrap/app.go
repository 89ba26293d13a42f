package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/flisboa999/guiaturismo/internal/ai"
	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/cache"
	"github.com/flisboa999/guiaturismo/internal/config"
	"github.com/flisboa999/guiaturismo/internal/liveview"
	"github.com/flisboa999/guiaturismo/internal/model"
	"github.com/flisboa999/guiaturismo/internal/observability"
	mysqlClient "github.com/flisboa999/guiaturismo/internal/platform/mysql"
	postgresClient "github.com/flisboa999/guiaturismo/internal/platform/postgres"
	rabbitmqClient "github.com/flisboa999/guiaturismo/internal/platform/rabbitmq"
	redisClient "github.com/flisboa999/guiaturismo/internal/platform/redis"
	"github.com/flisboa999/guiaturismo/internal/repository"
	"github.com/flisboa999/guiaturismo/internal/store"
	httptransport "github.com/flisboa999/guiaturismo/internal/transport/http"
	"github.com/flisboa999/guiaturismo/internal/transport/http/handler"
	"github.com/flisboa999/guiaturismo/internal/worker"
)

const collectionName = "chats"

type App struct {
	Config     *config.Config
	DB         *gorm.DB
	Redis      *redis.Client
	MQConn     *amqp.Connection
	FeedWorker *worker.ChangeFeedWorker

	Hub         *store.Hub
	Turns       *store.Collection
	Controls    *liveview.ControlRelay
	Metrics     *observability.Metrics
	Roles       *app.RoleGate
	Auth        *app.AuthService
	Submissions *app.SubmissionService
	Admin       *app.AdminService

	StartedAt time.Time
}

// New connects whatever the configured drivers need and wires the services.
// On error everything opened so far is closed again.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{
		Config:    cfg,
		Hub:       store.NewHub(),
		Controls:  liveview.NewControlRelay(),
		Metrics:   observability.NewMetrics("chat"),
		Roles:     app.NewRoleGate(cfg.Auth.AdminEmail),
		StartedAt: time.Now(),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var docs store.Documents
	var users app.UserStore
	switch cfg.Store.Driver {
	case "mysql":
		a.DB, err = mysqlClient.New(ctx, cfg.MySQLDSN())
	case "postgres":
		a.DB, err = postgresClient.New(ctx, cfg.PostgresDSN())
	case "memory":
		docs = store.NewMemory()
		users = repository.NewMemoryUserRepository()
	default:
		err = fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if a.DB != nil {
		if err = a.DB.AutoMigrate(&model.ChatTurn{}, &model.User{}); err != nil {
			return nil, fmt.Errorf("auto migrate tables failed: %w", err)
		}
		docs = repository.NewTurnRepository(a.DB)
		users = repository.NewUserRepository(a.DB)
	}

	var confirmations app.Confirmations = cache.NewMemoryConfirmations()
	opts := []store.CollectionOption{store.WithWindowSize(cfg.Store.WindowSize)}
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithWindowCache(cache.NewWindowCache(
			a.Redis,
			collectionName,
			time.Duration(cfg.Redis.WindowTTLSeconds)*time.Second,
		)))
		confirmations = cache.NewRedisConfirmations(a.Redis, collectionName)
	}

	if cfg.Feed.Driver == "rabbitmq" {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, store.WithPublisher(
			rabbitmqClient.NewChangePublisher(a.MQConn, cfg.RabbitMQ.ChangeExchange, instanceID()),
		))
		a.FeedWorker = worker.NewChangeFeedWorker(a.MQConn, a.Hub, cfg.RabbitMQ.ChangeExchange, a.Metrics)
		if err = a.FeedWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start change feed worker failed: %w", err)
		}
	}

	a.Turns = store.NewCollection(docs, a.Hub, opts...)

	generator, err := ai.NewGenerator(ai.ChatConfig{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		APIKey:   cfg.LLM.APIKey,
		Model:    cfg.LLM.Model,
		Timeout:  time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("no generation api key configured, generate mode will fail")
	}

	a.Auth = app.NewAuthService(users, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute)
	a.Submissions = app.NewSubmissionService(
		a.Turns,
		generator,
		app.NewInputGate(a.Controls.Notify),
		a.Metrics,
		app.SubmissionConfig{RequireLogin: cfg.Auth.RequireLogin},
	)
	a.Admin = app.NewAdminService(
		a.Turns,
		confirmations,
		time.Duration(cfg.Auth.ResetConfirmTTLSeconds)*time.Second,
		a.Metrics,
	)

	log.WithFields(log.Fields{
		"store": cfg.Store.Driver,
		"feed":  cfg.Feed.Driver,
		"redis": cfg.Redis.Enabled,
	}).Info("application wired")
	return a, nil
}

func (a *App) HTTPDependencies() httptransport.Dependencies {
	return httptransport.Dependencies{
		AppName:     a.Config.App.Name,
		Env:         a.Config.App.Env,
		GinMode:     a.Config.App.GinMode,
		WebRoot:     a.Config.App.WebRoot,
		StartedAt:   a.StartedAt,
		Auth:        a.Auth,
		Submissions: a.Submissions,
		Admin:       a.Admin,
		Roles:       a.Roles,
		Turns:       a.Turns,
		Controls:    a.Controls,
		Metrics:     a.Metrics,
		Health:      a.HealthChecks(),
	}
}

// HealthChecks covers only the dependencies this instance actually uses.
func (a *App) HealthChecks() []handler.HealthCheck {
	var checks []handler.HealthCheck
	if a.DB != nil {
		checks = append(checks, handler.HealthCheck{Name: a.Config.Store.Driver, Probe: func(ctx context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}})
	}
	if a.Redis != nil {
		checks = append(checks, handler.HealthCheck{Name: "redis", Probe: func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}})
	}
	if a.MQConn != nil {
		checks = append(checks, handler.HealthCheck{Name: "rabbitmq", Probe: func(context.Context) error {
			if a.MQConn.IsClosed() {
				return fmt.Errorf("connection closed")
			}
			return nil
		}})
	}
	return checks
}

func (a *App) Close() error {
	var closeErr error
	if a.FeedWorker != nil {
		a.FeedWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}

func instanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "instance"
	}
	return host + "-" + uuid.NewString()[:8]
}
