package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	appsvc "docqa/internal/app"
	"docqa/internal/config"
	"docqa/internal/conversation"
	"docqa/internal/credential"
	"docqa/internal/events"
	"docqa/internal/gateway"
	"docqa/internal/ingest"
	"docqa/internal/model"
	"docqa/internal/pkg/logger"
	"docqa/internal/platform/database"
	rabbitmqClient "docqa/internal/platform/rabbitmq"
	redisClient "docqa/internal/platform/redis"
	"docqa/internal/session"
)

const module = "bootstrap"

// App holds the client core: one session, one gateway, and the services the
// presentation layer drives.
type App struct {
	Config      *config.Config
	Logger      logger.ILogger
	Credentials credential.Store
	Session     *session.Store
	Gateway     *gateway.Client
	Publisher   events.Publisher
	Auth        *appsvc.AuthService
	Tracker     *ingest.Tracker
	Dashboard   *appsvc.DashboardService

	Redis  *redis.Client
	DB     *gorm.DB
	MQConn *amqp.Connection

	StartedAt time.Time
}

// New builds the App and restores any persisted session.
func New(ctx context.Context, cfg *config.Config, log logger.ILogger) (*App, error) {
	if log == nil {
		log = logger.Nop()
	}
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}

	store, err := a.openCredentials(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Credentials = store
	a.Publisher = a.openPublisher()

	a.Session = session.NewStore(store, log)
	a.Session.Restore(ctx)

	a.Gateway = gateway.NewClient(cfg.API.BaseURL, cfg.RequestTimeout())
	a.Auth = appsvc.NewAuthService(a.Gateway, a.Session, log)
	a.Tracker = a.NewTracker(nil)
	a.Dashboard = appsvc.NewDashboardService(a.Tracker, a.Gateway, a.Session)
	return a, nil
}

// NewConversation returns a controller for one chat pane.
func (a *App) NewConversation() *conversation.Controller {
	return conversation.NewController(a.Gateway, a.Session, conversation.Options{
		Logger:    a.Logger,
		Publisher: a.Publisher,
	})
}

// NewTracker returns an upload tracker reporting changes to onChange.
func (a *App) NewTracker(onChange func(model.UploadTask)) *ingest.Tracker {
	return ingest.NewTracker(a.Gateway, a.Session, ingest.Options{
		Interval:  a.Config.TickInterval(),
		Step:      a.Config.Upload.Step,
		Cap:       a.Config.Upload.Cap,
		Logger:    a.Logger,
		Publisher: a.Publisher,
		OnChange:  onChange,
	})
}

func (a *App) openCredentials(ctx context.Context) (credential.Store, error) {
	cfg := a.Config.Credentials
	switch cfg.Backend {
	case config.CredentialBackendFile:
		return credential.NewFileStore(cfg.FilePath), nil
	case config.CredentialBackendRedis:
		client, err := redisClient.New(ctx, a.Config.Redis)
		if err != nil {
			return nil, err
		}
		a.Redis = client
		return credential.NewRedisStore(client, cfg.KeyPrefix), nil
	case config.CredentialBackendSQL:
		db, err := database.Open(ctx, a.Config.Database)
		if err != nil {
			return nil, err
		}
		a.DB = db
		return credential.NewSQLStore(db)
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}

// openPublisher connects the event sink when one is configured. Events are
// optional, so a broker that cannot be reached only disables them.
func (a *App) openPublisher() events.Publisher {
	if a.Config.RabbitMQ.URL == "" {
		return events.Nop()
	}
	conn, err := rabbitmqClient.New(a.Config.RabbitMQ.URL)
	if err != nil {
		a.Logger.Warn(module, "event publishing disabled", map[string]interface{}{"error": err.Error()})
		return events.Nop()
	}
	a.MQConn = conn
	return rabbitmqClient.NewEventPublisher(conn, a.Config.RabbitMQ.EventsQueue)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			closeErr = err
		}
	}
	if a.Logger != nil {
		_ = a.Logger.Sync()
	}
	return closeErr
}
