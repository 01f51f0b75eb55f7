package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"pharmacy/internal/config"
	"pharmacy/internal/database"
	"pharmacy/internal/handlers"
	"pharmacy/internal/metrics"
	"pharmacy/internal/middleware"
	"pharmacy/internal/models"
	"pharmacy/internal/notifications"
	"pharmacy/internal/repositories"
	"pharmacy/internal/services"
	"pharmacy/pkg/kafka"
	"pharmacy/pkg/rabbitmq"
)

const auditQueue = "pharmacy.notifications.audit"

type stores struct {
	products      repositories.ProductRepository
	users         repositories.UserRepository
	orders        repositories.OrderRepository
	prescriptions repositories.PrescriptionRepository
	payments      repositories.PaymentRepository
}

// server owns every long-lived component and the order they are shut down in.
type server struct {
	cfg        *config.Config
	log        *zap.Logger
	app        *fiber.App
	stores     stores
	tokens     *services.TokenService
	dispatcher *notifications.Dispatcher
	rabbit     *rabbitmq.Client
	closers    []func() error
	seeded     []models.User
}

func newServer(ctx context.Context, cfg *config.Config, log *zap.Logger, reg *prometheus.Registry) (_ *server, err error) {
	s := &server{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			s.closeAll()
		}
	}()

	if err = s.openStores(); err != nil {
		return nil, err
	}

	channels := []notifications.Channel{notifications.NewLogChannel(log)}
	publisher, err := s.openPublisher()
	if err != nil {
		return nil, err
	}
	if publisher != nil {
		channels = append(channels, notifications.NewPublisherChannel(publisher))
	}

	m := metrics.New(reg)
	s.dispatcher = notifications.NewDispatcher(cfg.NotifyQueueSize, cfg.NotifyWorkers, log, m, channels...)

	inventory := services.NewInventoryService(s.stores.products, log, m)
	prescriptions := services.NewPrescriptionService(s.stores.prescriptions, s.stores.users, s.dispatcher, log)
	orders := services.NewOrderService(s.stores.orders, s.stores.users, inventory, prescriptions, s.dispatcher, log, m)
	payments := services.NewPaymentService(s.stores.payments, s.stores.orders, s.stores.users, orders, s.dispatcher, log, m)
	s.tokens = services.NewTokenService(cfg.JWTSecret)

	if cfg.SeedData {
		if s.seeded, err = seed(ctx, s.stores, log); err != nil {
			return nil, err
		}
		s.logDevTokens()
	}

	s.app = fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(log),
		DisableStartupMessage: true,
	})
	s.app.Use(recover.New())
	s.app.Use(middleware.RequestLogger(log))

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":  "healthy",
			"time":    time.Now().Format(time.RFC3339),
			"storage": cfg.StorageDriver,
			"broker":  cfg.EventsBroker,
		})
	})
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	apiV1 := s.app.Group("/api/v1")
	staff := fiber.Handler(middleware.Allow)
	if cfg.AuthEnabled {
		apiV1.Use(middleware.AuthRequired(s.tokens, log))
		staff = middleware.RequireStaff()
	}
	handlers.NewInventoryHandler(inventory, log).RegisterRoutes(apiV1, staff)
	handlers.NewPrescriptionHandler(prescriptions, log).RegisterRoutes(apiV1, staff)
	handlers.NewOrderHandler(orders, log).RegisterRoutes(apiV1, staff)
	handlers.NewPaymentHandler(payments, log).RegisterRoutes(apiV1)

	return s, nil
}

func (s *server) openStores() error {
	switch s.cfg.StorageDriver {
	case config.DriverMemory:
		s.stores = stores{
			products:      repositories.NewMemoryProductRepository(),
			users:         repositories.NewMemoryUserRepository(),
			orders:        repositories.NewMemoryOrderRepository(),
			prescriptions: repositories.NewMemoryPrescriptionRepository(),
			payments:      repositories.NewMemoryPaymentRepository(),
		}
		return nil
	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.Open(s.cfg.StorageDriver, s.cfg.DatabaseDSN)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database handle: %w", err)
		}
		s.closers = append(s.closers, sqlDB.Close)
		s.stores = stores{
			products:      repositories.NewGORMProductRepository(db),
			users:         repositories.NewGORMUserRepository(db),
			orders:        repositories.NewGORMOrderRepository(db),
			prescriptions: repositories.NewGORMPrescriptionRepository(db),
			payments:      repositories.NewGORMPaymentRepository(db),
		}
		s.log.Info("database connected", zap.String("driver", s.cfg.StorageDriver))
		return nil
	default:
		return fmt.Errorf("unsupported storage driver %q", s.cfg.StorageDriver)
	}
}

// openPublisher connects the configured broker. It returns nil when no broker is configured.
func (s *server) openPublisher() (notifications.Publisher, error) {
	switch s.cfg.EventsBroker {
	case config.BrokerNone:
		return nil, nil
	case config.BrokerRabbitMQ:
		client, err := rabbitmq.NewClient(rabbitmq.Config{URL: s.cfg.RabbitMQURL, Exchange: s.cfg.RabbitExchange}, s.log)
		if err != nil {
			return nil, err
		}
		s.rabbit = client
		s.closers = append(s.closers, client.Close)
		return client, nil
	case config.BrokerKafka:
		producer := kafka.NewProducer(kafka.Config{Brokers: s.cfg.KafkaBrokers, Topic: s.cfg.KafkaTopic})
		s.closers = append(s.closers, producer.Close)
		s.log.Info("kafka producer configured",
			zap.Strings("brokers", s.cfg.KafkaBrokers),
			zap.String("topic", s.cfg.KafkaTopic),
		)
		return producer, nil
	default:
		return nil, fmt.Errorf("unsupported events broker %q", s.cfg.EventsBroker)
	}
}

func (s *server) logDevTokens() {
	if !s.cfg.AuthEnabled {
		return
	}
	for i := range s.seeded {
		token, err := s.tokens.Issue(&s.seeded[i])
		if err != nil {
			s.log.Warn("failed to issue development token", zap.String("user_id", s.seeded[i].ID), zap.Error(err))
			continue
		}
		s.log.Info("development token",
			zap.String("user_id", s.seeded[i].ID),
			zap.String("role", string(s.seeded[i].Role)),
			zap.String("token", token),
		)
	}
}

// start launches the notification workers and, when enabled, the audit consumer.
func (s *server) start(ctx context.Context) error {
	s.dispatcher.Start()
	if s.rabbit == nil || !s.cfg.RabbitConsume {
		return nil
	}
	return s.rabbit.Consume(ctx, auditQueue, "#", s.auditNotification)
}

// auditNotification logs a notification event received back from the exchange.
func (s *server) auditNotification(msg amqp.Delivery) error {
	var event notifications.Event
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		return fmt.Errorf("failed to decode notification: %w", err)
	}
	s.log.Info("notification received",
		zap.String("routing_key", msg.RoutingKey),
		zap.String("event_id", event.ID),
		zap.String("user_id", event.UserID),
		zap.String("type", string(event.Type)),
		zap.String("reference", event.Reference),
	)
	return nil
}

// shutdown stops accepting requests, drains queued notifications and releases connections.
func (s *server) shutdown(ctx context.Context) error {
	var errs []error
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if s.dispatcher != nil {
		if err := s.dispatcher.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("notification drain: %w", err))
		}
	}
	if err := s.closeAll(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *server) closeAll() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
