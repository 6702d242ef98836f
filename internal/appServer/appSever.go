package appServer

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/bookwell/bookwell/config"
	repository "github.com/bookwell/bookwell/internal/database/postgres"
	"github.com/bookwell/bookwell/internal/service"
	"github.com/bookwell/bookwell/internal/transport"
	"github.com/bookwell/bookwell/internal/worker"
	"github.com/bookwell/bookwell/pkg/clock"
	"github.com/bookwell/bookwell/pkg/postgres"
	"github.com/bookwell/bookwell/pkg/queue"
	"github.com/bookwell/bookwell/pkg/rabbitmq"
	"github.com/bookwell/bookwell/pkg/redis"
	"github.com/bookwell/bookwell/pkg/slotlock"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}

	db, err := postgres.NewPostgresDB(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	store := repository.NewStore(db)

	redisClient := redis.NewRedisClient(&cfg.Redis)
	defer redisClient.Close()

	locks := slotlock.New(redisClient, cfg.Booking.SlotLockTTL)
	notificationQueue := queue.NewRedisQueue(redisClient, cfg.Booking.NotificationQueue)

	// Webhooks are optional: an unreachable broker disables them rather
	// than blocking startup.
	var webhooks service.WebhookSink
	publisher, err := rabbitmq.NewPublisher(rabbitmq.Config{
		URL:       cfg.RabbitMQ.URL,
		QueueName: cfg.RabbitMQ.WebhookQueue,
	})
	if err != nil {
		logrus.Errorf("Failed to connect to RabbitMQ: %v. Continuing without webhooks...", err)
	} else {
		defer publisher.Close()
		webhooks = publisher
		logrus.Info("Webhook publisher initialized")
	}

	clk := clock.New()
	notifier := service.NewNotifier(notificationQueue, webhooks, clk)

	availabilityService := service.NewAvailabilityService(store, clk)
	bookingService := service.NewBookingService(store, locks, notifier, clk, cfg.Booking.MeetingURLBase)
	scheduleService := service.NewScheduleService(store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepWorker := worker.NewBookingSweepWorker(bookingService, cfg.Worker.SweepInterval)
	go sweepWorker.Start(ctx)

	promoter := worker.NewQueuePromoter(notificationQueue, cfg.Worker.PromoteInterval)
	go promoter.Start(ctx)

	availabilityHandler := transport.NewAvailabilityHandler(availabilityService)
	bookingHandler := transport.NewBookingHandler(bookingService)
	scheduleHandler := transport.NewScheduleHandler(scheduleService)
	publicHandler := transport.NewPublicHandler(store, availabilityService, bookingService)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	routes := transport.InitRoutes(availabilityHandler, bookingHandler, scheduleHandler, publicHandler, cfg.Server.Timeout)

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, routes); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	if err := srv.Shutdown(context.Background()); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
}
