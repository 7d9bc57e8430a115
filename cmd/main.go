package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/events"
	"github.com/mansoorceksport/learnify/internal/infrastructure/mail"
	"github.com/mansoorceksport/learnify/internal/repository"
	"github.com/mansoorceksport/learnify/internal/server"
	"github.com/mansoorceksport/learnify/internal/service"
	"github.com/mansoorceksport/learnify/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Println("Starting Learnify API...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	otelProvider, err := telemetry.Initialize(ctx, telemetry.FromConfig(cfg.OTEL))
	if err != nil {
		log.Printf("Warning: Failed to initialize OpenTelemetry: %v", err)
	}
	if otelProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			otelProvider.Shutdown(shutdownCtx)
		}()
	}

	// Connect to MongoDB with OpenTelemetry instrumentation
	ctxMongo, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	mongoOpts := options.Client().ApplyURI(cfg.MongoDB.URI)
	if cfg.OTEL.Enabled {
		mongoOpts.SetMonitor(otelmongo.NewMonitor())
	}

	mongoClient, err := mongo.Connect(ctxMongo, mongoOpts)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	if err := mongoClient.Ping(ctxMongo, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	log.Println("✓ MongoDB connected")

	mongoDB := mongoClient.Database(cfg.MongoDB.Database)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("✓ Redis connected")

	files, err := repository.NewS3MediaRepository(ctx, cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize media storage: %v", err)
	}
	log.Println("✓ Media storage ready")

	var mailer service.Mailer
	if cfg.SMTP.Host != "" {
		mailer = mail.NewSMTPMailer(mail.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	} else {
		log.Println("Warning: SMTP_HOST not set, emails will only be logged")
		mailer = mail.NewLogMailer()
	}

	// Stats pipeline: every committed user/course mutation reaches the aggregator
	aggregator := service.NewStatsAggregator(
		repository.NewMongoUserRepository(mongoDB),
		repository.NewMongoCourseRepository(mongoDB),
		repository.NewMongoStatsRepository(mongoDB),
	)
	bus := events.NewBus()
	bus.Subscribe(aggregator.Handle)

	var publisher domain.ChangePublisher = bus
	if cfg.RabbitMQ.URL != "" {
		conn, err := events.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer conn.Close()

		ch, err := events.SetupChannel(conn, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.Queue)
		if err != nil {
			log.Fatalf("Failed to set up RabbitMQ channel: %v", err)
		}
		defer ch.Close()

		// events fan out through the broker and come back into the local bus
		publisher = events.NewAMQPPublisher(ch, cfg.RabbitMQ.Exchange)
		if err := events.Consume(ctx, ch, cfg.RabbitMQ.Queue, func(event domain.ChangeEvent) {
			_ = bus.Publish(ctx, event)
		}); err != nil {
			log.Fatalf("Failed to consume change events: %v", err)
		}
		log.Println("✓ RabbitMQ connected")
	}

	go aggregator.Run(ctx)

	loc, err := time.LoadLocation(cfg.Scheduler.StatsTimezone)
	if err != nil {
		log.Fatalf("Invalid STATS_TIMEZONE %q: %v", cfg.Scheduler.StatsTimezone, err)
	}
	scheduler := service.NewSnapshotScheduler(
		repository.NewMongoStatsRepository(mongoDB),
		repository.NewRedisPeriodLock(redisClient, 0),
		aggregator,
		cfg.Scheduler.StatsCron,
		loc,
	)
	if err := scheduler.EnsureCurrent(ctx, time.Now().UTC()); err != nil {
		log.Printf("Warning: Failed to prepare stats snapshot: %v", err)
	}
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start stats scheduler: %v", err)
	}
	defer scheduler.Stop()

	app := server.NewApp(server.AppDependencies{
		Config:      cfg,
		MongoDB:     mongoDB,
		RedisClient: redisClient,
		Publisher:   publisher,
		Gateway:     service.NewPaymentGateway(cfg.Razorpay),
		Files:       files,
		Mailer:      mailer,
	})

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down gracefully...")
		stop()
		app.Shutdown()
	}()

	log.Printf("🚀 Server starting on port %s", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
