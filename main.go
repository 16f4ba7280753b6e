package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	miniosdk "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"tawk-service/internal/auth"
	"tawk-service/internal/config"
	"tawk-service/internal/db"
	"tawk-service/internal/handlers"
	"tawk-service/internal/logger"
	"tawk-service/internal/mail"
	"tawk-service/internal/middleware"
	"tawk-service/internal/observability"
	"tawk-service/internal/presence"
	"tawk-service/internal/rabbitmq"
	"tawk-service/internal/repositories"
	miniostorage "tawk-service/internal/storage/minio"
	"tawk-service/internal/telemetry"
	"tawk-service/internal/ws"
)

const serviceName = "tawk-service"

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.Tracing.Endpoint, serviceName)
	if err != nil {
		log.Fatal("failed to set up tracing", "error", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error("tracing shutdown failed", "error", err)
		}
	}()

	database, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatal("failed to connect to db", "error", err)
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
	}

	if cfg.AMQP.URL != "" {
		amqpPublisher, err := observability.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Error("failed to connect event publisher, events disabled", "error", err)
		} else {
			observability.SetPublisher(amqpPublisher)
			defer amqpPublisher.Close()
		}
	}

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	defer auditPublisher.Close()
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, "audit.logs", serviceName, cfg.Environment, log)

	mailer := mail.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, log)

	var files ws.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		minioClient, err := miniosdk.New(cfg.Storage.Endpoint, &miniosdk.Options{
			Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
			Secure: cfg.Storage.UseSSL,
		})
		if err != nil {
			log.Fatal("failed to create storage client", "error", err)
		}
		scheme := "http"
		if cfg.Storage.UseSSL {
			scheme = "https"
		}
		storageClient, err := miniostorage.NewClient(ctx, minioClient, cfg.Storage.Bucket,
			fmt.Sprintf("%s://%s", scheme, cfg.Storage.Endpoint))
		if err != nil {
			log.Fatal("failed to prepare storage bucket", "error", err)
		}
		files = storageClient
	}

	userRepo := repositories.NewUserRepo(database)
	friendRepo := repositories.NewFriendRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	statusStore := presence.NewStore(userRepo, rdb, time.Duration(cfg.Redis.PresenceTTL)*time.Second)
	registry := presence.NewRegistry(statusStore, log)
	deliveryRouter := presence.NewRouter(registry, log)

	tokens := auth.NewTokenManager(cfg.JWT.Secret)

	eventHandler := ws.NewEventHandler(userRepo, friendRepo, conversationRepo, messageRepo, deliveryRouter, files, log)
	socketHandler := ws.NewSocketHandler(registry, tokens, userRepo, eventHandler, log)

	authHandler := handlers.NewAuthHandler(userRepo, tokens, mailer, auditEmitter, log, cfg.ResetURL)
	userHandler := handlers.NewUserHandler(userRepo, friendRepo, log)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/send-otp", authHandler.SendOTP)
		authRoutes.POST("/verify-otp", authHandler.VerifyOTP)
		authRoutes.POST("/login", authHandler.Login)
		authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
		authRoutes.POST("/reset-password", authHandler.ResetPassword)
	}

	userRoutes := router.Group("/user", middleware.Auth(tokens, userRepo))
	{
		userRoutes.PATCH("/me", userHandler.UpdateMe)
		userRoutes.GET("/others", userHandler.GetOthers)
		userRoutes.GET("/friends", userHandler.GetFriends)
		userRoutes.GET("/requests", userHandler.GetRequests)
	}

	router.GET("/ws", socketHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.Debug)

	log.Info("starting server", "port", cfg.Port, "environment", cfg.Environment)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("server error", "error", err)
	}
}
