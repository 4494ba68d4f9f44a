package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/kodprodobro/auth-service/internal/config"
	"github.com/kodprodobro/auth-service/internal/handlers"
	"github.com/kodprodobro/auth-service/internal/jobs"
	"github.com/kodprodobro/auth-service/internal/middleware"
	"github.com/kodprodobro/auth-service/internal/repository"
	"github.com/kodprodobro/auth-service/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dynamoClient, err := initDynamoDB(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize DynamoDB")
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(dynamoClient, cfg.DynamoDB.TableName, logger)
	resetTokenRepo := repository.NewResetTokenRepository(dynamoClient, cfg.DynamoDB.TableName, logger)

	var revocationStore service.RevocationStore
	switch cfg.Revocation.Backend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Endpoint,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		revocationStore = repository.NewRedisRevocationStore(redisClient, logger)
		logger.Info("Using Redis revocation store")
	case "dynamodb":
		revocationStore = repository.NewDynamoRevocationStore(dynamoClient, cfg.DynamoDB.TableName, logger)
		logger.Info("Using DynamoDB revocation store")
	}

	var emailSender service.EmailSender
	if cfg.SMTP.Host != "" {
		emailSender = service.NewSMTPSender(&cfg.SMTP, logger)
	} else {
		emailSender = service.NewLogSender(logger)
	}

	// Initialize services
	jwtService, err := service.NewJWTService(&cfg.JWT, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize JWT service")
	}

	authService := service.NewAuthService(userRepo, jwtService, revocationStore, emailSender, logger)
	resetService := service.NewPasswordResetService(userRepo, resetTokenRepo, emailSender, &cfg.Reset, logger)

	authHandlers := handlers.NewAuthHandlers(authService, resetService, logger)
	authMiddleware := middleware.NewAuthMiddleware(authService, logger)
	router := handlers.NewRouter(authHandlers, authMiddleware, logger)

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	jobs.StartResetTokenCleanup(jobCtx, resetService, cfg.Reset.SweepInterval, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	cancelJobs()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

func initDynamoDB(cfg *config.Config, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.DynamoDB.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO(),
			awsconfig.WithRegion(cfg.DynamoDB.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.DynamoDB.Endpoint,
						SigningRegion: cfg.DynamoDB.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.TODO())
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Info("DynamoDB client initialized")
	return client, nil
}
