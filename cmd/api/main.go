package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	fbapp "firebase.google.com/go/v4"

	"schoolmsg/internal/adapter/api"
	"schoolmsg/internal/adapter/api/handler"
	apimiddleware "schoolmsg/internal/adapter/api/middleware"
	"schoolmsg/internal/adapter/api/router"
	"schoolmsg/internal/adapter/repository"
	domainrepo "schoolmsg/internal/domain/repository"
	"schoolmsg/internal/infrastructure/firebase"
	"schoolmsg/internal/infrastructure/ratelimit"
	"schoolmsg/internal/usecase"
	"schoolmsg/pkg/config"
	"schoolmsg/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		threadRepo  domainrepo.ThreadRepository
		enrollments domainrepo.EnrollmentDirectory
		students    domainrepo.StudentDirectory
		assignments domainrepo.TeacherAssignmentDirectory
		resolver    apimiddleware.IdentityResolver
	)

	if cfg.FirebaseProject != "" {
		opts := credentialsOptions(cfg)

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase: %v", err)
		}

		authClient, err := firebaseApp.Auth(ctx)
		if err != nil {
			logger.Fatal("Failed to initialize Firebase Auth: %v", err)
		}
		resolver = firebase.NewIdentityClient(authClient)

		if cfg.StoreDriver == config.StoreFirestore {
			firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
			if err != nil {
				logger.Fatal("Failed to create Firestore client: %v", err)
			}
			defer firestoreClient.Close()

			directory := repository.NewFirestoreDirectory(firestoreClient)
			threadRepo = repository.NewFirestoreThreadRepository(firestoreClient)
			enrollments, students, assignments = directory, directory, directory
		}
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set, accepting dev:<uid>:<role> tokens")
		resolver = firebase.DevIdentityResolver{}
	}

	if cfg.StoreDriver == config.StoreMemory {
		directory := repository.NewMemoryDirectory()
		if cfg.SeedFile != "" {
			directory, err = repository.LoadDirectorySeed(cfg.SeedFile)
			if err != nil {
				logger.Fatal("Failed to load directory seed %s: %v", cfg.SeedFile, err)
			}
			logger.Info("Loaded directory seed from %s", cfg.SeedFile)
		}
		threadRepo = repository.NewMemoryThreadRepository()
		enrollments, students, assignments = directory, directory, directory
		logger.Warn("Using in-memory thread store, data is lost on restart")
	}

	limiter := newLimiter(ctx, cfg)

	threadUseCase := usecase.NewThreadUseCase(threadRepo, enrollments, students, assignments)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(resolver)
	threadHandler := handler.NewThreadHandler(threadUseCase)

	router.Setup(e, threadHandler, authMiddleware, limiter)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			logger.Info("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed: %v", err)
	}
}

// credentialsOptions prefers inline JSON, then a key file, then application
// default credentials.
func credentialsOptions(cfg *config.Config) []option.ClientOption {
	if cfg.ServiceAccountJSON != "" {
		logger.Info("Using Firebase service account from environment variable")
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON))}
	}

	if cfg.ServiceAccountPath != "" {
		if _, err := os.Stat(cfg.ServiceAccountPath); os.IsNotExist(err) {
			logger.Fatal("Service account file does not exist: %s", cfg.ServiceAccountPath)
		}
		logger.Info("Using Firebase service account from file: %s", cfg.ServiceAccountPath)
		return []option.ClientOption{option.WithCredentialsFile(cfg.ServiceAccountPath)}
	}

	logger.Info("Using application default credentials")
	return nil
}

func newLimiter(ctx context.Context, cfg *config.Config) ratelimit.Limiter {
	limits := ratelimit.Limits{
		ratelimit.ActionSendMessage:  cfg.SendMessageRatePerMin,
		ratelimit.ActionCreateThread: cfg.CreateThreadRatePerMin,
	}

	if cfg.RedisURL != "" {
		client, err := ratelimit.DialRedis(ctx, cfg.RedisURL)
		if err == nil {
			logger.Info("Using Redis rate limiter")
			return ratelimit.NewRedisLimiter(client, limits)
		}
		logger.Warn("Redis unavailable, falling back to in-memory rate limiter: %v", err)
	}

	limiter := ratelimit.NewRateLimiter(limits)
	limiter.StartCleanupRoutine(ctx)
	return limiter
}
