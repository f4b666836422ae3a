package main

import (
	"context"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/nextround/backend/config"
	"github.com/nextround/backend/internal/api/handlers"
	"github.com/nextround/backend/internal/api/middleware"
	"github.com/nextround/backend/internal/api/routes"
	"github.com/nextround/backend/internal/cache"
	"github.com/nextround/backend/internal/logger"
	"github.com/nextround/backend/internal/providers/llm"
	"github.com/nextround/backend/internal/providers/mail"
	"github.com/nextround/backend/internal/providers/stt"
	mongorepo "github.com/nextround/backend/internal/repositories/mongo"
	pgrepo "github.com/nextround/backend/internal/repositories/postgres"
	"github.com/nextround/backend/internal/repositories/redisrepo"
	"github.com/nextround/backend/internal/services"
	"github.com/nextround/backend/internal/storage"
	"github.com/nextround/backend/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("postgres init failed")
	}
	log.Info("postgres connected")

	if err := config.InitMongo(); err != nil {
		log.WithError(err).Fatal("mongo init failed")
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.WithError(err).Fatal("mongo index setup failed")
	}
	log.Info("mongo connected")

	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("redis init failed")
	}
	log.Info("redis connected")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	llmProvider, err := llm.NewVertexGemini(ctx, os.Getenv("GCP_PROJECT_ID"), os.Getenv("GCP_LOCATION"), os.Getenv("LLM_MODEL"))
	if err != nil {
		log.WithError(err).Fatal("vertex init failed")
	}
	defer llmProvider.Close()

	sttProvider, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.WithError(err).Fatal("speech init failed")
	}
	defer sttProvider.Close()

	// Recording storage is optional; without a bucket we still transcribe.
	var uploader storage.Uploader
	var signer storage.Signer
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		store, err := storage.NewGCSStore(ctx, bucket)
		if err != nil {
			log.WithError(err).Fatal("gcs init failed")
		}
		defer store.Close()
		uploader, signer = store, store
	}

	sender, err := mail.NewSMTPSender()
	if err != nil {
		log.WithError(err).Fatal("smtp config invalid")
	}

	mailQueue := &workers.RedisMailQueue{Redis: config.RedisClient}
	mailPool := &workers.MailWorkerPool{
		Redis:  config.RedisClient,
		Sender: sender,
		Logger: log,
	}
	if err := mailPool.Start(ctx); err != nil {
		log.WithError(err).Fatal("mail worker start failed")
	}

	users := pgrepo.NewUserRepo(config.PostgresDB)
	interviews := pgrepo.NewInterviewRepo(config.PostgresDB)
	posts := mongorepo.NewPostRepo(config.MongoDatabase())
	otps := redisrepo.NewOTPRepo(config.RedisClient)
	redisCache := cache.NewRedisCache(config.RedisClient)

	interviewCfg := config.LoadInterviewConfig()

	authSvc := services.NewAuthService(users, otps, mailQueue, jwtSecret)
	interviewSvc := services.NewInterviewService(interviews, users, llmProvider, interviewCfg)
	communitySvc := services.NewCommunityService(posts, users)
	profileSvc := services.NewProfileService(users, interviews, posts, redisCache)
	transcribeSvc := services.NewTranscriptionService(sttProvider, uploader, signer)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	routes.Register(r, routes.Deps{
		Auth:       handlers.NewAuthHandler(authSvc),
		Interview:  handlers.NewInterviewHandler(interviewSvc),
		Community:  handlers.NewCommunityHandler(communitySvc),
		Profile:    handlers.NewProfileHandler(profileSvc),
		Transcribe: handlers.NewTranscribeHandler(transcribeSvc),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("server starting")
	if err := r.Run(":" + port); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}
