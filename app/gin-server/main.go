package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/voxprep/voxprep/config"
	"github.com/voxprep/voxprep/internal/api/handlers"
	"github.com/voxprep/voxprep/internal/api/middleware"
	"github.com/voxprep/voxprep/internal/api/routes"
	"github.com/voxprep/voxprep/internal/cache"
	"github.com/voxprep/voxprep/internal/logger"
	"github.com/voxprep/voxprep/internal/providers/llm"
	"github.com/voxprep/voxprep/internal/providers/voice"
	mongorepo "github.com/voxprep/voxprep/internal/repositories/mongo"
	pgrepo "github.com/voxprep/voxprep/internal/repositories/postgres"
	"github.com/voxprep/voxprep/internal/services"
	"github.com/voxprep/voxprep/internal/storage"
	"github.com/voxprep/voxprep/internal/workers"
)

func main() {
	_ = godotenv.Load()

	appLog := logger.New()
	ctx := context.Background()

	// Init MongoDB
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	fmt.Println("MongoDB connected")

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	if err := config.MigratePostgres(); err != nil {
		log.Fatalf("PostgreSQL migrate error: %v", err)
	}
	fmt.Println("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	fmt.Println("Redis connected")

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "voxprep"
	}
	db := config.MongoClient.Database(dbName)

	interviewRepo := mongorepo.NewInterviewRepo(db)
	feedbackRepo := mongorepo.NewFeedbackRepo(db)
	archiveRepo := pgrepo.NewArchiveRepo(config.PostgresDB)

	redisCache := cache.NewRedisCache(config.RedisClient)

	provider, err := llm.NewVertexGemini(ctx,
		os.Getenv("GCP_PROJECT_ID"),
		os.Getenv("GCP_LOCATION"),
		os.Getenv("GEMINI_MODEL"),
	)
	if err != nil {
		log.Fatalf("Vertex AI init error: %v", err)
	}
	defer provider.Close()

	interviewSvc := services.NewInterviewService(interviewRepo, feedbackRepo, redisCache)
	generationSvc := services.NewGenerationService(interviewRepo, feedbackRepo, archiveRepo, provider, redisCache, appLog)
	archiveSvc := services.NewArchiveService(archiveRepo)

	recordingQueue := &workers.RecordingQueue{Redis: config.RedisClient}

	// Recording archival is optional: without a bucket the pool stays off and
	// enqueued jobs simply accumulate until a worker picks them up.
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		uploader, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		pool := &workers.RecordingWorkerPool{
			Redis:      config.RedisClient,
			Interviews: interviewRepo,
			Uploader:   uploader,
			Logger:     appLog,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("recording worker start error: %v", err)
		}
		fmt.Println("Recording workers started")
	} else {
		appLog.Warn("GCS_BUCKET not set; recording archival disabled")
	}

	gatewayURL := os.Getenv("VOICE_GATEWAY_URL")
	gatewayToken := os.Getenv("VOICE_GATEWAY_TOKEN")
	if gatewayURL == "" {
		log.Fatalf("VOICE_GATEWAY_URL environment variable is not set")
	}
	engineFactory := func() voice.Engine {
		return voice.NewGateway(gatewayURL, gatewayToken, appLog)
	}

	interviewHandler := handlers.NewInterviewHandler(interviewSvc)
	generateHandler := handlers.NewGenerateHandler(generationSvc)
	archiveHandler := handlers.NewArchiveHandler(archiveSvc)
	callHandler := handlers.NewCallWSHandler(
		interviewSvc,
		generationSvc,
		recordingQueue,
		config.RedisClient,
		engineFactory,
		os.Getenv("VOICE_WORKFLOW_ID"),
		os.Getenv("VOICE_ASSISTANT_ID"),
		appLog,
	)

	// Start Gin server
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(appLog))

	routes.RegisterRoutes(r, routes.Deps{
		Interview: interviewHandler,
		Generate:  generateHandler,
		Archive:   archiveHandler,
		CallWS:    callHandler,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r.Run(":" + port)
}
