package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"qrent/server/config"
	"qrent/server/internal/api"
	"qrent/server/internal/cache"
	"qrent/server/internal/database"
	"qrent/server/internal/processor"
	"qrent/server/internal/queue"
	"qrent/server/internal/scheduler"
	"qrent/server/internal/search"
	"qrent/server/internal/stats"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Load .env if present, then the environment configuration
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	dbPath := cfg.Database.Path
	if !filepath.IsAbs(dbPath) {
		currentDir, err := os.Getwd()
		if err != nil {
			logger.WithError(err).Fatal("Failed to get current directory")
		}
		dbPath = filepath.Join(currentDir, dbPath)
	}
	logger.Infof("Using database at: %s", dbPath)

	// Initialize the read-side store
	db, err := database.NewDatabase(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Initialize the write-side connection for the ingestion pipeline
	gormDB, err := gorm.Open(gormsqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		logger.WithError(err).Fatal("Failed to open gorm connection")
	}

	// Initialize the statistics cache client
	var cacheClient cache.Client
	if cfg.Redis.Enabled {
		cacheClient = cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	} else {
		logger.Info("Redis disabled, using in-memory stats cache")
		cacheClient = cache.NewMemoryClient()
	}
	defer cacheClient.Close()

	// Wire the core services
	searchService := search.NewService(db, logger)
	calculator := stats.NewCalculator(db, logger)
	statsManager := stats.NewManager(calculator, cacheClient,
		time.Duration(cfg.Stats.CacheTTL)*time.Second, logger)

	// Start the ingestion pipeline
	listingQueue := queue.NewListingQueue(cfg.BatchProcessing.MaxBatchSize, logger)
	batchProcessor := processor.NewBatchProcessor(gormDB, listingQueue, statsManager, cfg, logger)
	batchProcessor.Start()
	listingQueue.Start()
	defer batchProcessor.Stop()

	// Start the stats warm/invalidate scheduler
	if cfg.Stats.WarmEnabled {
		statsScheduler := scheduler.NewScheduler(statsManager, logger)
		statsScheduler.Start()
		defer statsScheduler.Stop()
	}

	// Initialize router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	handler := api.NewHandler(db, searchService, statsManager, logger)
	api.SetupRoutes(router, handler)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
