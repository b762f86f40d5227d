package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/fadilmartias/ai-grader/internal/config"
	"github.com/fadilmartias/ai-grader/internal/domain/fiber/handler"
	"github.com/fadilmartias/ai-grader/internal/middleware"
	"github.com/fadilmartias/ai-grader/internal/model"
	"github.com/fadilmartias/ai-grader/internal/repository"
	"github.com/fadilmartias/ai-grader/internal/service"
	"github.com/fadilmartias/ai-grader/internal/usecase"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	// Load .env file
	ctx := context.Background()
	err := godotenv.Load()
	if err != nil {
		log.Println("Could not load .env file")
	}

	appConfig := config.LoadAppConfig()
	gradingConfig := config.LoadGradingConfig()

	app := fiber.New(fiber.Config{
		AppName: appConfig.Name,
		// multipart body carries the PDF plus the rubric field; MaxFileMB is at least 1
		BodyLimit: int(gradingConfig.MaxFileBytes()) + 1024*1024,
		ErrorHandler: func(ctx *fiber.Ctx, err error) error {
			// Status code defaults to 500
			code := fiber.StatusInternalServerError

			// Retrieve the custom status code if it's a *fiber.Error
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			message := err.Error()
			if message == "" {
				message = "Internal Server Error"
			}

			return ctx.Status(code).JSON(fiber.Map{"error": message})
		},
	})
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))
	// Use middleware
	app.Use(recover.New(recover.Config{
		EnableStackTrace: !appConfig.IsProduction(),
	}))

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // 1
	}))
	app.Use(pprof.New(pprof.Config{
		Next: func(c *fiber.Ctx) bool {
			return appConfig.IsProduction()
		},
	}))
	app.Use(healthcheck.New())

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.RateLimiter(50, 1*time.Minute))

	grader, err := service.NewGrader(ctx, gradingConfig)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Grading with provider %s (timeout %s, retries %d)", grader.ProviderName(), gradingConfig.MaxDuration, gradingConfig.MaxRetries)

	geminiConfig := config.LoadGeminiConfig()
	feedback, err := service.NewFeedbackService(ctx, geminiConfig.APIKey, geminiConfig.FeedbackModel)
	if err != nil {
		log.Fatal(err)
	}

	var runRepo repository.GradingRunRepositoryInterface
	if config.LoadDBConfig().Enabled() {
		runRepo = repository.NewGradingRunRepository(ConnectDB())
	} else {
		log.Println("DB_HOST not set, grading runs are not persisted")
	}

	attachments := service.NewAttachmentService(gradingConfig.MaxFileBytes(), gradingConfig.AttachmentBaseURLs, gradingConfig.AttachmentTimeout)
	gradingUC := usecase.NewGradingUsecase(runRepo, grader, attachments)
	feedbackUC := usecase.NewFeedbackUsecase(feedback)

	handler.NewGradeHandler(gradingUC, gradingConfig).RegisterRoutes(app)
	handler.NewGradingRunHandler(gradingUC).RegisterRoutes(app)
	handler.NewFeedbackHandler(feedbackUC).RegisterRoutes(app)

	// Monitor goroutine count
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			log.Printf("Active goroutines: %d", runtime.NumGoroutine())
		}
	}()

	log.Println("Server running on ", appConfig.Port)
	if err := app.Listen(appConfig.Port); err != nil {
		log.Fatal(err)
	}
}

func ConnectDB() *gorm.DB {
	dbConfig := config.LoadDBConfig()
	appConfig := config.LoadAppConfig()

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		dbConfig.Host,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.Port,
		dbConfig.SSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Could not connect to database: %v", err)
	}
	pgDB, err := db.DB()
	if err != nil {
		log.Fatalf("Could not get database instance: %v", err)
	}
	if !appConfig.IsProduction() {
		pgDB.SetMaxIdleConns(5)
		pgDB.SetMaxOpenConns(10)
		pgDB.SetConnMaxLifetime(30 * time.Minute)
	} else {
		pgDB.SetMaxIdleConns(20)
		pgDB.SetMaxOpenConns(200)
		pgDB.SetConnMaxLifetime(time.Hour)
	}

	err = db.AutoMigrate(&model.GradingRun{})
	if err != nil {
		log.Fatal("migration failed: ", err)
	}
	return db
}
