package main

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1) Config & logger
	_ = godotenv.Load()
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := NewLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// 2) DB
	db, err := OpenDB(cfg)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	if err := AutoMigrate(db); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	// 3) Seed (if empty)
	isEmpty, err := IsQuizTableEmpty(db)
	if err != nil {
		logger.Fatal("count quizzes", zap.Error(err))
	}
	if isEmpty {
		if _, err := os.Stat(cfg.SeedPath); err == nil {
			if err := SeedFromJSON(db, cfg.SeedPath); err != nil {
				logger.Fatal("seed", zap.Error(err))
			}
			logger.Info("seeded quizzes", zap.String("path", cfg.SeedPath))
		} else {
			logger.Info("no seed file; running with empty DB", zap.String("path", cfg.SeedPath))
		}
	}

	// 4) Router
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	allowed := cfg.AllowedOrigins
	r.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, o := range allowed {
				if origin == o {
					return true
				}
			}
			// allow any http://localhost:PORT during development
			return strings.HasPrefix(origin, "http://localhost:")
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Student-Id"},
		ExposeHeaders:    []string{"X-Student-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(EnsureStudent(db, cfg.SecureCookies))

	r.GET("/healthz", func(c *gin.Context) { c.String(200, "ok") })

	grace := time.Duration(cfg.SubmitGraceSec) * time.Second

	// --- API routes ---
	api := r.Group("/api/v1")
	{
		// Quiz taking
		api.GET("/courses/:courseId/quizzes", ListCourseQuizzes(db, logger))
		api.GET("/quizzes/:id", GetQuizForTaking(db, logger))
		api.POST("/quizzes/:id/attempts", SubmitAttemptHandler(db, logger, grace))

		// Attempt history
		api.GET("/attempts", ListMyAttempts(db))
		api.GET("/attempts/:id", GetMyAttempt(db))

		// Student profile
		api.GET("/me", GetMe(db))
		api.PUT("/me", UpdateMe(db))
		api.GET("/me/export-key", ExportKey(db))
		api.POST("/me/restore", RestoreAccount(db, cfg.SecureCookies))

		// Stats
		api.GET("/stats", Stats(db))

		// Authoring (the surrounding platform gates access to these)
		admin := api.Group("/admin")
		{
			admin.POST("/quizzes", CreateQuiz(db))
			admin.GET("/quizzes/:id", GetQuizAdmin(db))
			admin.PUT("/quizzes/:id", UpdateQuiz(db))
			admin.PUT("/quizzes/:id/questions", ReplaceQuestions(db))
			admin.POST("/quizzes/:id/publish", PublishQuiz(db))
			admin.POST("/quizzes/:id/archive", ArchiveQuiz(db))
			admin.DELETE("/quizzes/:id", DeleteQuiz(db))
		}
	}

	// --- Server ---
	logger.Info("listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal("run", zap.Error(err))
	}
}
