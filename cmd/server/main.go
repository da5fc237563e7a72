package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"gorm.io/gorm"

	"exam-quiz/internal/auth"
	"exam-quiz/internal/config"
	"exam-quiz/internal/quiz"
	"exam-quiz/internal/server"
	"exam-quiz/pkg/cache"
	"exam-quiz/pkg/database"
	"exam-quiz/pkg/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Initialize database
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	// Initialize Redis session store
	redisCache := cache.NewRedisCache(cfg.Redis)
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisCache.Ping(pingCtx); err != nil {
		log.Printf("Warning: redis not reachable at %s: %v", cfg.Redis.Addr, err)
	}
	cancelPing()

	authRepo := auth.NewRepository(db)
	authService := auth.NewService(authRepo, redisCache, cfg.JWTSecret, cfg.SessionTTL)

	// Initialize WebSocket hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	wsHub := websocket.NewHub(authService, cfg.CORSOrigins)
	go wsHub.Run(hubCtx)

	quizRepo := quiz.NewRepository(db)
	quizService := quiz.NewService(quizRepo, wsHub)

	router := server.NewRouter(server.Deps{
		AuthService: authService,
		AuthHandler: auth.NewHandler(authService),
		QuizHandler: quiz.NewHandler(quizService),
		WebSocket:   wsHub.HandleWebSocket,
		Health: map[string]server.Pinger{
			"database": func(ctx context.Context) error { return database.Ping(ctx, db) },
			"redis":    redisCache.Ping,
		},
	})

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      corsMiddleware.Handler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown setup
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	stopHub()
	closeStores(db, redisCache)

	log.Println("Server shutdown gracefully")
}

func closeStores(db *gorm.DB, redisCache *cache.RedisCache) {
	database.Close(db)
	if err := redisCache.Close(); err != nil {
		log.Printf("Error closing redis: %v", err)
	}
}
