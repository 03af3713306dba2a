package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sampark/backend/internal/account"
	"sampark/backend/internal/api/handler"
	"sampark/backend/internal/config"
	"sampark/backend/internal/grievance"
	"sampark/backend/internal/imagestore"
	"sampark/backend/internal/localization"
	"sampark/backend/internal/storage"
	"sampark/backend/internal/telegram"
	"sampark/backend/internal/tracker"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/automaxprocs/maxprocs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client) {
	// 1. PostgreSQL
	dsn, err := cfg.DSN()
	if err != nil {
		log.Fatalf("Invalid database settings: %v", err)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	// 2. Redis є необов'язковим: без нього кеш просто вимкнений
	var rdb *redis.Client
	if cfg.CacheConfigured() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("WARNING: Redis at %s is not reachable, cache will miss until it is: %v", cfg.RedisAddr, err)
		}
	} else {
		log.Println("WARNING: REDIS_ADDR not set, running without cache")
	}

	log.Println("INFO: Database and Redis connections established.")
	return db, rdb
}

func main() {
	log.Println("Starting Sampark Backend...")
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("WARNING: failed to set GOMAXPROCS: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Ініціалізація залежностей
	db, rdb := setupDependencies(ctx, cfg)
	s := storage.NewStorageService(db)
	if err := s.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	cache := storage.NewCache(rdb, cfg.CacheTTL)
	cache.Timeout = cfg.CacheTimeout

	grievances := grievance.NewService(s, cache, prometheus.DefaultRegisterer)
	accounts := account.NewService(s, cfg.JWTSecret)

	// 2. Live tracking hub
	hub := tracker.NewHub(rdb)
	go hub.Run(ctx)
	grievances.Subscribe(hub)

	// 3. Telegram-сповіщення для адміністраторів (необов'язково)
	if cfg.TelegramBotToken != "" {
		loc, err := localization.Default()
		if err != nil {
			log.Fatalf("Failed to load locales: %v", err)
		}
		notifier, bot, err := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, loc, cfg.TelegramLang)
		if err != nil {
			log.Printf("WARNING: Telegram notifier disabled: %v", err)
		} else {
			grievances.Subscribe(notifier)
			go notifier.Run(ctx)

			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			go notifier.Listen(ctx, bot.GetUpdatesChan(u), grievances)
			defer bot.StopReceivingUpdates()
		}
	}

	// 4. Gin та роутинг
	r := gin.Default()
	r.MaxMultipartMemory = config.MaxImageSize
	r.Use(handler.CORS(cfg.FrontendURL))

	h := handler.NewHandler(grievances, accounts, cache, hub)
	h.Production = cfg.Production
	h.AllowedOrigin = cfg.FrontendURL

	if cfg.ImageStoreConfigured() {
		images, err := imagestore.New(cfg)
		if err != nil {
			log.Fatalf("Failed to configure image store: %v", err)
		}
		if err := images.EnsureBucket(ctx); err != nil {
			log.Printf("WARNING: image bucket is not ready: %v", err)
		}
		h.Images = images
	} else {
		log.Println("WARNING: MinIO not configured, image uploads are disabled")
	}

	h.Register(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("INFO: Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("INFO: Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server shutdown: %v", err)
	}
	<-hub.Done()
	if rdb != nil {
		_ = rdb.Close()
	}
}
