package main

import (
	"context"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/database"
	"github.com/iliyamo/marketplace-api/internal/handler"
	"github.com/iliyamo/marketplace-api/internal/logger"
	"github.com/iliyamo/marketplace-api/internal/middleware"
	"github.com/iliyamo/marketplace-api/internal/realtime"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/router"
	"github.com/iliyamo/marketplace-api/internal/storage"
	"github.com/iliyamo/marketplace-api/internal/token"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	logger.Init(cfg.Env)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect failed")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Bootstrap(ctx, db); err != nil {
		cancel()
		log.Fatal().Err(err).Msg("schema bootstrap failed")
	}
	cancel()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable: token revocation, rate limiting and caching disabled")
	}
	denylist := token.NewRedisDenylist(rdb)
	publisher := realtime.NewPublisher(cfg.AMQPURL)
	if cfg.AMQPURL == "" {
		log.Warn().Msg("realtime sink not configured: message events will not be broadcast")
	}
	files := storage.New(cfg.UploadDir, cfg.PublicBaseURL)

	users := repository.NewUserRepo(db)
	chats := repository.NewChatRepo(db)
	messages := repository.NewMessageRepo(db)
	products := repository.NewProductRepo(db)
	categories := repository.NewCategoryRepo(db)
	links := repository.NewProductCategoryRepo(db)

	authH := handler.NewAuthHandler(cfg, users, denylist)
	userH := handler.NewUserHandler(cfg, users, files)
	chatH := handler.NewChatHandler(chats, users)
	messageH := handler.NewMessageHandler(messages, chats, publisher)
	productH := handler.NewProductHandler(products, categories, links, files)
	categoryH := handler.NewCategoryHandler(categories)
	linkH := handler.NewProductCategoryHandler(links, products, categories)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))

	auth := middleware.Auth(cfg.JWTSecret, users, denylist)
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, db, cfg.UploadDir)
	router.RegisterAuth(e, authH, auth)
	router.RegisterUsers(e, userH, auth)
	router.RegisterChat(e, chatH, messageH, auth)
	router.RegisterCatalog(e, productH, categoryH, linkH, auth, cache)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
