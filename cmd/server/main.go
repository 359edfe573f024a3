package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nimbuschat/nimbus/internal/config"
	"github.com/nimbuschat/nimbus/internal/domain"
	"github.com/nimbuschat/nimbus/internal/handler"
	"github.com/nimbuschat/nimbus/internal/hub"
	"github.com/nimbuschat/nimbus/internal/presence"
	"github.com/nimbuschat/nimbus/internal/relay"
	"github.com/nimbuschat/nimbus/internal/repository"
	"github.com/nimbuschat/nimbus/internal/service"
	"github.com/nimbuschat/nimbus/pkg/database"
	"github.com/nimbuschat/nimbus/pkg/jwt"
	"github.com/nimbuschat/nimbus/pkg/log"
	"github.com/nimbuschat/nimbus/pkg/middleware"
	"github.com/nimbuschat/nimbus/pkg/pubsub"
	"github.com/nimbuschat/nimbus/pkg/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log.Init(log.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	l := log.L()
	l.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting nimbus")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.FriendRequestModel{},
		&domain.FriendshipModel{},
		&domain.GroupModel{},
		&domain.GroupMemberModel{},
	); err != nil {
		l.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	l.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	// Tokens
	tokens, err := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, cfg.Auth.Issuer)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to create token manager")
	}

	// Attachment storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		l.Fatal().Err(err).Msg("failed to initialize storage")
	}
	attachments := service.NewAttachmentStore(store)

	// Repositories
	userRepo := repository.NewGormUserRepository(db)
	friendRepo := repository.NewGormFriendRepository(db)
	groupRepo := repository.NewGormGroupRepository(db)

	// Realtime core
	wsHub := hub.NewHub(cfg.WebSocket)
	presenceSvc := presence.NewService(presence.NewRegistry(), wsHub)

	// Optional cross-instance relay
	bus, err := pubsub.NewPubSub(cfg.Relay)
	if err != nil {
		l.Fatal().Err(err).Str("driver", cfg.Relay.Driver).Msg("failed to initialize relay bus")
	}
	if bus != nil {
		roomRelay := relay.New(bus, presenceSvc)
		if err := roomRelay.Start(ctx); err != nil {
			l.Fatal().Err(err).Msg("failed to start relay")
		}
		defer roomRelay.Close()
		l.Info().Str("driver", cfg.Relay.Driver).Msg("relay enabled")
	}

	// Services
	authSvc := service.NewAuthService(userRepo, tokens, attachments, cfg.Auth.BcryptCost)
	friendSvc := service.NewFriendService(friendRepo, userRepo, presenceSvc)
	groupSvc := service.NewGroupService(groupRepo, userRepo, presenceSvc)
	messageSvc := service.NewMessageService(friendRepo, groupRepo, userRepo, presenceSvc, attachments)

	// HTTP layer
	authMW := middleware.NewAuthMiddleware(tokens)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(log.GinMiddleware(l))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Local attachments are served straight from disk; S3 URLs point at the
	// bucket instead.
	if cfg.Storage.Driver != "s3" {
		r.Static(cfg.Storage.Local.BaseURL, cfg.Storage.Local.BasePath)
	}

	api := r.Group("/api/v1")
	handler.NewAuthHandler(authSvc, authMW).RegisterRoutes(api)
	handler.NewFriendHandler(friendSvc, authMW).RegisterRoutes(api)
	handler.NewGroupHandler(groupSvc, authMW).RegisterRoutes(api)
	handler.NewMessageHandler(messageSvc, authMW).RegisterRoutes(api)
	handler.NewPresenceHandler(presenceSvc, authMW).RegisterRoutes(api)
	handler.NewWSHandler(wsHub, presenceSvc, tokens, cfg.WebSocket).RegisterRoutes(r)

	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		l.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info().Msg("shutting down")

	// WebSocket connections are hijacked; Shutdown alone never closes them.
	wsHub.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Warn().Err(err).Msg("forced shutdown")
	}

	l.Info().Msg("stopped")
}
