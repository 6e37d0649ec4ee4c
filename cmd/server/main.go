package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/renunganku/api/internal/config"
	"github.com/renunganku/api/internal/database"
	"github.com/renunganku/api/internal/handler"
	"github.com/renunganku/api/internal/jobs"
	"github.com/renunganku/api/internal/middleware"
	"github.com/renunganku/api/internal/model"
	"github.com/renunganku/api/internal/repository"
	"github.com/renunganku/api/internal/service"
	"github.com/renunganku/api/pkg/jwt"
)

// credentialPaths get a tighter per-client budget than the rest of the API
var credentialPaths = []string{
	"/v1/auth/login",
	"/v1/auth/register",
	"/v1/auth/verify-otp/",
	"/v1/auth/resend-verification",
	"/v1/auth/forgot-password",
}

func main() {
	// A missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	mediaStore, err := service.NewMediaStore(service.MediaStoreConfig{
		Root:          cfg.Media.UploadDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		CDNURL:        cfg.Media.CDNURL,
		Secret:        []byte(cfg.Media.SigningSecret),
	})
	if err != nil {
		slog.Error("failed to initialize media store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	transcoder := service.NewFFmpeg(cfg.Media.FFmpegPath, cfg.Media.FFprobePath)
	uploadLimit := int64(cfg.Media.MaxUploadMB) << 20

	hub := service.NewEventHub(30 * time.Second)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	followRepo := repository.NewFollowRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	bookmarkRepo := repository.NewBookmarkRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	storyRepo := repository.NewStoryRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	blogRepo := repository.NewBlogRepository(db)

	// Services
	var mailer service.Mailer = service.NewLogMailer(logger)
	if cfg.Mail.Driver == "smtp" {
		mailer = service.NewSMTPMailer(service.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}

	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService: jwtService,
		Sessions:   sessionRepo,
	})

	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		ProfileRepo:  profileRepo,
		TokenService: tokenService,
		Mailer:       mailer,
		FrontendURL:  cfg.Server.FrontendURL,
	})

	oauthService := service.NewGoogleOAuthService(service.GoogleOAuthServiceConfig{
		Config: service.GoogleOAuthConfig{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURI:  cfg.OAuth.Google.RedirectURI,
		},
		UserRepo:     userRepo,
		ProfileRepo:  profileRepo,
		TokenService: tokenService,
		FrontendURL:  cfg.Server.FrontendURL,
	})

	profileService := service.NewProfileService(service.ProfileServiceConfig{
		ProfileRepo: profileRepo,
		UserRepo:    userRepo,
		FollowRepo:  followRepo,
		PostRepo:    postRepo,
		Media:       mediaStore,
	})
	onboardingService := service.NewOnboardingService(profileService)

	notificationService := service.NewNotificationService(service.NotificationServiceConfig{
		Repo:      notificationRepo,
		Summaries: profileRepo,
		Users:     userRepo,
		Publisher: hub,
	})

	followService := service.NewFollowService(service.FollowServiceConfig{
		Repo:          followRepo,
		Profiles:      profileRepo,
		Summaries:     profileRepo,
		Notifications: notificationService,
		Publisher:     hub,
	})

	postService := service.NewPostService(service.PostServiceConfig{
		Repo:       postRepo,
		Likes:      likeRepo,
		Bookmarks:  bookmarkRepo,
		Follows:    followRepo,
		Summaries:  profileRepo,
		Media:      mediaStore,
		Publisher:  hub,
		MediaLimit: uploadLimit,
	})

	commentService := service.NewCommentService(service.CommentServiceConfig{
		Repo:          commentRepo,
		Likes:         likeRepo,
		Posts:         postService,
		Summaries:     profileRepo,
		Notifications: notificationService,
		Publisher:     hub,
	})

	likeService := service.NewLikeService(service.LikeServiceConfig{
		Repo:          likeRepo,
		Posts:         postService,
		Comments:      commentRepo,
		Summaries:     profileRepo,
		Notifications: notificationService,
		Publisher:     hub,
	})

	bookmarkService := service.NewBookmarkService(bookmarkRepo, postService)

	messageService := service.NewMessageService(service.MessageServiceConfig{
		Repo:          messageRepo,
		Follows:       followService,
		Summaries:     profileRepo,
		Notifications: notificationService,
		Publisher:     hub,
		Media:         mediaStore,
		MediaLimit:    uploadLimit,
	})

	storyService := service.NewStoryService(service.StoryServiceConfig{
		Repo:       storyRepo,
		Follows:    followRepo,
		Summaries:  profileRepo,
		Media:      mediaStore,
		Transcoder: transcoder,
	})

	videoService := service.NewVideoService(service.VideoServiceConfig{
		Repo:       videoRepo,
		Posts:      postService,
		PostMedia:  postRepo,
		Media:      mediaStore,
		Transcoder: transcoder,
		Publisher:  hub,
	})
	videoProcessor := jobs.NewVideoProcessor(videoService, jobs.VideoProcessorConfig{
		Workers: cfg.Media.VideoWorkers,
	})
	videoService.SetQueue(videoProcessor)

	blogService := service.NewBlogService(blogRepo)

	adminService := service.NewAdminService(service.AdminServiceConfig{
		Users:     userRepo,
		Summaries: profileRepo,
		Posts:     postService,
		Stories:   storyService,
	})

	// The Bible corpus is optional; without it the alkitab routes are not
	// mounted and system status reports degraded.
	var alkitabPinger service.Pinger
	var alkitabHandler handler.RouteRegistrar
	if cfg.Alkitab.Path != "" {
		alkitabDB, err := database.OpenSQLite(ctx, cfg.Alkitab.Path)
		if err != nil {
			slog.Warn("alkitab corpus unavailable", slog.String("path", cfg.Alkitab.Path), slog.String("error", err.Error()))
		} else {
			defer func() { _ = alkitabDB.Close() }()
			alkitabService := service.NewAlkitabService(repository.NewAlkitabRepository(alkitabDB))
			alkitabPinger = alkitabService
			alkitabHandler = handler.NewAlkitabHandler(alkitabService)
		}
	}
	statusService := service.NewStatusService(db, alkitabPinger, cfg.Server.Env)

	// Middleware stores
	trustedProxies, err := middleware.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		slog.Error("invalid trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   cfg.RateLimit.Rate,
		Window: cfg.RateLimit.Window,
		Burst:  cfg.RateLimit.Burst,
	})
	credentialLimiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		Rate:   cfg.RateLimit.AuthRate,
		Window: cfg.RateLimit.Window,
		Burst:  -1,
	})
	credentialRules := make([]middleware.RateLimitRule, 0, len(credentialPaths))
	for _, prefix := range credentialPaths {
		credentialRules = append(credentialRules, middleware.RateLimitRule{
			Method:  http.MethodPost,
			Prefix:  prefix,
			Limiter: credentialLimiter,
		})
	}
	idempotencyStore := middleware.NewIdempotencyStore(middleware.IdempotencyConfig{})

	// Routes
	mux := http.NewServeMux()
	guards := handler.NewGuards(tokenService, tokenService)
	handlers := []handler.RouteRegistrar{
		handler.NewStatusHandler(statusService),
		handler.NewAuthHandler(authService, tokenService),
		handler.NewOAuthHandler(oauthService, cfg.Server.FrontendURL),
		handler.NewProfileHandler(profileService, onboardingService),
		handler.NewPostHandler(postService),
		handler.NewCommentHandler(commentService),
		handler.NewLikeHandler(likeService),
		handler.NewBookmarkHandler(bookmarkService),
		handler.NewFollowHandler(followService),
		handler.NewStoryHandler(storyService),
		handler.NewVideoHandler(videoService),
		handler.NewMediaHandler(mediaStore, messageService),
		handler.NewMessageHandler(messageService),
		handler.NewNotificationHandler(notificationService),
		handler.NewBlogHandler(blogService),
		handler.NewAdminHandler(adminService),
		handler.NewEventsHandler(hub),
		handler.NewGatewayHandler(hub, notificationService, messageService, cfg.Server.AllowedOrigins),
	}
	if alkitabHandler != nil {
		handlers = append(handlers, alkitabHandler)
	}
	handler.Register(mux, guards, handlers...)

	wrapped := middleware.Chain(
		mux,
		middleware.RealIP(trustedProxies),
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RateLimit(rateLimiter, credentialRules...),
		middleware.Compress,
		middleware.Idempotency(idempotencyStore),
	)

	// No WriteTimeout: it would cut off SSE streams and websockets. Slow
	// uploads are bounded by ReadTimeout.
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           wrapped,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Background jobs
	videoProcessor.Start()
	storyCleanup := jobs.NewStoryCleanup(storyService, time.Hour)
	storyCleanup.Start()
	sessionCleanup := jobs.NewSessionCleanup(tokenService, 24*time.Hour)
	sessionCleanup.Start()

	var blogWatcher *jobs.BlogContentWatcher
	if cfg.Blog.ContentDir != "" {
		blogWatcher = jobs.NewBlogContentWatcher(blogService, cfg.Blog.ContentDir)
		if cfg.Blog.Watch {
			if err := blogWatcher.Start(); err != nil {
				slog.Error("failed to start blog watcher", slog.String("error", err.Error()))
			}
		} else if err := blogWatcher.RunOnce(ctx); err != nil {
			slog.Error("blog import failed", slog.String("error", err.Error()))
		}
	}

	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
			slog.Int("upload_limit_mb", cfg.Media.MaxUploadMB),
			slog.Int64("story_limit_bytes", model.MaxStoryFileSize),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Closing the hub ends SSE and websocket loops so Shutdown can drain
	hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	if blogWatcher != nil {
		blogWatcher.Stop()
	}
	sessionCleanup.Stop()
	storyCleanup.Stop()
	videoProcessor.Stop()
	rateLimiter.Stop()
	credentialLimiter.Stop()
	idempotencyStore.Stop()
	storyService.WaitThumbnails()

	slog.Info("server exited")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
