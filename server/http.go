package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"medscribe/config"
	"medscribe/constant"
	"medscribe/handler"
	"medscribe/middleware"
	"medscribe/pkg/openai"
	"medscribe/pkg/rabbitmq"
	"medscribe/pkg/storage"
	"medscribe/repository"
	"medscribe/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	consultations, users := repository.NewRepo(cfg.DB)

	store, err := storage.NewMinioStorage(ctx, cfg.Storage, cfg.MinIOBucket)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to initialize audio storage")
	}

	aiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.WhisperModel, cfg.OpenAI.ChatModel)
	configured := cfg.OpenAI.Configured()
	zerolog.Ctx(ctx).Info().Bool("openai_configured", configured).Msg("provider configuration")

	transcriber := service.NewSafeTranscriber(
		service.NewWhisperTranscriber(aiClient),
		service.NewFallbackTranscriber(2*time.Second),
		configured,
	)
	summarizer := service.NewSafeSummarizer(
		service.NewGPTSummarizer(aiClient),
		service.NewFallbackSummarizer(time.Second),
		configured,
	)

	pipeline := service.NewPipeline(consultations, store, transcriber, summarizer)

	// With a broker the upload path publishes and the consumer pool
	// processes; without one, processing runs on an in-process goroutine.
	var dispatcher service.Dispatcher
	if cfg.Queue != nil {
		conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRabbitMQConn")
		}

		publisher, err := rabbitmq.NewPublisher(conn, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to create publisher")
		}
		dispatcher = publisher

		consumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, handler.ProcessAudioHandler)
		go func() {
			err := consumer.Consume(ctx, handler.ServiceDependencies{Pipeline: pipeline})
			if err != nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("audio consumer error")
			}
		}()
	} else {
		zerolog.Ctx(ctx).Info().Msg("no queue configured, processing in-process")
		dispatcher = service.NewGoDispatcher(pipeline)
	}

	audioService := service.NewAudioService(consultations, store, pipeline, dispatcher, transcriber)

	audioHandler := handler.NewAudioHandler(audioService, consultations)
	consultationHandler := handler.NewConsultationHandler(consultations)
	authHandler := handler.NewAuthHandler(users, cfg.Auth.JWTSecret)

	r := gin.Default()
	r.MaxMultipartMemory = cfg.Server.MaxUploadSize
	r.Use(requestLogger(ctx))
	addHealth(r)

	api := r.Group("/api")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authorized := api.Group("", middleware.Auth(cfg.Auth.JWTSecret, users))

	audio := authorized.Group("/audio")
	audio.POST("/upload", audioHandler.Upload)
	audio.POST("/process-step", audioHandler.ProcessStep)
	audio.POST("/transcribe", audioHandler.Transcribe)
	audio.GET("/status/:id", audioHandler.Status)
	audio.GET("/consultations", audioHandler.List)
	audio.GET("/consultation/:id", audioHandler.Get)
	audio.DELETE("/consultation/:id", audioHandler.Delete)

	crud := authorized.Group("/consultations")
	crud.GET("", consultationHandler.List)
	crud.POST("", consultationHandler.Create)
	crud.GET("/:id", consultationHandler.Get)
	crud.PUT("/:id", consultationHandler.Update)
	crud.DELETE("/:id", consultationHandler.Delete)

	srv := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

// requestLogger makes the application logger available on every request
// context.
func requestLogger(ctx context.Context) gin.HandlerFunc {
	logger := zerolog.Ctx(ctx)
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context()))
		c.Next()
	}
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
