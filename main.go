package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"wanderwise/config"
	"wanderwise/handlers"
	"wanderwise/middleware"
	"wanderwise/services"
	"wanderwise/store"
	"wanderwise/store/memstore"
	"wanderwise/store/mongostore"
	"wanderwise/utils/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zl *zap.Logger) error {
	st, err := openStore(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	model, err := newLanguageModel(ctx, cfg)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}

	// Redis is optional; without it image lookups are not cached.
	var imageCache services.ImageCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		defer rdb.Close()
		imageCache = services.NewRedisImageCache(rdb)
		zl.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}

	tokens := services.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	images := services.NewImageService(cfg.OpenverseAPIURL, httpClient, imageCache, zl)
	geo := services.NewGeoService(cfg.GeocodeAPIURL, httpClient, zl)
	weather := services.NewWeatherService(cfg.WeatherAPIURL, httpClient, geo, zl)
	calendar, err := services.NewCalendarService(zl)
	if err != nil {
		return err
	}
	authService := services.NewAuthService(st, tokens, zl)
	tripService := services.NewTripService(st, model, images, zl)
	chatService := services.NewChatService(st, model, zl)

	authHandler := handlers.NewAuthHandler(authService, cfg.CookieSecure, cfg.RefreshTokenTTL)
	tripHandler := handlers.NewTripHandler(tripService, weather, calendar)
	chatHandler := handlers.NewChatHandler(chatService)
	socketHandler := handlers.NewChatSocketHandler(chatService, tokens, cfg.AllowedOrigins)
	geoHandler := handlers.NewGeoHandler(geo)

	r := mux.NewRouter()
	r.Use(middleware.LoggingMiddleware(zl))
	r.Use(middleware.RecoverMiddleware())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Auth routes
	r.HandleFunc("/register", authHandler.Register).Methods("POST", "OPTIONS")
	r.HandleFunc("/login", authHandler.Login).Methods("POST", "OPTIONS")
	r.HandleFunc("/refresh-token", authHandler.RefreshToken).Methods("POST", "OPTIONS")
	r.HandleFunc("/logout", authHandler.Logout).Methods("POST", "OPTIONS")

	// Public lookups
	r.HandleFunc("/geocode", geoHandler.Geocode).Methods("GET", "OPTIONS")
	r.HandleFunc("/route", geoHandler.Route).Methods("GET", "OPTIONS")
	r.HandleFunc("/healthz", handlers.Health).Methods("GET")
	r.HandleFunc("/ws/chat", socketHandler.Serve).Methods("GET")

	// Trip and chat routes
	api := r.NewRoute().Subrouter()
	api.Use(middleware.JWTMiddleware(tokens))
	api.HandleFunc("/details", tripHandler.CreateTrip).Methods("POST", "OPTIONS")
	api.HandleFunc("/getplan", tripHandler.GetPlan).Methods("GET", "OPTIONS")
	api.HandleFunc("/getHotels", tripHandler.GetHotels).Methods("GET", "OPTIONS")
	api.HandleFunc("/getWeather", tripHandler.GetWeather).Methods("GET", "OPTIONS")
	api.HandleFunc("/trips", tripHandler.ListTrips).Methods("GET", "OPTIONS")
	api.HandleFunc("/itinerary.ics", tripHandler.Calendar).Methods("GET", "OPTIONS")
	api.HandleFunc("/chathistory/{email}", chatHandler.History).Methods("GET", "OPTIONS")
	api.HandleFunc("/sendMessage", chatHandler.SendMessage).Methods("POST", "OPTIONS")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) (store.Store, error) {
	if cfg.StoreBackend == config.StoreMemory {
		zl.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	return mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB, zl)
}

func newLanguageModel(ctx context.Context, cfg *config.Config) (services.LanguageModel, error) {
	if cfg.LLMProvider == config.ProviderOpenAI {
		return services.NewOpenAIModel(cfg.OpenAIAPIKey, cfg.OpenAIModel), nil
	}
	return services.NewGeminiModel(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
}
