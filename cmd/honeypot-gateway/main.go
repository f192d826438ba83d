package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Amita-5/honeypot-scam-detector/internal/api"
	"github.com/Amita-5/honeypot-scam-detector/internal/auth"
	"github.com/Amita-5/honeypot-scam-detector/internal/config"
	"github.com/Amita-5/honeypot-scam-detector/internal/engine"
	"github.com/Amita-5/honeypot-scam-detector/internal/oracle"
	"github.com/Amita-5/honeypot-scam-detector/internal/report"
	"github.com/Amita-5/honeypot-scam-detector/internal/session"
)

func main() {
	cfg, err := config.Load(os.Getenv("HONEYPOT_CONFIG"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := newLogger(cfg.Logging.Debug)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()

	server, cleanup, err := newServer(cfg, logger)
	if err != nil {
		logger.Fatal("startup error", zap.Error(err))
	}
	defer cleanup()

	logger.Info("honeypot-gateway listening", zap.String("addr", cfg.ListenAddr))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if debug {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func newServer(cfg config.Config, logger *zap.Logger) (*http.Server, func(), error) {
	store, err := newStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	var archive *report.Archive
	if cfg.Report.ArchivePath != "" {
		archive, err = report.NewArchive(cfg.Report.ArchivePath)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
	}

	reporter := &report.Reporter{
		EndpointURL: cfg.Report.EndpointURL,
		HTTP:        &http.Client{Timeout: config.Duration(cfg.Report.Timeout, 10*time.Second)},
		MaxRetries:  cfg.Report.MaxRetries,
		Logger:      logger,
		Archive:     archive,
	}

	oracleClient, err := newOracle(cfg.Oracle)
	if err != nil {
		// A broken oracle config degrades to deterministic behavior rather
		// than blocking startup.
		logger.Warn("oracle disabled", zap.Error(err))
		oracleClient = nil
	}

	oracleTimeout := config.Duration(cfg.Oracle.Timeout, 8*time.Second)
	eng := engine.New(
		store,
		engine.NewSelector(cfg.Engagement.PersonaReplies),
		&engine.Detector{Oracle: oracleClient, Timeout: oracleTimeout, PoliteReply: cfg.Engagement.PoliteReply, Logger: logger},
		&engine.Refiner{Oracle: oracleClient, Timeout: oracleTimeout, Logger: logger},
		reporter,
		engine.Config{TurnThreshold: cfg.Engagement.TurnThreshold, PoliteReply: cfg.Engagement.PoliteReply},
		logger,
	)

	h := &api.Handler{
		Auth:     &auth.KeyAuthenticator{Key: cfg.APIKey},
		Engine:   eng,
		Sessions: store,
		Reporter: reporter,
		Logger:   logger,
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
	}

	cleanup := func() {
		reporter.Wait()
		if archive != nil {
			archive.Close()
		}
		store.Close()
	}
	return server, cleanup, nil
}

func newStore(cfg config.StoreConfig) (session.Store, error) {
	ttl := config.Duration(cfg.SessionTTL, 30*time.Minute)

	switch session.StoreType(cfg.Driver) {
	case session.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		return session.NewStore(session.StoreTypeRedis,
			session.WithRedisClient(client), session.WithTTL(ttl))
	default:
		return session.NewStore(session.StoreTypeMemory, session.WithTTL(ttl))
	}
}

func newOracle(cfg config.OracleConfig) (oracle.Client, error) {
	switch cfg.Provider {
	case "gemini":
		return oracle.NewGeminiClient(context.Background(), cfg.APIKey, cfg.Model)
	case "ollama":
		return oracle.NewOllamaClient(cfg.BaseURL, cfg.Model), nil
	case "":
		return nil, nil
	default:
		return nil, errUnknownProvider(cfg.Provider)
	}
}

type errUnknownProvider string

func (e errUnknownProvider) Error() string {
	return "unknown oracle provider: " + string(e)
}
