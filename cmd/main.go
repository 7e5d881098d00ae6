package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krchnk/gw-bank/internal/bank"
	"github.com/Krchnk/gw-bank/internal/config"
	"github.com/Krchnk/gw-bank/internal/exchange"
	"github.com/Krchnk/gw-bank/internal/handlers"
	"github.com/Krchnk/gw-bank/internal/metrics"
	"github.com/Krchnk/gw-bank/internal/rates"
	"github.com/Krchnk/gw-bank/internal/storages"
	"github.com/Krchnk/gw-bank/internal/storages/postgres"

	cors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

func main() {
	configPath := flag.String("c", "config.env", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}
	logger.WithFields(logrus.Fields{
		"http_port":     cfg.HTTPPort,
		"exchange":      cfg.Exchange.Address(),
		"base_currency": cfg.Bank.BaseCurrency,
		"currencies":    cfg.Bank.Currencies,
	}).Info("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bankMetrics := metrics.NewBankMetrics(prometheus.DefaultRegisterer)

	var journal storages.Journal = storages.NewLogJournal(logger)
	if cfg.JournalDSN != "" {
		pg, err := postgres.NewJournal(cfg.JournalDSN)
		if err != nil {
			logger.WithError(err).Fatal("failed to connect to journal database")
		}
		defer pg.Close()
		journal = pg
	}

	conn, err := exchange.Dial(cfg.Exchange.Address())
	if err != nil {
		logger.WithError(err).Fatal("failed to create exchange rates gRPC client")
	}
	defer conn.Close()

	table := rates.NewTable()
	feed := rates.NewFeed(exchange.NewClient(conn), table, rates.FeedConfig{
		Base:          cfg.Bank.BaseCurrency,
		Currencies:    cfg.Bank.Currencies,
		RetryInterval: cfg.Exchange.RetryInterval,
		Logger:        logger,
		Observer:      bankMetrics,
	})
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		_ = feed.Run(ctx)
	}()
	logger.WithField("address", cfg.Exchange.Address()).Info("rate feed started")

	secrets, err := bank.NewSecretGenerator(cfg.Bank.SecretLength)
	if err != nil {
		logger.WithError(err).Fatal("failed to create secret generator")
	}

	registry, err := bank.NewRegistry(bank.Config{
		BaseCurrency:     cfg.Bank.BaseCurrency,
		Currencies:       cfg.Bank.Currencies,
		PremiumThreshold: cfg.Bank.PremiumThreshold,
		InterestRate:     cfg.Bank.InterestRate,
		Rates:            table,
		Secrets:          secrets,
		Journal:          journal,
		Logger:           logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create account registry")
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", handlers.SecretHeader, handlers.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", handlers.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h := handlers.NewHandler(registry, table, feed, bankMetrics)
	router.Use(h.LoggingMiddleware())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.HTTPPort,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.HTTPPort).Info("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("failed to run server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shut down HTTP server")
	}
	<-feedDone
}
