package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Krchnk/gw-bank/internal/exchange"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
)

const (
	changesInterval = 5 * time.Second
	changesChance   = 0.3
	changesMax      = 0.2
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
	addr := flag.String("addr", "0.0.0.0:50051", "address to listen on")
	flag.Parse()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.WithError(err).Fatal("failed to listen")
	}

	publisher := exchange.NewPublisher(exchange.DefaultRates(), logger)
	srv := grpc.NewServer()
	exchange.RegisterRatesServer(srv, publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go publisher.Run(ctx, changesInterval, changesChance, changesMax)
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		srv.Stop()
	}()

	logger.WithField("address", lis.Addr().String()).Info("exchange rates server started")
	if err := srv.Serve(lis); err != nil {
		logger.WithError(err).Fatal("failed to serve")
	}
}
