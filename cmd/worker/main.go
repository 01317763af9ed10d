package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/joripage/tokenex/config"
	"github.com/joripage/tokenex/pkg/engine/repo"
	"github.com/joripage/tokenex/pkg/engine/worker"
	postgres_wrapper "github.com/joripage/tokenex/pkg/infra/postgres"
	"github.com/joripage/tokenex/pkg/logging"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger, err := logging.Init(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // nolint

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	natsURL := nats.DefaultURL
	if cfg.Nats != nil {
		natsURL = cfg.Nats.URL
	}
	nc, err := nats.Connect(natsURL)
	if err != nil {
		zap.S().Fatalw("connect nats failed", "err", err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		zap.S().Fatalw("jetstream context failed", "err", err)
	}

	// publisher side owns stream creation; ensure it here too so the worker
	// can start first
	if _, err := worker.NewNATSPublisher(js); err != nil {
		zap.S().Fatalw("ensure stream failed", "err", err)
	}

	db, err := postgres_wrapper.InitPostgres(cfg.EngineDB)
	if err != nil {
		zap.S().Fatalw("init db failed", "err", err)
	}

	sqlRepo := repo.NewRepo(db)
	w := worker.NewWorker(sqlRepo)

	go func() {
		if err := w.StartConsumer(ctx, js, worker.StreamName+".*", "engine_worker"); err != nil && err != context.Canceled {
			zap.S().Errorw("consumer stopped", "err", err)
		}
	}()

	zap.S().Infow("persistence worker started", "service", cfg.ServiceName)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	cancel()
	zap.S().Info("exited cleanly")
}
