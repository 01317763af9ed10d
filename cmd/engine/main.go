package main

import (
	"context"
	"flag"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/joripage/tokenex/config"
	"github.com/joripage/tokenex/pkg/engine"
	"github.com/joripage/tokenex/pkg/engine/model"
	"github.com/joripage/tokenex/pkg/engine/riskrule"
	"github.com/joripage/tokenex/pkg/engine/worker"
	"github.com/joripage/tokenex/pkg/fixgw"
	redis_wrapper "github.com/joripage/tokenex/pkg/infra/redis"
	"github.com/joripage/tokenex/pkg/kafkawrapper"
	"github.com/joripage/tokenex/pkg/logging"
	"github.com/joripage/tokenex/pkg/marketdata"
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

	go func() {
		http.ListenAndServe("localhost:6060", nil) // nolint
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	pairs := make([]*model.Pair, 0, len(cfg.Pairs))
	for _, pc := range cfg.Pairs {
		p, err := pc.ToModel()
		if err != nil {
			zap.S().Fatalw("invalid pair config", "err", err)
		}
		pairs = append(pairs, p)
	}

	opts := []engine.Option{
		engine.WithRiskRules(
			riskrule.NewTickSizeRule(),
			riskrule.NewPriceBandRule(),
			riskrule.NewMaxOrderSizeRule(),
		),
	}

	if cfg.MakerFeeRate != "" && cfg.TakerFeeRate != "" {
		makerRate, err := decimal.NewFromString(cfg.MakerFeeRate)
		if err != nil {
			zap.S().Fatalw("invalid maker fee rate", "err", err)
		}
		takerRate, err := decimal.NewFromString(cfg.TakerFeeRate)
		if err != nil {
			zap.S().Fatalw("invalid taker fee rate", "err", err)
		}
		fees, err := engine.NewFixedFeeSchedule(makerRate, takerRate)
		if err != nil {
			zap.S().Fatalw("invalid fee schedule", "err", err)
		}
		opts = append(opts, engine.WithFeeSchedule(fees))
	}

	if cfg.Nats != nil {
		nc, err := nats.Connect(cfg.Nats.URL)
		if err != nil {
			zap.S().Fatalw("connect nats failed", "err", err)
		}
		defer nc.Close()
		js, err := nc.JetStream()
		if err != nil {
			zap.S().Fatalw("jetstream context failed", "err", err)
		}
		pub, err := worker.NewNATSPublisher(js)
		if err != nil {
			zap.S().Fatalw("create nats publisher failed", "err", err)
		}
		opts = append(opts, engine.WithNotifier(pub))
	}

	if cfg.Redis != nil {
		redisClient, err := redis_wrapper.InitRedis(cfg.Redis)
		if err != nil {
			zap.S().Fatalw("connect redis failed", "err", err)
		}
		opts = append(opts, engine.WithNotifier(marketdata.NewRedisCache(redisClient)))
	}

	var fanout *marketdata.KafkaFanout
	if cfg.Kafka != nil {
		producer := kafkawrapper.NewProducer(kafkawrapper.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		fanout = marketdata.NewKafkaFanout(producer, cfg.Kafka.EventTopic)
		opts = append(opts, engine.WithNotifier(fanout))
	}

	eng, err := engine.New(&engine.Config{
		Pairs:         pairs,
		SweepInterval: cfg.SweepInterval(),
		GTCExpiry:     cfg.GTCExpiry(),
		EventBuffer:   cfg.EventBuffer,
	}, opts...)
	if err != nil {
		zap.S().Fatalw("create engine failed", "err", err)
	}

	var gw *fixgw.Gateway
	if cfg.Fix != nil {
		gw = fixgw.NewGateway(&fixgw.GatewayConfig{ConfigFilepath: cfg.Fix.ConfigFilepath}, eng)
		eng.AddNotifier(gw)
	}

	eng.Start(ctx)
	if gw != nil {
		if err := gw.Start(ctx); err != nil {
			zap.S().Fatalw("start fix gateway failed", "err", err)
		}
	}

	zap.S().Infow("engine started", "service", cfg.ServiceName, "pairs", len(pairs))

	<-sigs
	zap.S().Info("shutting down...")

	if gw != nil {
		gw.Stop()
	}
	eng.Stop()
	if fanout != nil {
		fanout.Close(context.Background()) // nolint
	}
	cancel()

	zap.S().Info("exited cleanly")
}
