package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joripage/tokenex/pkg/engine/model"
	postgres_wrapper "github.com/joripage/tokenex/pkg/infra/postgres"
	redis_wrapper "github.com/joripage/tokenex/pkg/infra/redis"
)

type AppConfig struct {
	ServiceName string `yaml:"service_name"`
	LogLevel    string `yaml:"log_level"`

	Pairs []*PairConfig `yaml:"pairs"`

	MakerFeeRate         string `yaml:"maker_fee_rate"`
	TakerFeeRate         string `yaml:"taker_fee_rate"`
	SweepIntervalSeconds int    `yaml:"sweep_interval_seconds"`
	GTCExpiryHours       int    `yaml:"gtc_expiry_hours"`
	EventBuffer          int    `yaml:"event_buffer"`

	EngineDB *postgres_wrapper.PostgresConfig `yaml:"engine_db"`
	Redis    *redis_wrapper.RedisConfig       `yaml:"redis"`
	Kafka    *KafkaConfig                     `yaml:"kafka"`
	Nats     *NatsConfig                      `yaml:"nats"`
	Fix      *FixConfig                       `yaml:"fix"`
}

// PairConfig keeps decimal fields as strings in yaml; ToModel parses them.
type PairConfig struct {
	ID                string `yaml:"id"`
	PricePrecision    int32  `yaml:"price_precision"`
	QuantityPrecision int32  `yaml:"quantity_precision"`
	TickSize          string `yaml:"tick_size"`
	MaxOrderSize      string `yaml:"max_order_size"`
	PriceFloor        string `yaml:"price_floor"`
	PriceCeiling      string `yaml:"price_ceiling"`
}

func (p *PairConfig) ToModel() (*model.Pair, error) {
	out := &model.Pair{
		ID:                p.ID,
		PricePrecision:    p.PricePrecision,
		QuantityPrecision: p.QuantityPrecision,
	}
	for _, f := range []struct {
		src string
		dst *decimal.Decimal
	}{
		{p.TickSize, &out.TickSize},
		{p.MaxOrderSize, &out.MaxOrderSize},
		{p.PriceFloor, &out.PriceFloor},
		{p.PriceCeiling, &out.PriceCeiling},
	} {
		if f.src == "" {
			continue
		}
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return nil, fmt.Errorf("pair %s: %w", p.ID, err)
		}
		*f.dst = d
	}
	return out, nil
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	EventTopic string   `yaml:"event_topic"`
}

type NatsConfig struct {
	URL string `yaml:"url"`
}

type FixConfig struct {
	ConfigFilepath string `yaml:"config_filepath"`
}

func (c *AppConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c *AppConfig) GTCExpiry() time.Duration {
	return time.Duration(c.GTCExpiryHours) * time.Hour
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
