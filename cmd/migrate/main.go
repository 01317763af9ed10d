package main

import (
	"flag"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"github.com/joripage/tokenex/config"
	"github.com/joripage/tokenex/pkg/infra"
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

	if cfg.EngineDB == nil || cfg.EngineDB.MigrationConnURL == "" {
		zap.S().Fatal("engine_db.migration_conn_url is required")
	}

	mgTool := infra.GetMigrateTool()
	mgTool.Migrate("file://migration/sql", cfg.EngineDB.MigrationConnURL)
}
