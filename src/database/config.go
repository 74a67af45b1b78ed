package database

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Driver       string `envconfig:"DB_DRIVER" default:"sqlite"` // "sqlite" or "postgres"
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"tradeagent.db"`
	PostgresDSN  string `envconfig:"POSTGRES_DSN" default:""`
	GormLogLevel int    `envconfig:"GORM_LOG_LEVEL" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
