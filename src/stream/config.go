package stream

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	MarketDataURL string `envconfig:"STREAM_MARKET_DATA_URL" default:"wss://stream.data.alpaca.markets/v2/iex"`
	AccountURL    string `envconfig:"STREAM_ACCOUNT_URL" default:"wss://paper-api.alpaca.markets/stream"`

	APIKey    string `envconfig:"BROKER_API_KEY" required:"true"`
	APISecret string `envconfig:"BROKER_API_SECRET" required:"true"`

	HeartbeatInterval   time.Duration `envconfig:"STREAM_HEARTBEAT_INTERVAL" default:"15s"`
	MarketCheckInterval time.Duration `envconfig:"MARKET_CHECK_INTERVAL" default:"5m"`
	BackoffFloor        time.Duration `envconfig:"STREAM_BACKOFF_FLOOR" default:"1s"`
	BackoffCap          time.Duration `envconfig:"STREAM_BACKOFF_CAP" default:"60s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
