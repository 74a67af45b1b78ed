package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIKey    string `envconfig:"BROKER_API_KEY"`
	APISecret string `envconfig:"BROKER_API_SECRET"`
	BaseURL   string `envconfig:"BROKER_BASE_URL" default:"https://paper-api.example-broker.com"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
