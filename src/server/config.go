package server

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"STATUS_PORT" default:"8080"`

	// Bcrypt hash of the bearer token protecting the status routes.
	// Empty leaves them open; /healthcheck is always open.
	TokenHash string `envconfig:"STATUS_TOKEN_HASH"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
