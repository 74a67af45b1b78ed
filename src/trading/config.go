package trading

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Symbols []string `envconfig:"SYMBOLS" default:"AAPL,MSFT,TSLA"`

	RSIPeriod     int     `envconfig:"RSI_PERIOD" default:"14"`
	RSIOversold   float64 `envconfig:"RSI_OVERSOLD" default:"30"`
	RSIOverbought float64 `envconfig:"RSI_OVERBOUGHT" default:"70"`
	MAShortPeriod int     `envconfig:"MA_SHORT_PERIOD" default:"9"`
	MALongPeriod  int     `envconfig:"MA_LONG_PERIOD" default:"21"`
	MACDFast      int     `envconfig:"MACD_FAST" default:"12"`
	MACDSlow      int     `envconfig:"MACD_SLOW" default:"26"`
	MACDSignal    int     `envconfig:"MACD_SIGNAL" default:"9"`

	PositionSizePercent float64 `envconfig:"POSITION_SIZE_PERCENT" default:"10"`
	StopLossPercent     float64 `envconfig:"STOP_LOSS_PERCENT" default:"5"`
	TrailingStepPercent float64 `envconfig:"TRAILING_STEP_PERCENT" default:"3"`
	TakeProfitPercent   float64 `envconfig:"TAKE_PROFIT_PERCENT" default:"6"`

	CandleFoldFactor int           `envconfig:"CANDLE_FOLD_FACTOR" default:"5"`
	FillPollInterval time.Duration `envconfig:"FILL_POLL_INTERVAL" default:"1s"`
	FillPollAttempts int           `envconfig:"FILL_POLL_ATTEMPTS" default:"30"`

	ReportInterval time.Duration `envconfig:"PERFORMANCE_REPORT_INTERVAL" default:"24h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
