package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"tradeagent/src/aggregator"
	"tradeagent/src/connectors"
	"tradeagent/src/database"
	"tradeagent/src/model"
	"tradeagent/src/notify"
	"tradeagent/src/repository"
	"tradeagent/src/server"
	"tradeagent/src/strategy"
	"tradeagent/src/stream"
	"tradeagent/src/trading"
	"tradeagent/src/utils"
)

var APP_NAME = os.Getenv("APP_NAME")

func SetupLogger() {
	levelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))

	level, err := logger.ParseLevel(levelStr)
	if err != nil {
		level = logger.InfoLevel
	}

	logger.SetLevel(level)
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})
}

func main() {
	SetupLogger()
	defer handlePanic()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tradingCfg := trading.GetConfig()
	brokerCfg := connectors.GetConfig()
	streamCfg := stream.GetConfig()

	broker := connectors.NewClient(brokerCfg.APIKey, brokerCfg.APISecret, brokerCfg.BaseURL)

	notifyCfg := notify.GetConfig()
	var notifier notify.Notifier = notify.NewTelegramNotifier(notifyCfg)
	if notifyCfg.TelegramBotToken == "" || notifyCfg.TelegramChatID == "" {
		logger.Info("telegram not configured, notifications disabled")
		notifier = notify.NopNotifier{}
	}

	candleRepo := repository.NewCandleRepository()
	positionRepo := repository.NewPositionRepository()
	tradeRepo := repository.NewTradeRepository()
	stopRepo := repository.NewTrailingStopRepository()
	perfRepo := repository.NewPerformanceRepository()

	evaluator := strategy.NewEvaluator(strategy.Params{
		RSIPeriod:     tradingCfg.RSIPeriod,
		RSIOversold:   tradingCfg.RSIOversold,
		RSIOverbought: tradingCfg.RSIOverbought,
		MAShortPeriod: tradingCfg.MAShortPeriod,
		MALongPeriod:  tradingCfg.MALongPeriod,
		MACDFast:      tradingCfg.MACDFast,
		MACDSlow:      tradingCfg.MACDSlow,
		MACDSignal:    tradingCfg.MACDSignal,
	}, logger.WithField("component", "Evaluator"))

	stops := trading.NewStopManager(tradingCfg, broker, stopRepo, positionRepo,
		notifier, logger.WithField("component", "StopManager"))
	perf := trading.NewPerformanceTracker(tradeRepo, perfRepo,
		logger.WithField("component", "PerformanceTracker"))
	trader := trading.NewTrader(tradingCfg, broker, evaluator, stops, perf,
		candleRepo, positionRepo, tradeRepo, notifier,
		logger.WithField("component", "Trader"))

	agg := aggregator.New(tradingCfg.Symbols, tradingCfg.CandleFoldFactor, candleRepo,
		func(candle model.Candle) {
			// A completed candle triggers an evaluation cycle. The fill
			// poll inside can take tens of seconds, keep it off the
			// stream read loop.
			go trader.EvaluateSymbol(ctx, candle.Symbol)
		},
		logger.WithField("component", "Aggregator"))

	marketSession := stream.NewMarketDataSession(streamCfg, tradingCfg.Symbols, broker, notifier,
		func(tick model.Tick) {
			trader.OnTick(ctx, tick)
			agg.Offer(ctx, tick)
		})
	accountSession := stream.NewAccountSession(streamCfg, broker, notifier,
		func(ev trading.TradeEvent) {
			trader.OnTradeUpdate(ctx, ev)
		})

	manager := stream.NewManager(streamCfg, broker, notifier, marketSession, accountSession)
	go manager.Run(ctx)

	go reportPerformance(ctx, tradingCfg.ReportInterval, perfRepo, notifier)

	sendStartupNotification(ctx, tradingCfg, broker, notifier)

	srv := server.NewStatusServer(server.GetConfig(), perfRepo, positionRepo, stopRepo)
	srv.Start(ctx)

	notifier.Send("🛑 Trading agent shutting down")
	logger.Info("Shutdown complete")
}

func sendStartupNotification(ctx context.Context, cfg trading.Config, broker *connectors.Client, notifier notify.Notifier) {
	msg := "🚀 Trading agent started. Symbols: " + strings.Join(cfg.Symbols, ", ")
	if cash, err := broker.GetAccountCash(ctx); err == nil {
		msg += ". Cash: " + utils.FormatCurrency(cash)
	} else {
		logger.WithError(err).Warn("could not fetch account cash for startup notification")
	}
	notifier.Send(msg)
}

func reportPerformance(ctx context.Context, interval time.Duration, perfRepo *repository.PerformanceRepository, notifier notify.Notifier) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			latest, err := perfRepo.Latest(ctx)
			if err != nil {
				logger.WithError(err).Warn("could not load performance snapshot for report")
				continue
			}
			if latest == nil {
				notifier.Send("📊 Performance report: no closed trades yet")
				continue
			}
			notifier.Send(fmt.Sprintf("📊 Performance report: %d trades, %d wins, %d losses, total P&L %s",
				latest.TotalTrades, latest.WinningTrades, latest.LosingTrades,
				utils.FormatCurrency(latest.TotalProfit)))
		}
	}
}

func handlePanic() {
	if r := recover(); r != nil {
		logger.WithError(fmt.Errorf("%+v", r)).Error(fmt.Sprintf("Application %s panic", APP_NAME))
	}
	//nolint
	time.Sleep(time.Second * 5)
}
