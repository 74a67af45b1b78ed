package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"tradeagent/src/database"
	"tradeagent/src/repository"
	"tradeagent/src/utils"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Tradeagent CMD"
	app.Usage = "The tradeagent command line interface"

	app.Commands = []cli.Command{
		reportCMD,
		positionsCMD,
		tradesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	reportCMD = cli.Command{
		Name:        "report",
		Usage:       "print the latest performance snapshot",
		Action:      reportAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Print the cumulative trade performance recorded by the agent`,
	}
	positionsCMD = cli.Command{
		Name:        "positions",
		Usage:       "list open positions and their stops",
		Action:      positionsAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `List every open position with its working protective stop`,
	}
	tradesCMD = cli.Command{
		Name:        "trades",
		Usage:       "print the fill log for a symbol",
		Action:      tradesAction,
		ArgsUsage:   "SYMBOL",
		Flags:       []cli.Flag{},
		Description: `Print every recorded fill for a symbol, oldest first`,
	}
)

func reportAction(_ *cli.Context) error {
	logrus.Info("Starting report CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	latest, err := repository.NewPerformanceRepository().Latest(context.Background())
	if err != nil {
		return err
	}
	if latest == nil {
		fmt.Println("No closed trades recorded yet")
		return nil
	}

	fmt.Printf("Total trades:   %d\n", latest.TotalTrades)
	fmt.Printf("Winning trades: %d\n", latest.WinningTrades)
	fmt.Printf("Losing trades:  %d\n", latest.LosingTrades)
	fmt.Printf("Total P&L:      %s\n", utils.FormatCurrency(latest.TotalProfit))
	fmt.Printf("As of:          %s\n", utils.FormatTime(latest.Timestamp))
	return nil
}

func positionsAction(_ *cli.Context) error {
	logrus.Info("Starting positions CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	ctx := context.Background()

	positions, err := repository.NewPositionRepository().All(ctx)
	if err != nil {
		return err
	}
	stopRepo := repository.NewTrailingStopRepository()

	found := false
	for _, p := range positions {
		if p.Quantity == 0 {
			continue
		}
		found = true
		fmt.Println("------ OPEN POSITION ------")
		fmt.Printf("Symbol:   %s\n", p.Symbol)
		fmt.Printf("Quantity: %d\n", p.Quantity)

		stop, err := stopRepo.Get(ctx, p.Symbol)
		if err != nil {
			return err
		}
		if stop != nil {
			fmt.Printf("Entry:    %s\n", utils.FormatCurrency(stop.EntryPrice))
			fmt.Printf("Stop:     %s (initial %s)\n",
				utils.FormatCurrency(stop.CurrentStopPrice),
				utils.FormatCurrency(stop.InitialStopPrice))
		}
	}
	if !found {
		fmt.Println("No open positions")
	}
	return nil
}

func tradesAction(c *cli.Context) error {
	symbol := c.Args().First()
	if symbol == "" {
		return fmt.Errorf("usage: trades SYMBOL")
	}

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	trades, err := repository.NewTradeRepository().FindBySymbolAsc(context.Background(), symbol)
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
