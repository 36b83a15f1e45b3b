package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/shelfmart/shelfmart/cmd/shelfmart/cli"
	"github.com/shelfmart/shelfmart/internal/app"
	"github.com/shelfmart/shelfmart/internal/catalog"
	"github.com/shelfmart/shelfmart/internal/platform/cache"
	"github.com/shelfmart/shelfmart/internal/platform/db"
	"github.com/shelfmart/shelfmart/internal/pricing"
	"github.com/shelfmart/shelfmart/internal/sellers"
)

const usage = `shelfmart <command> [args]

Commands:
  reprice <product-id>            recompute and persist prices for one product
  preview <product-id> <price>    print calculated prices without persisting
  summary                         print per-seller inventory aggregates
  sweep                           enqueue a full-catalog repricing sweep
  enqueue <product-id>            enqueue repricing of one product
  queue                           show background queue stats
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "sweep", "enqueue", "queue":
		if err := runQueueCommand(ctx, cfg, command, args); err != nil {
			logger.Error(command, slog.Any("error", err))
			os.Exit(1)
		}
	case "reprice", "preview", "summary":
		if err := runEngineCommand(ctx, cfg, logger, command, args); err != nil {
			logger.Error(command, slog.Any("error", err))
			os.Exit(1)
		}
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func runQueueCommand(ctx context.Context, cfg *app.Config, command string, args []string) error {
	jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = jobsCLI.Close() }()

	switch command {
	case "sweep":
		info, err := jobsCLI.EnqueueSweep(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
	case "enqueue":
		if len(args) != 1 {
			return fmt.Errorf("usage: shelfmart enqueue <product-id>")
		}
		info, err := jobsCLI.EnqueueReprice(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s\n", info.Type, info.ID)
	case "queue":
		stats, err := jobsCLI.InspectQueue(ctx)
		if err != nil {
			return err
		}
		fmt.Println(stats)
	}
	return nil
}

func runEngineCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, command string, args []string) error {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: int32(cfg.PricingWorkers + 2)})
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { _ = redisClient.Close() }()

	service := pricing.NewService(
		catalog.NewRepository(pool),
		sellers.NewRepository(pool),
		pricing.NewStore(pricing.NewRuleRepository(pool)),
		pricing.NewInventoryRepository(pool),
		pricing.NewCache(redisClient, cfg.SummaryCacheTTL),
		logger,
		pricing.ServiceConfig{Workers: cfg.PricingWorkers, DefaultStock: cfg.PricingDefaultStock},
	)
	pricingCLI := cli.NewPricingCLI(service)

	switch command {
	case "reprice":
		if len(args) != 1 {
			return fmt.Errorf("usage: shelfmart reprice <product-id>")
		}
		return pricingCLI.Reprice(ctx, os.Stdout, args[0])
	case "preview":
		if len(args) != 2 {
			return fmt.Errorf("usage: shelfmart preview <product-id> <base-price>")
		}
		base, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("invalid base price %q: %w", args[1], err)
		}
		return pricingCLI.Preview(ctx, os.Stdout, args[0], base)
	case "summary":
		return pricingCLI.Summary(ctx, os.Stdout)
	}
	return nil
}
