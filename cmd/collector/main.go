package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"SignalPull/internal/di"
	"SignalPull/internal/domain/models"
	"SignalPull/pkg/config"
	"SignalPull/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	since := flag.String("since", "", "backfill start date (YYYY-MM-DD)")
	until := flag.String("until", "", "backfill end date (YYYY-MM-DD)")
	limit := flag.Int("limit", 0, "max posts per author in backfill mode")
	group := flag.String("group", "", "author group: core, all, movers, sentiment, chartists")
	reprice := flag.Bool("reprice", false, "re-resolve fallback entry prices instead of collecting")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	c, err := di.InitializeCollector(cfg)
	if err != nil {
		log.Fatalf("collector initialization failed: %v", err)
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var out interface{}
	if *reprice {
		out, err = c.Repricer.Run(ctx)
	} else {
		out, err = c.Pipeline.Run(ctx, models.RunParams{
			Since:          *since,
			Until:          *until,
			LimitPerAuthor: *limit,
			AuthorGroup:    *group,
		})
	}
	if err != nil {
		c.Logger.Error("Collector run failed", logger.Error(err))
		c.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Printf("encode summary: %v", err)
	}
}
