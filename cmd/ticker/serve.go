package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tickerScope/internal/cache/redis"
	"tickerScope/internal/chain"
	"tickerScope/internal/config"
	"tickerScope/internal/server"
	"tickerScope/internal/summary"
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	svc, _, err := newSummaryService(cfg.Config, chainClient, nil, logger)
	if err != nil {
		return err
	}

	var provider summary.Provider = svc
	if cfg.RedisAddr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer redisClient.Close()

		provider = summary.NewCachedService(svc, redis.NewSummaryCache(redisClient, cfg.CacheTTL), cfg.RequestTimeout, logger)
	}

	logger.Info("serve start",
		zap.String("listen", cfg.Listen),
		zap.String("subgraph", cfg.SubgraphURL),
		zap.String("factory", cfg.Factory),
		zap.Int("limit", cfg.Limit),
		zap.String("reserve_method", cfg.ReserveMethod),
		zap.Bool("redis_cache", cfg.RedisAddr != ""),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	srv := server.NewServer(server.Config{Listen: cfg.Listen, CacheTTL: cfg.CacheTTL}, provider, logger)
	return srv.Run(ctx)
}
