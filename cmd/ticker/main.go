package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tickerScope/internal/config"
	"tickerScope/internal/dex"
)

func main() {
	root := &cobra.Command{
		Use:          "ticker",
		Short:        "AMM pair ticker summary",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ticker summary over HTTP",
		RunE:  runServe,
	}

	addSharedFlags(serveCmd.Flags())
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("redis-addr", "", "Redis address for the summary cache, empty disables caching")
	serveCmd.Flags().String("redis-password", "", "Redis password")
	serveCmd.Flags().Int("redis-db", 0, "Redis database")
	serveCmd.Flags().Duration("cache-ttl", 30*time.Second, "summary cache ttl and Cache-Control max-age")

	root.AddCommand(serveCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Compute one summary and persist it",
		RunE:  runSnapshot,
	}

	addSharedFlags(snapshotCmd.Flags())
	snapshotCmd.Flags().String("out", "./data/tickers.jsonl", "output JSONL path, empty disables the file sink")
	snapshotCmd.Flags().String("pg-dsn", "", "Postgres DSN")

	root.AddCommand(snapshotCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSharedFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.String("subgraph-url", "", "Uniswap V2 subgraph GraphQL endpoint")
	flags.String("subgraph-api-key", "", "subgraph gateway API key")
	flags.String("factory", config.DefaultFactory, "Uniswap V2 factory address")
	flags.Int("limit", 100, "number of top pairs to summarize")
	flags.StringSlice("depth-fractions", nil, "ascending depth fractions for the synthesized book (comma-separated)")
	flags.String("reserve-method", dex.MethodReserves, "reserve read method (reserves, balances)")
	flags.Int("concurrency", 0, "max pairs fetched in parallel, 0 means all")
	flags.Uint64("blocks-per-day", 7200, "blocks in the 24h window")
	flags.Int("max-retries", 3, "maximum retry attempts")
	flags.Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	flags.Duration("retry-max-delay", 5*time.Second, "retry backoff cap")
	flags.Duration("request-timeout", 30*time.Second, "subgraph request timeout")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
