package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"tickerScope/internal/dex"
)

// DefaultFactory is the Uniswap V2 factory on Ethereum mainnet.
const DefaultFactory = "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f"

// Config holds the settings shared by every command, loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	SubgraphURL    string
	SubgraphAPIKey string
	Factory        string
	Limit          int
	DepthFractions []string
	ReserveMethod  string
	Concurrency    int
	BlocksPerDay   uint64
	MaxRetries     int
	RetryBackoff   time.Duration
	RetryMaxDelay  time.Duration
	RequestTimeout time.Duration
	LogLevel       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v), nil
}

// Validate checks required values and parses the ones with a fixed format.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.SubgraphURL == "" {
		return fmt.Errorf("subgraph url is required")
	}
	if !common.IsHexAddress(c.Factory) {
		return fmt.Errorf("invalid factory address: %s", c.Factory)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("limit must be greater than zero")
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative")
	}
	if c.BlocksPerDay == 0 {
		return fmt.Errorf("blocks per day must be greater than zero")
	}
	switch c.ReserveMethod {
	case dex.MethodReserves, dex.MethodBalances:
	default:
		return fmt.Errorf("unknown reserve method: %s", c.ReserveMethod)
	}
	if c.RetryMaxDelay < 0 {
		return fmt.Errorf("retry max delay must not be negative")
	}
	if _, err := ParseDepthFractions(c.DepthFractions); err != nil {
		return err
	}
	return nil
}

// ParseDepthFractions parses a depth schedule. Every fraction must lie in (0, 1)
// and the list must be strictly ascending. An empty list is valid and selects
// the default schedule.
func ParseDepthFractions(inputs []string) ([]decimal.Decimal, error) {
	fractions := make([]decimal.Decimal, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		fraction, err := decimal.NewFromString(input)
		if err != nil {
			return nil, fmt.Errorf("invalid depth fraction: %s", input)
		}
		if fraction.Sign() <= 0 || fraction.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("depth fraction out of range (0, 1): %s", input)
		}
		if n := len(fractions); n > 0 && !fraction.GreaterThan(fractions[n-1]) {
			return nil, fmt.Errorf("depth fractions must be strictly ascending: %s", input)
		}
		fractions = append(fractions, fraction)
	}
	return fractions, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("TICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("factory", DefaultFactory)
	v.SetDefault("limit", 100)
	v.SetDefault("reserve-method", dex.MethodReserves)
	v.SetDefault("concurrency", 0)
	v.SetDefault("blocks-per-day", uint64(7200))
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("retry-max-delay", 5*time.Second)
	v.SetDefault("request-timeout", 30*time.Second)
	v.SetDefault("log-level", "info")

	v.SetDefault("listen", ":8080")
	v.SetDefault("redis-db", 0)
	v.SetDefault("cache-ttl", 30*time.Second)
	v.SetDefault("out", "./data/tickers.jsonl")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		RPCURL:         v.GetString("rpc"),
		SubgraphURL:    v.GetString("subgraph-url"),
		SubgraphAPIKey: v.GetString("subgraph-api-key"),
		Factory:        v.GetString("factory"),
		Limit:          v.GetInt("limit"),
		DepthFractions: getStringSlice(v, "depth-fractions"),
		ReserveMethod:  strings.ToLower(strings.TrimSpace(v.GetString("reserve-method"))),
		Concurrency:    v.GetInt("concurrency"),
		BlocksPerDay:   v.GetUint64("blocks-per-day"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		RetryMaxDelay:  v.GetDuration("retry-max-delay"),
		RequestTimeout: v.GetDuration("request-timeout"),
		LogLevel:       v.GetString("log-level"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
