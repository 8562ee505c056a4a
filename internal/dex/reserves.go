package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickerScope/internal/model"
	"tickerScope/internal/retry"
)

const (
	MethodReserves = "reserves"
	MethodBalances = "balances"
)

// ErrPairNotFound is returned when the factory has no pair for two tokens.
var ErrPairNotFound = errors.New("pair not found")

// ReaderConfig holds runtime settings for the reserve reader.
type ReaderConfig struct {
	Factory common.Address
	// Method selects getReserves() on the pair or ERC20 balanceOf(pair).
	Method       string
	MaxRetries   int
	RetryBackoff time.Duration
	MaxDelay     time.Duration
	// Block pins every read to one block; nil reads the latest state.
	Block *big.Int
}

// ReserveReader resolves pairs through the factory and reads their reserves
// in human units.
type ReserveReader struct {
	cfg    ReaderConfig
	caller ContractCaller
	pairs  *PairCache
	tokens *TokenMetaCache
	logger *zap.Logger
}

// NewReserveReader builds a ReserveReader with its dependencies.
func NewReserveReader(cfg ReaderConfig, caller ContractCaller, logger *zap.Logger) *ReserveReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Method == "" {
		cfg.Method = MethodReserves
	}
	return &ReserveReader{
		cfg:    cfg,
		caller: caller,
		pairs:  NewPairCache(),
		tokens: NewTokenMetaCache(),
		logger: logger,
	}
}

// Reserves returns the pool balances of tokenA and tokenB, in that order.
func (r *ReserveReader) Reserves(ctx context.Context, tokenA, tokenB common.Address) (model.Reserves, error) {
	if r.caller == nil {
		return model.Reserves{}, fmt.Errorf("contract caller is nil")
	}
	if tokenA == tokenB {
		return model.Reserves{}, fmt.Errorf("identical tokens: %s", tokenA.Hex())
	}

	token0, token1 := SortTokens(tokenA, tokenB)
	pair, err := r.PairAddress(ctx, token0, token1)
	if err != nil {
		return model.Reserves{}, err
	}

	var raw0, raw1 *big.Int
	switch r.cfg.Method {
	case MethodReserves:
		raw0, raw1, err = r.pairReserves(ctx, pair)
	case MethodBalances:
		raw0, raw1, err = r.pairBalances(ctx, pair, token0, token1)
	default:
		err = fmt.Errorf("unknown reserve method: %s", r.cfg.Method)
	}
	if err != nil {
		return model.Reserves{}, err
	}

	meta0, err := r.TokenMeta(ctx, token0)
	if err != nil {
		return model.Reserves{}, fmt.Errorf("token %s: %w", token0.Hex(), err)
	}
	meta1, err := r.TokenMeta(ctx, token1)
	if err != nil {
		return model.Reserves{}, fmt.Errorf("token %s: %w", token1.Hex(), err)
	}

	reserve0 := decimal.NewFromBigInt(raw0, -int32(meta0.Decimals))
	reserve1 := decimal.NewFromBigInt(raw1, -int32(meta1.Decimals))
	if tokenA == token0 {
		return model.Reserves{A: reserve0, B: reserve1}, nil
	}
	return model.Reserves{A: reserve1, B: reserve0}, nil
}

// PairAddress resolves the pair for two sorted tokens through the factory.
func (r *ReserveReader) PairAddress(ctx context.Context, token0, token1 common.Address) (common.Address, error) {
	if pair, ok := r.pairs.Get(token0, token1); ok {
		return pair, nil
	}

	factoryABI, err := V2FactoryABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("parse factory abi: %w", err)
	}
	values, err := r.call(ctx, r.cfg.Factory, factoryABI, "getPair", nil, token0, token1)
	if err != nil {
		return common.Address{}, err
	}
	pair, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("getPair: %w", err)
	}
	if pair == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s/%s", ErrPairNotFound, token0.Hex(), token1.Hex())
	}

	r.pairs.Set(token0, token1, pair)
	return pair, nil
}

// TokenMeta returns cached ERC20 metadata, loading it on first use.
func (r *ReserveReader) TokenMeta(ctx context.Context, token common.Address) (model.TokenRef, error) {
	if meta, ok := r.tokens.Get(token); ok {
		return meta, nil
	}

	var meta model.TokenRef
	err := retry.Do(ctx, r.retryPolicy(), func(ctx context.Context) error {
		var err error
		meta, err = FetchTokenMeta(ctx, r.caller, token, r.logger)
		return err
	}, r.logRetry("token meta", token))
	if err != nil {
		return model.TokenRef{}, err
	}

	r.tokens.Set(token, meta)
	return meta, nil
}

func (r *ReserveReader) pairReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse pair abi: %w", err)
	}
	values, err := r.call(ctx, pair, pairABI, "getReserves", r.cfg.Block)
	if err != nil {
		return nil, nil, err
	}
	if len(values) < 2 {
		return nil, nil, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return nil, nil, fmt.Errorf("reserve1: %w", err)
	}
	return reserve0, reserve1, nil
}

func (r *ReserveReader) pairBalances(ctx context.Context, pair, token0, token1 common.Address) (*big.Int, *big.Int, error) {
	erc20, err := ERC20ABI()
	if err != nil {
		return nil, nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	values, err := r.call(ctx, token0, erc20, "balanceOf", r.cfg.Block, pair)
	if err != nil {
		return nil, nil, err
	}
	balance0, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("balance0: %w", err)
	}
	values, err = r.call(ctx, token1, erc20, "balanceOf", r.cfg.Block, pair)
	if err != nil {
		return nil, nil, err
	}
	balance1, err := asBigInt(values[0])
	if err != nil {
		return nil, nil, fmt.Errorf("balance1: %w", err)
	}
	return balance0, balance1, nil
}

func (r *ReserveReader) call(ctx context.Context, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	var values []interface{}
	err := retry.Do(ctx, r.retryPolicy(), func(ctx context.Context) error {
		var err error
		values, err = callMethod(ctx, r.caller, to, parsed, method, block, args...)
		return err
	}, r.logRetry(method, to))
	return values, err
}

func (r *ReserveReader) retryPolicy() retry.Policy {
	return retry.Policy{MaxRetries: r.cfg.MaxRetries, BaseDelay: r.cfg.RetryBackoff, MaxDelay: r.cfg.MaxDelay}
}

func (r *ReserveReader) logRetry(method string, to common.Address) func(int, error) {
	return func(attempt int, err error) {
		r.logger.Warn("contract call failed",
			zap.String("method", method),
			zap.String("to", to.Hex()),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
