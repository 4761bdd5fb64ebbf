// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-sale/internal/blockchain"
	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/token-sale/internal/utils/metrics"
)

const (
	methodGetAccountInfo         = "getAccountInfo"
	methodGetLatestBlockhash     = "getLatestBlockhash"
	methodGetPriorityFeeEstimate = "getPriorityFeeEstimate"
)

// ErrMalformedFeeEstimate означает, что эндпоинт ответил, но цену из ответа использовать нельзя.
// Повторять такой запрос бессмысленно.
var ErrMalformedFeeEstimate = errors.New("malformed priority fee estimate")

// RPCClient is the subset of solana-go rpc.Client used by Client.
type RPCClient interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey, opts *solanarpc.GetAccountInfoOpts) (*solanarpc.GetAccountInfoResult, error)
	GetLatestBlockhash(ctx context.Context, commitment solanarpc.CommitmentType) (*solanarpc.GetLatestBlockhashResult, error)
	RPCCallForInto(ctx context.Context, out interface{}, method string, params []interface{}) error
}

// Config описывает поведение клиента при обращении к узлу.
type Config struct {
	Endpoint   string
	Commitment solanarpc.CommitmentType
	// Timeout ограничивает каждую отдельную попытку
	Timeout time.Duration
	// число повторов после первой попытки
	Retries    int
	RetryDelay time.Duration
	// RateLimit в запросах в секунду, 0 отключает ограничение
	RateLimit int
}

func (c Config) withDefaults() Config {
	if c.Commitment == "" {
		c.Commitment = solanarpc.CommitmentConfirmed
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 250 * time.Millisecond
	}
	return c
}

// Client – адаптер solana-go, реализующий blockchain.Client поверх одного RPC-эндпоинта.
type Client struct {
	rpc     RPCClient
	cfg     Config
	limiter ratelimit.Limiter
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewClient создаёт клиент для cfg.Endpoint.
func NewClient(cfg Config, collector *metrics.Collector, logger *zap.Logger) *Client {
	return NewClientWithRPC(solanarpc.New(cfg.Endpoint), cfg, collector, logger)
}

// NewClientWithRPC позволяет подставить собственную реализацию RPCClient.
func NewClientWithRPC(rpcClient RPCClient, cfg Config, collector *metrics.Collector, logger *zap.Logger) *Client {
	cfg = cfg.withDefaults()

	limiter := ratelimit.NewUnlimited()
	if cfg.RateLimit > 0 {
		limiter = ratelimit.New(cfg.RateLimit)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		rpc:     rpcClient,
		cfg:     cfg,
		limiter: limiter,
		metrics: collector,
		logger:  logger.Named("solbc-client"),
	}
}

// AccountExists проверяет наличие аккаунта. Для отсутствующего аккаунта возвращает (false, nil).
func (c *Client) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	return call(ctx, c, methodGetAccountInfo, func(ctx context.Context) (bool, error) {
		result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
			Commitment: c.cfg.Commitment,
			Encoding:   solana.EncodingBase64,
		})
		if errors.Is(err, solanarpc.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return result != nil && result.Value != nil, nil
	})
}

// GetLatestCheckpoint получает свежий blockhash. Результат не кэшируется.
func (c *Client) GetLatestCheckpoint(ctx context.Context) (*blockchain.Checkpoint, error) {
	return call(ctx, c, methodGetLatestBlockhash, func(ctx context.Context) (*blockchain.Checkpoint, error) {
		result, err := c.rpc.GetLatestBlockhash(ctx, c.cfg.Commitment)
		if err != nil {
			return nil, err
		}
		if result == nil || result.Value == nil || result.Value.Blockhash == (solana.Hash{}) {
			return nil, fmt.Errorf("%w: empty blockhash", rpc.ErrInvalidResponse)
		}
		return &blockchain.Checkpoint{
			Blockhash:            result.Value.Blockhash,
			LastValidBlockHeight: result.Value.LastValidBlockHeight,
			Slot:                 result.Context.Slot,
		}, nil
	})
}

type priorityFeeOptions struct {
	Recommended bool `json:"recommended"`
}

type priorityFeeRequest struct {
	AccountKeys []string           `json:"accountKeys"`
	Options     priorityFeeOptions `json:"options"`
}

type priorityFeeResponse struct {
	PriorityFeeEstimate *float64 `json:"priorityFeeEstimate"`
}

// EstimatePriorityFee запрашивает рекомендованную цену compute unit (micro-lamports)
// для транзакции, затрагивающей accounts. Дробная оценка округляется вверх.
func (c *Client) EstimatePriorityFee(ctx context.Context, accounts []solana.PublicKey) (uint64, error) {
	keys := make([]string, len(accounts))
	for i, acc := range accounts {
		keys[i] = acc.String()
	}
	params := []interface{}{
		priorityFeeRequest{
			AccountKeys: keys,
			Options:     priorityFeeOptions{Recommended: true},
		},
	}

	return call(ctx, c, methodGetPriorityFeeEstimate, func(ctx context.Context) (uint64, error) {
		var raw json.RawMessage
		if err := c.rpc.RPCCallForInto(ctx, &raw, methodGetPriorityFeeEstimate, params); err != nil {
			return 0, err
		}
		return parseFeeEstimate(raw)
	})
}

func parseFeeEstimate(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("%w: empty result", ErrMalformedFeeEstimate)
	}
	var resp priorityFeeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedFeeEstimate, err)
	}
	if resp.PriorityFeeEstimate == nil {
		return 0, fmt.Errorf("%w: priorityFeeEstimate missing", ErrMalformedFeeEstimate)
	}
	fee := *resp.PriorityFeeEstimate
	if math.IsNaN(fee) || math.IsInf(fee, 0) || fee < 0 || fee >= math.MaxUint64 {
		return 0, fmt.Errorf("%w: out of range value %v", ErrMalformedFeeEstimate, fee)
	}
	return uint64(math.Ceil(fee)), nil
}

// call выполняет op с таймаутом на попытку, лимитом запросов и ограниченным числом повторов.
// Повторяются только транспортные ошибки (см. rpc.IsRetryableError), критические не повторяются никогда.
func call[T any](ctx context.Context, c *Client, method string, op func(ctx context.Context) (T, error)) (T, error) {
	backoffPolicy := backoff.NewExponentialBackOff()
	backoffPolicy.InitialInterval = c.cfg.RetryDelay
	backoffPolicy.MaxInterval = c.cfg.RetryDelay * 4

	notify := func(err error, duration time.Duration) {
		c.metrics.RecordRPCRetry(method)
		c.logger.Warn("Retrying RPC call",
			zap.String("method", method),
			zap.Duration("backoff", duration),
			zap.Error(err))
	}

	operation := func() (T, error) {
		c.limiter.Take()

		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		start := time.Now()
		out, err := op(callCtx)
		c.metrics.RecordRPCCall(method, err, time.Since(start))
		if err == nil {
			return out, nil
		}

		wrapped := rpc.NewError(err, c.cfg.Endpoint, method)
		if rpc.IsCriticalError(wrapped) {
			c.logger.Error("Critical RPC error, not retrying",
				zap.String("method", method),
				zap.Error(wrapped))
			return out, backoff.Permanent(wrapped)
		}
		if errors.Is(err, ErrMalformedFeeEstimate) || ctx.Err() != nil || !rpc.IsRetryableError(wrapped) {
			return out, backoff.Permanent(wrapped)
		}
		return out, wrapped
	}

	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoffPolicy),
		backoff.WithMaxTries(uint(c.cfg.Retries+1)),
		backoff.WithNotify(notify))
	if err != nil {
		c.logger.Debug("RPC call failed", zap.String("method", method), zap.Error(err))
		var zero T
		return zero, err
	}
	return result, nil
}

// Гарантируем, что Client реализует интерфейс blockchain.Client.
var _ blockchain.Client = (*Client)(nil)
