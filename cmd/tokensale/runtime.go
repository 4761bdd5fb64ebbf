// cmd/tokensale/runtime.go
package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc"
	"github.com/rovshanmuradov/token-sale/internal/config"
	"github.com/rovshanmuradov/token-sale/internal/sale"
	"github.com/rovshanmuradov/token-sale/internal/types"
	"github.com/rovshanmuradov/token-sale/internal/utils/logger"
	"github.com/rovshanmuradov/token-sale/internal/utils/metrics"
	"github.com/rovshanmuradov/token-sale/internal/wallet"
)

// runtime содержит то, что нужно любой команде, работающей с конфигурацией.
type runtime struct {
	cfg *config.Config
	log *logger.Logger
}

// loadRuntime читает конфигурацию и поднимает логгер.
// oneShot-команды пишут логи только в stderr, stdout остаётся для результата.
func loadRuntime(c *cli.Context, oneShot bool) (*runtime, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.Bool("debug") {
		cfg.DebugLogging = true
	}

	logCfg := logger.DefaultConfig()
	logCfg.LogFile = cfg.LogFile
	logCfg.Development = cfg.DebugLogging
	logCfg.ConsoleOnly = oneShot
	logCfg.Stderr = oneShot

	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &runtime{cfg: cfg, log: log}, nil
}

func (rt *runtime) close() {
	_ = rt.log.Sync()
}

func (rt *runtime) custody() (*wallet.Wallet, error) {
	custody, err := wallet.Load(rt.cfg.CustodySecret, rt.cfg.CustodyKeypairPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load custody key: %w", err)
	}
	return custody, nil
}

// assembler собирает граф зависимостей: кастодиальный ключ, RPC-клиент, сборщик.
func (rt *runtime) assembler(collector *metrics.Collector) (*sale.Assembler, error) {
	custody, err := rt.custody()
	if err != nil {
		return nil, err
	}

	client := solbc.NewClient(solbc.Config{
		Endpoint:   rt.cfg.RPCURL,
		Commitment: rt.cfg.CommitmentType(),
		Timeout:    rt.cfg.RPCTimeout,
		Retries:    rt.cfg.RPCRetries,
		RetryDelay: rt.cfg.RPCRetryDelay,
		RateLimit:  rt.cfg.RPCRateLimit,
	}, collector, rt.log.Logger)

	assembler, err := sale.NewAssembler(client, client, custody, sale.Config{
		Token: sale.TokenDescriptor{
			Mint:     rt.cfg.TokenMintKey(),
			Decimals: rt.cfg.TokenDecimals,
		},
		Terms: sale.Terms{
			FeeLamports: rt.cfg.FeeLamports,
			TokenAmount: rt.cfg.TokenAmount,
		},
		Priority: types.PriorityConfig{
			MinPriorityFee: rt.cfg.PriorityFeeMin,
			MaxPriorityFee: rt.cfg.PriorityFeeMax,
		},
	}, collector, rt.log.WithComponent("sale"))
	if err != nil {
		return nil, fmt.Errorf("failed to create assembler: %w", err)
	}

	rt.log.Info("Assembler ready",
		custody.Field(),
		zap.Stringer("custody_token_account", assembler.CustodyTokenAccount()),
		zap.String("token_mint", rt.cfg.TokenMint),
		zap.Uint8("token_decimals", rt.cfg.TokenDecimals),
		zap.Uint64("fee_lamports", rt.cfg.FeeLamports),
		zap.Uint64("token_amount", rt.cfg.TokenAmount))

	return assembler, nil
}
