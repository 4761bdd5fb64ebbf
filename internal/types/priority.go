// internal/types/priority.go
package types

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"go.uber.org/zap"
)

// PriorityConfig ограничивает цену compute unit (micro-lamports), которую платит покупатель.
// Нулевые значения означают отсутствие ограничения.
type PriorityConfig struct {
	MinPriorityFee uint64 // нижняя граница
	MaxPriorityFee uint64 // верхняя граница, 0 значит без потолка
}

// Validate проверяет согласованность границ.
func (c PriorityConfig) Validate() error {
	if c.MaxPriorityFee > 0 && c.MinPriorityFee > c.MaxPriorityFee {
		return fmt.Errorf("priority fee floor %d exceeds cap %d", c.MinPriorityFee, c.MaxPriorityFee)
	}
	return nil
}

type PriorityManager struct {
	config PriorityConfig
	logger *zap.Logger
}

func NewPriorityManager(config PriorityConfig, logger *zap.Logger) (*PriorityManager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PriorityManager{
		config: config,
		logger: logger.Named("priority"),
	}, nil
}

// Apply приводит оценку сети к настроенным границам.
func (pm *PriorityManager) Apply(estimate uint64) uint64 {
	fee := estimate
	if fee < pm.config.MinPriorityFee {
		fee = pm.config.MinPriorityFee
	}
	if pm.config.MaxPriorityFee > 0 && fee > pm.config.MaxPriorityFee {
		fee = pm.config.MaxPriorityFee
	}
	if fee != estimate {
		pm.logger.Debug("Priority fee adjusted",
			zap.Uint64("estimate", estimate),
			zap.Uint64("applied", fee))
	}
	return fee
}

// CreatePriorityInstruction строит инструкцию SetComputeUnitPrice.
// Инструкция добавляется всегда, даже при нулевой цене, чтобы форма транзакции была постоянной.
func (pm *PriorityManager) CreatePriorityInstruction(microLamports uint64) solana.Instruction {
	return computebudget.NewSetComputeUnitPriceInstruction(microLamports).Build()
}
