// internal/blockchain/blockchain.go
package blockchain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// LedgerClient читает состояние леджера, необходимое для сборки транзакции.
type LedgerClient interface {
	// AccountExists сообщает, существует ли аккаунт. Отсутствие аккаунта не является ошибкой.
	AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error)
	// GetLatestCheckpoint возвращает свежий blockhash. Результат никогда не кэшируется.
	GetLatestCheckpoint(ctx context.Context) (*Checkpoint, error)
}

// FeeEstimator оценивает цену compute unit (micro-lamports) для набора аккаунтов транзакции.
type FeeEstimator interface {
	EstimatePriorityFee(ctx context.Context, accounts []solana.PublicKey) (uint64, error)
}

// Client объединяет оба интерфейса: на практике они обслуживаются одним RPC-эндпоинтом.
type Client interface {
	LedgerClient
	FeeEstimator
}
