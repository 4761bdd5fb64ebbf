// internal/blockchain/types.go
package blockchain

import (
	"github.com/gagliardetto/solana-go"
)

// Checkpoint ссылается на недавнее состояние леджера и ограничивает срок жизни транзакции.
type Checkpoint struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
	// Slot, в контексте которого был получен blockhash
	Slot uint64
}
