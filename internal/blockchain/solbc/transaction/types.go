// internal/blockchain/solbc/transaction/types.go
package transaction

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	ErrInvalidSignature   = errors.New("invalid transaction signature")
	ErrInvalidBlockhash   = errors.New("invalid blockhash")
	ErrInvalidInstruction = errors.New("invalid instruction")
	ErrMissingSignature   = errors.New("missing required signature")
	ErrNotSigner          = errors.New("key is not a required signer")
)

// MessageSigner подписывает скомпилированное сообщение транзакции, не раскрывая ключ.
type MessageSigner interface {
	PublicKey() solana.PublicKey
	SignMessage(message []byte) (solana.Signature, error)
}

// SignerStatus описывает состояние одного слота подписи.
type SignerStatus struct {
	PublicKey solana.PublicKey
	Signed    bool
	Valid     bool
}
