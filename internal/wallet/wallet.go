// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"
)

var ErrEmptySecret = errors.New("custody secret is empty")

// Custodian описывает, что сборщику транзакций нужно от кастодиального ключа:
// адрес и возможность подписать сообщение. Сам приватный ключ наружу не отдаётся.
type Custodian interface {
	PublicKey() solana.PublicKey
	SignMessage(message []byte) (solana.Signature, error)
}

// Wallet представляет кастодиальный кошелёк сервиса. После создания не изменяется
// и может использоваться из нескольких горутин одновременно.
type Wallet struct {
	privateKey solana.PrivateKey
	publicKey  solana.PublicKey
}

// NewWallet создаёт кошелёк из base58-encoded приватного ключа (64 байта).
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	if privateKeyBase58 == "" {
		return nil, ErrEmptySecret
	}
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	return fromPrivateKey(solana.PrivateKey(privateKeyBytes))
}

// LoadWalletFile загружает кошелёк из JSON-файла формата solana-keygen ([u8; 64]).
func LoadWalletFile(path string) (*Wallet, error) {
	privateKey, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair file: %w", err)
	}
	return fromPrivateKey(privateKey)
}

// Load выбирает источник ключа: секрет из окружения приоритетнее файла.
func Load(secret, keypairPath string) (*Wallet, error) {
	if secret != "" {
		return NewWallet(secret)
	}
	if keypairPath != "" {
		return LoadWalletFile(keypairPath)
	}
	return nil, ErrEmptySecret
}

func fromPrivateKey(privateKey solana.PrivateKey) (*Wallet, error) {
	if len(privateKey) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKey))
	}
	return &Wallet{
		privateKey: privateKey,
		publicKey:  privateKey.PublicKey(),
	}, nil
}

// PublicKey возвращает адрес кастодиального кошелька.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.publicKey
}

// SignMessage подписывает сериализованное сообщение транзакции.
func (w *Wallet) SignMessage(message []byte) (solana.Signature, error) {
	if len(message) == 0 {
		return solana.Signature{}, errors.New("empty message")
	}
	sig, err := w.privateKey.Sign(message)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign message: %w", err)
	}
	return sig, nil
}

// AssociatedTokenAccount возвращает адрес ассоциированного токен-аккаунта (ATA) кошелька для mint.
// Вычисление детерминированное и не требует сети.
func (w *Wallet) AssociatedTokenAccount(mint solana.PublicKey) (solana.PublicKey, error) {
	return DeriveATA(w.publicKey, mint)
}

// DeriveATA вычисляет ATA для произвольного владельца.
func DeriveATA(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account for %s: %w", owner, err)
	}
	return ata, nil
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.publicKey.String()
}

// GoString не даёт %#v напечатать приватный ключ.
func (w *Wallet) GoString() string {
	return "wallet.Wallet{" + w.publicKey.String() + "}"
}

// Field возвращает zap-поле с публичным ключом кастодиального кошелька.
func (w *Wallet) Field() zap.Field {
	return zap.Stringer("custody_wallet", w.publicKey)
}
