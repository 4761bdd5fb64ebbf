// internal/blockchain/solbc/transaction/builder.go
package transaction

import (
	"encoding/base64"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Builder помогает конструировать транзакции. Инструкции добавляются в порядке вызова
// и после добавления не меняются.
type Builder struct {
	instructions []solana.Instruction
	payer        solana.PublicKey
}

// NewBuilder создает новый билдер транзакций с указанным плательщиком комиссии.
func NewBuilder(payer solana.PublicKey) *Builder {
	return &Builder{payer: payer}
}

// AddInstruction добавляет инструкцию в транзакцию
func (b *Builder) AddInstruction(instruction solana.Instruction) *Builder {
	b.instructions = append(b.instructions, instruction)
	return b
}

// Instructions возвращает копию текущего списка инструкций.
func (b *Builder) Instructions() []solana.Instruction {
	out := make([]solana.Instruction, len(b.instructions))
	copy(out, b.instructions)
	return out
}

// Compile собирает неподписанную транзакцию с указанным blockhash.
// Слоты подписей заполнены нулями, по одному на каждого обязательного подписанта.
// Плательщиком может быть любой ключ, включая нулевой адрес 1111...1111.
func (b *Builder) Compile(blockhash solana.Hash) (*solana.Transaction, error) {
	if len(b.instructions) == 0 {
		return nil, ErrInvalidInstruction
	}
	if blockhash == (solana.Hash{}) {
		return nil, ErrInvalidBlockhash
	}

	tx, err := solana.NewTransaction(
		b.Instructions(),
		blockhash,
		solana.TransactionPayer(b.payer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	return tx, nil
}

// PartialSign подписывает транзакцию одним ключом, заполняя только его слот.
// Остальные слоты остаются нулевыми до подписи на стороне клиента.
func PartialSign(tx *solana.Transaction, signer MessageSigner) error {
	idx, err := signerIndex(tx, signer.PublicKey())
	if err != nil {
		return err
	}

	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	sig, err := signer.SignMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to sign message: %w", err)
	}

	if len(tx.Signatures) != int(tx.Message.Header.NumRequiredSignatures) {
		tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)
	}
	tx.Signatures[idx] = sig
	return nil
}

// Encode сериализует транзакцию в wire-формат и base64 (как ожидают кошельки).
// Полный набор подписей не требуется.
func Encode(tx *solana.Transaction) ([]byte, string, error) {
	raw, err := tx.MarshalBinary()
	if err != nil {
		return nil, "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return raw, base64.StdEncoding.EncodeToString(raw), nil
}

// Decode разбирает base64-представление транзакции.
func Decode(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64: %w", err)
	}
	return DecodeRaw(raw)
}

// DecodeRaw разбирает транзакцию из wire-формата.
func DecodeRaw(raw []byte) (*solana.Transaction, error) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx, nil
}

// ProgramID возвращает программу, которую вызывает i-я инструкция.
func ProgramID(tx *solana.Transaction, i int) (solana.PublicKey, error) {
	if i < 0 || i >= len(tx.Message.Instructions) {
		return solana.PublicKey{}, fmt.Errorf("%w: index %d out of range", ErrInvalidInstruction, i)
	}
	idx := int(tx.Message.Instructions[i].ProgramIDIndex)
	if idx >= len(tx.Message.AccountKeys) {
		return solana.PublicKey{}, fmt.Errorf("%w: program index %d out of range", ErrInvalidInstruction, idx)
	}
	return tx.Message.AccountKeys[idx], nil
}

// RequiredSigners возвращает ключи, чьи подписи обязательны, в порядке слотов.
func RequiredSigners(tx *solana.Transaction) []solana.PublicKey {
	n := int(tx.Message.Header.NumRequiredSignatures)
	if n > len(tx.Message.AccountKeys) {
		n = len(tx.Message.AccountKeys)
	}
	out := make([]solana.PublicKey, n)
	copy(out, tx.Message.AccountKeys[:n])
	return out
}

func signerIndex(tx *solana.Transaction, key solana.PublicKey) (int, error) {
	for i, signer := range RequiredSigners(tx) {
		if signer.Equals(key) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %s", ErrNotSigner, key)
}
