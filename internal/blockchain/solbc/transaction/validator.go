// internal/blockchain/solbc/transaction/validator.go
package transaction

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

type Validator struct {
	logger *zap.Logger
}

func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		logger: logger.Named("tx-validator"),
	}
}

// ValidateTransaction проверяет структуру транзакции, но не сами подписи.
func (v *Validator) ValidateTransaction(tx *solana.Transaction) error {
	if err := v.ValidateSignatures(tx); err != nil {
		return err
	}

	if err := v.ValidateBlockhash(tx); err != nil {
		return err
	}

	if err := v.ValidateInstructions(tx); err != nil {
		return err
	}

	return nil
}

// ValidateSignatures проверяет, что слотов подписей ровно столько, сколько требует заголовок.
func (v *Validator) ValidateSignatures(tx *solana.Transaction) error {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if required == 0 || required > len(tx.Message.AccountKeys) {
		return fmt.Errorf("%w: header requires %d signatures", ErrInvalidSignature, required)
	}
	if len(tx.Signatures) != required {
		return fmt.Errorf("%w: %d signature slots, %d required", ErrInvalidSignature, len(tx.Signatures), required)
	}
	return nil
}

func (v *Validator) ValidateBlockhash(tx *solana.Transaction) error {
	if tx.Message.RecentBlockhash == (solana.Hash{}) {
		return ErrInvalidBlockhash
	}
	return nil
}

func (v *Validator) ValidateInstructions(tx *solana.Transaction) error {
	if len(tx.Message.Instructions) == 0 {
		return ErrInvalidInstruction
	}
	for i, ix := range tx.Message.Instructions {
		if _, err := ProgramID(tx, i); err != nil {
			return err
		}
		for _, acc := range ix.Accounts {
			if int(acc) >= len(tx.Message.AccountKeys) {
				return fmt.Errorf("%w: instruction %d references account %d", ErrInvalidInstruction, i, acc)
			}
		}
	}
	return nil
}

// SignerStatuses возвращает состояние каждого слота подписи.
func (v *Validator) SignerStatuses(tx *solana.Transaction) ([]SignerStatus, error) {
	if err := v.ValidateSignatures(tx); err != nil {
		return nil, err
	}
	msg, err := tx.Message.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}

	signers := RequiredSigners(tx)
	statuses := make([]SignerStatus, len(signers))
	for i, key := range signers {
		sig := tx.Signatures[i]
		signed := sig != (solana.Signature{})
		statuses[i] = SignerStatus{
			PublicKey: key,
			Signed:    signed,
			Valid:     signed && sig.Verify(key, msg),
		}
	}
	return statuses, nil
}

// VerifySigner проверяет, что key является обязательным подписантом и его подпись валидна.
func (v *Validator) VerifySigner(tx *solana.Transaction, key solana.PublicKey) error {
	statuses, err := v.SignerStatuses(tx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		if !st.PublicKey.Equals(key) {
			continue
		}
		switch {
		case !st.Signed:
			return fmt.Errorf("%w: %s", ErrMissingSignature, key)
		case !st.Valid:
			return fmt.Errorf("%w: %s", ErrInvalidSignature, key)
		}
		return nil
	}
	return fmt.Errorf("%w: %s", ErrNotSigner, key)
}

// MissingSigners возвращает подписантов без валидной подписи.
func (v *Validator) MissingSigners(tx *solana.Transaction) ([]solana.PublicKey, error) {
	statuses, err := v.SignerStatuses(tx)
	if err != nil {
		return nil, err
	}
	var missing []solana.PublicKey
	for _, st := range statuses {
		if !st.Valid {
			missing = append(missing, st.PublicKey)
		}
	}
	return missing, nil
}

// RequireAllSignatures выполняет полную проверку перед отправкой в сеть:
// каждая обязательная подпись присутствует и валидна.
func (v *Validator) RequireAllSignatures(tx *solana.Transaction) error {
	if err := v.ValidateTransaction(tx); err != nil {
		return err
	}
	missing, err := v.MissingSigners(tx)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		keys := make([]string, len(missing))
		for i, k := range missing {
			keys[i] = k.String()
		}
		v.logger.Debug("Transaction is not fully signed", zap.Strings("missing", keys))
		return fmt.Errorf("%w: %s", ErrMissingSignature, strings.Join(keys, ", "))
	}
	return nil
}
