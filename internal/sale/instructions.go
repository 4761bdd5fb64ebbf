// internal/sale/instructions.go
package sale

import (
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// InstructionKind обозначает роль инструкции в транзакции покупки.
type InstructionKind string

const (
	InstructionCreateTokenAccount InstructionKind = "create_token_account"
	InstructionFeeTransfer        InstructionKind = "fee_transfer"
	InstructionTokenTransfer      InstructionKind = "token_transfer"
	InstructionSetComputePrice    InstructionKind = "set_compute_price"
)

// CreateIdempotent в программе associated token account.
// Не падает, если аккаунт уже создан параллельной транзакцией.
const createIdempotentDiscriminator byte = 1

// newCreateATAInstruction создаёт ATA владельца owner для mint, ренту платит payer.
func newCreateATAInstruction(payer, ata, owner, mint solana.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		[]*solana.AccountMeta{
			{PublicKey: payer, IsWritable: true, IsSigner: true},
			{PublicKey: ata, IsWritable: true, IsSigner: false},
			{PublicKey: owner, IsWritable: false, IsSigner: false},
			{PublicKey: mint, IsWritable: false, IsSigner: false},
			{PublicKey: solana.SystemProgramID, IsWritable: false, IsSigner: false},
			{PublicKey: solana.TokenProgramID, IsWritable: false, IsSigner: false},
		},
		[]byte{createIdempotentDiscriminator},
	)
}

// newFeeTransferInstruction переводит lamports от покупателя на кастодиальный кошелёк.
func newFeeTransferInstruction(lamports uint64, from, to solana.PublicKey) solana.Instruction {
	return system.NewTransferInstruction(lamports, from, to).Build()
}

// newTokenTransferInstruction: TransferChecked из кастодиального ATA в ATA покупателя.
// decimals проверяются программой токена против живого mint.
func newTokenTransferInstruction(amount uint64, decimals uint8, source, mint, destination, authority solana.PublicKey) solana.Instruction {
	return token.NewTransferCheckedInstruction(
		amount,
		decimals,
		source,
		mint,
		destination,
		authority,
		nil,
	).Build()
}
