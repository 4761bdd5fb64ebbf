// internal/sale/assembler.go
package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-sale/internal/blockchain"
	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/token-sale/internal/types"
	"github.com/rovshanmuradov/token-sale/internal/utils/metrics"
	"github.com/rovshanmuradov/token-sale/internal/wallet"
)

// TokenDescriptor describes the token on sale.
type TokenDescriptor struct {
	Mint     solana.PublicKey
	Decimals uint8
}

// Terms задают фиксированные условия одной покупки в минимальных единицах.
type Terms struct {
	FeeLamports uint64
	TokenAmount uint64
}

// Config задаётся один раз при старте процесса и не меняется.
type Config struct {
	Token    TokenDescriptor
	Terms    Terms
	Priority types.PriorityConfig
}

// Assembled is a successful result: the transaction carries only the custody signature.
type Assembled struct {
	Transaction *solana.Transaction
	// Raw в wire-формате, Base64 то же самое для передачи клиенту
	Raw    []byte
	Base64 string

	Checkpoint            blockchain.Checkpoint
	Instructions          []InstructionKind
	PriorityFee           uint64
	RequesterTokenAccount solana.PublicKey
	CreatesTokenAccount   bool
}

// Assembler собирает транзакции покупки. Состояния между вызовами не хранит,
// безопасен для параллельного использования.
type Assembler struct {
	ledger     blockchain.LedgerClient
	fees       blockchain.FeeEstimator
	custody    wallet.Custodian
	custodyATA solana.PublicKey
	token      TokenDescriptor
	terms      Terms
	priority   *types.PriorityManager
	validator  *transaction.Validator
	metrics    *metrics.Collector
	logger     *zap.Logger
}

// NewAssembler проверяет конфигурацию и вычисляет кастодиальный токен-аккаунт.
// Ошибки конфигурации возвращаются как *AssemblyError с KindInvalidConfiguration.
func NewAssembler(
	ledger blockchain.LedgerClient,
	fees blockchain.FeeEstimator,
	custody wallet.Custodian,
	cfg Config,
	collector *metrics.Collector,
	logger *zap.Logger,
) (*Assembler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch {
	case ledger == nil || fees == nil:
		return nil, newError(KindInvalidConfiguration, errors.New("ledger client and fee estimator are required"))
	case custody == nil:
		return nil, newError(KindInvalidConfiguration, errors.New("custody key is required"))
	case cfg.Token.Mint.IsZero():
		return nil, newError(KindInvalidConfiguration, errors.New("token mint is not set"))
	case cfg.Terms.TokenAmount == 0:
		return nil, newError(KindInvalidConfiguration, errors.New("token amount must be positive"))
	}

	custodyATA, err := wallet.DeriveATA(custody.PublicKey(), cfg.Token.Mint)
	if err != nil {
		return nil, newError(KindInvalidConfiguration, err)
	}

	priority, err := types.NewPriorityManager(cfg.Priority, logger)
	if err != nil {
		return nil, newError(KindInvalidConfiguration, err)
	}

	return &Assembler{
		ledger:     ledger,
		fees:       fees,
		custody:    custody,
		custodyATA: custodyATA,
		token:      cfg.Token,
		terms:      cfg.Terms,
		priority:   priority,
		validator:  transaction.NewValidator(logger),
		metrics:    collector,
		logger:     logger.Named("assembler"),
	}, nil
}

// CustodyTokenAccount возвращает ATA кастодиального кошелька для продаваемого токена.
func (a *Assembler) CustodyTokenAccount() solana.PublicKey {
	return a.custodyATA
}

// Assemble собирает транзакцию покупки для requesterAddress и подписывает её кастодиальным ключом.
// Порядок инструкций: [создание ATA] → оплата → перевод токена → цена compute unit.
// При любой ошибке возвращается *AssemblyError и никакого частичного результата.
func (a *Assembler) Assemble(ctx context.Context, requesterAddress string) (result *Assembled, err error) {
	start := time.Now()
	defer func() {
		a.record(err, time.Since(start))
	}()

	requester, err := solana.PublicKeyFromBase58(requesterAddress)
	if err != nil {
		return nil, newError(KindInvalidAddress, err)
	}
	// если плательщик сам кастодиальный кошелёк, сервис подписал бы транзакцию полностью
	if requester.Equals(a.custody.PublicKey()) {
		return nil, newError(KindInvalidAddress, errors.New("requester must differ from custody wallet"))
	}

	log := a.logger.With(zap.Stringer("requester", requester))

	requesterATA, err := wallet.DeriveATA(requester, a.token.Mint)
	if err != nil {
		return nil, newError(KindInvalidConfiguration, err)
	}

	builder := transaction.NewBuilder(requester)
	kinds := make([]InstructionKind, 0, 4)

	exists, err := a.ledger.AccountExists(ctx, requesterATA)
	if err != nil {
		return nil, newError(KindAccountLookupFailed, fmt.Errorf("token account %s: %w", requesterATA, err))
	}
	if !exists {
		builder.AddInstruction(newCreateATAInstruction(requester, requesterATA, requester, a.token.Mint))
		kinds = append(kinds, InstructionCreateTokenAccount)
	}

	builder.AddInstruction(newFeeTransferInstruction(a.terms.FeeLamports, requester, a.custody.PublicKey()))
	kinds = append(kinds, InstructionFeeTransfer)

	builder.AddInstruction(newTokenTransferInstruction(
		a.terms.TokenAmount,
		a.token.Decimals,
		a.custodyATA,
		a.token.Mint,
		requesterATA,
		a.custody.PublicKey(),
	))
	kinds = append(kinds, InstructionTokenTransfer)

	checkpoint, err := a.ledger.GetLatestCheckpoint(ctx)
	if err != nil {
		return nil, newError(KindCheckpointFetchFailed, err)
	}
	if checkpoint == nil {
		return nil, newError(KindCheckpointFetchFailed, errors.New("empty checkpoint"))
	}

	// аккаунты для оценки берутся из сообщения без инструкции цены
	draft, err := builder.Compile(checkpoint.Blockhash)
	if err != nil {
		return nil, newError(KindSerializationFailed, err)
	}

	estimate, err := a.fees.EstimatePriorityFee(ctx, draft.Message.AccountKeys)
	if err != nil {
		return nil, newError(KindFeeEstimationFailed, err)
	}
	priorityFee := a.priority.Apply(estimate)

	builder.AddInstruction(a.priority.CreatePriorityInstruction(priorityFee))
	kinds = append(kinds, InstructionSetComputePrice)

	tx, err := builder.Compile(checkpoint.Blockhash)
	if err != nil {
		return nil, newError(KindSerializationFailed, err)
	}

	if err := transaction.PartialSign(tx, a.custody); err != nil {
		return nil, newError(KindSigningFailed, err)
	}
	if err := a.validator.VerifySigner(tx, a.custody.PublicKey()); err != nil {
		return nil, newError(KindSigningFailed, err)
	}

	raw, encoded, err := transaction.Encode(tx)
	if err != nil {
		return nil, newError(KindSerializationFailed, err)
	}

	log.Debug("Purchase transaction assembled",
		zap.Stringer("blockhash", checkpoint.Blockhash),
		zap.Uint64("last_valid_block_height", checkpoint.LastValidBlockHeight),
		zap.Bool("creates_token_account", !exists),
		zap.Uint64("priority_fee_estimate", estimate),
		zap.Uint64("priority_fee", priorityFee),
		zap.Int("size", len(raw)))

	a.metrics.RecordPriorityFee(priorityFee)
	if !exists {
		a.metrics.RecordAccountCreation()
	}

	return &Assembled{
		Transaction:           tx,
		Raw:                   raw,
		Base64:                encoded,
		Checkpoint:            *checkpoint,
		Instructions:          kinds,
		PriorityFee:           priorityFee,
		RequesterTokenAccount: requesterATA,
		CreatesTokenAccount:   !exists,
	}, nil
}

func (a *Assembler) record(err error, duration time.Duration) {
	if err == nil {
		a.metrics.RecordAssembly("success", "none", duration)
		return
	}
	kind := KindOf(err)
	a.metrics.RecordAssembly(kind.String(), kind.Class().String(), duration)
}
