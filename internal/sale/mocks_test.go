// internal/sale/mocks_test.go
package sale

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/token-sale/internal/blockchain"
	"github.com/rovshanmuradov/token-sale/internal/wallet"
)

// MockLedger реализует blockchain.LedgerClient
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	args := m.Called(ctx, pubkey)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedger) GetLatestCheckpoint(ctx context.Context) (*blockchain.Checkpoint, error) {
	args := m.Called(ctx)
	cp, _ := args.Get(0).(*blockchain.Checkpoint)
	return cp, args.Error(1)
}

// MockFees реализует blockchain.FeeEstimator
type MockFees struct {
	mock.Mock
}

func (m *MockFees) EstimatePriorityFee(ctx context.Context, accounts []solana.PublicKey) (uint64, error) {
	args := m.Called(ctx, accounts)
	return args.Get(0).(uint64), args.Error(1)
}

// countingCustodian считает обращения к ключу и может имитировать отказ хранилища.
type countingCustodian struct {
	inner wallet.Custodian
	fail  bool
	calls atomic.Int32
}

func (c *countingCustodian) PublicKey() solana.PublicKey {
	return c.inner.PublicKey()
}

func (c *countingCustodian) SignMessage(message []byte) (solana.Signature, error) {
	c.calls.Add(1)
	if c.fail {
		return solana.Signature{}, errors.New("key store unavailable")
	}
	return c.inner.SignMessage(message)
}

// MockedCustody создает тестовый кастодиальный кошелек
func MockedCustody(t *testing.T) *countingCustodian {
	t.Helper()
	w, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)
	return &countingCustodian{inner: w}
}

func testCheckpoint(height uint64) *blockchain.Checkpoint {
	return &blockchain.Checkpoint{
		Blockhash:            solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes()),
		LastValidBlockHeight: height,
		Slot:                 height - 150,
	}
}
