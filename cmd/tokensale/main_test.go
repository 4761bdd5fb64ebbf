package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc/transaction"
	"github.com/rovshanmuradov/token-sale/internal/wallet"
)

const testMint = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out, errOut bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"tokensale"}, args...))
	return out.String(), err
}

// partiallySigned возвращает транзакцию, где подписан только второй слот.
func partiallySigned(t *testing.T) (*solana.Transaction, solana.PrivateKey, *wallet.Wallet) {
	t.Helper()
	buyer := solana.NewWallet().PrivateKey
	custody, err := wallet.NewWallet(solana.NewWallet().PrivateKey.String())
	require.NoError(t, err)

	b := transaction.NewBuilder(buyer.PublicKey())
	b.AddInstruction(system.NewTransferInstruction(1_000, buyer.PublicKey(), custody.PublicKey()).Build())
	b.AddInstruction(system.NewTransferInstruction(1, custody.PublicKey(), buyer.PublicKey()).Build())
	tx, err := b.Compile(solana.HashFromBytes(solana.NewWallet().PublicKey().Bytes()))
	require.NoError(t, err)
	require.NoError(t, transaction.PartialSign(tx, custody))
	return tx, buyer, custody
}

func TestInspectReport(t *testing.T) {
	tx, buyer, custody := partiallySigned(t)

	r, err := inspect(tx, transaction.NewValidator(zaptest.NewLogger(t)))
	require.NoError(t, err)

	assert.Equal(t, buyer.PublicKey(), r.FeePayer)
	assert.Equal(t, tx.Message.RecentBlockhash, r.Blockhash)
	require.Len(t, r.Instructions, 2)
	assert.Equal(t, "System", r.Instructions[0].Program)
	assert.Equal(t, 12, r.Instructions[0].DataLen)
	require.Len(t, r.Signers, 2)
	assert.False(t, r.Signers[0].Signed)
	assert.True(t, r.Signers[1].Valid)
	assert.Equal(t, custody.PublicKey(), r.Signers[1].PublicKey)
	assert.False(t, r.Complete)

	rendered := renderReport(r)
	assert.Contains(t, rendered, buyer.PublicKey().String())
	assert.Contains(t, rendered, "pending")
	assert.Contains(t, rendered, "valid")
	assert.Contains(t, rendered, "Awaiting buyer signature")
}

func TestInspectCompleteTransaction(t *testing.T) {
	tx, buyer, _ := partiallySigned(t)
	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	tx.Signatures[0], err = buyer.Sign(msg)
	require.NoError(t, err)

	r, err := inspect(tx, transaction.NewValidator(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.True(t, r.Complete)
	assert.Contains(t, renderReport(r), "Fully signed")
}

func TestProgramNameFallsBackToAddress(t *testing.T) {
	unknown := solana.NewWallet().PublicKey()
	assert.Equal(t, unknown.String(), programName(unknown))
	assert.Equal(t, "Token", programName(solana.TokenProgramID))
}

func TestInspectCommand(t *testing.T) {
	tx, _, _ := partiallySigned(t)
	_, encoded, err := transaction.Encode(tx)
	require.NoError(t, err)

	out, err := runApp(t, "", "inspect", "--tx", encoded)
	require.NoError(t, err)
	assert.Contains(t, out, "Instructions")

	out, err = runApp(t, encoded+"\n", "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "Signatures")

	_, err = runApp(t, "", "inspect", "--tx", encoded, "--require-complete")
	assert.ErrorIs(t, err, ErrIncompleteSignatures)

	_, err = runApp(t, "", "inspect", "--tx", "not base64!")
	assert.Error(t, err)
}

func TestCustodyCommandNeverPrintsSecret(t *testing.T) {
	secret := solana.NewWallet().PrivateKey
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	content := `{"rpc_url": "https://rpc.example.com", "custody_secret": "` + secret.String() + `", "token_mint": "` + testMint + `"}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0600))

	out, err := runApp(t, "", "--config", cfgPath, "custody")
	require.NoError(t, err)

	ata, err := wallet.DeriveATA(secret.PublicKey(), solana.MustPublicKeyFromBase58(testMint))
	require.NoError(t, err)
	assert.Contains(t, out, secret.PublicKey().String())
	assert.Contains(t, out, ata.String())
	assert.NotContains(t, out, secret.String())
}

func TestVersionCommand(t *testing.T) {
	out, err := runApp(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version: dev")
}
