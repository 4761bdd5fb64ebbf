// cmd/tokensale/inspect.go
package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc/transaction"
)

var ErrIncompleteSignatures = errors.New("transaction is not fully signed")

var programNames = map[solana.PublicKey]string{
	solana.SystemProgramID:                    "System",
	solana.TokenProgramID:                     "Token",
	solana.SPLAssociatedTokenAccountProgramID: "AssociatedToken",
	computebudget.ProgramID:                   "ComputeBudget",
}

// instructionInfo описывает одну инструкцию в отчёте.
type instructionInfo struct {
	Program  string
	Accounts int
	DataLen  int
}

// report содержит разбор транзакции для вывода в терминал.
type report struct {
	FeePayer     solana.PublicKey
	Blockhash    solana.Hash
	Instructions []instructionInfo
	Signers      []transaction.SignerStatus
	Complete     bool
}

func programName(id solana.PublicKey) string {
	if name, ok := programNames[id]; ok {
		return name
	}
	return id.String()
}

func inspect(tx *solana.Transaction, validator *transaction.Validator) (*report, error) {
	if err := validator.ValidateTransaction(tx); err != nil {
		return nil, err
	}
	statuses, err := validator.SignerStatuses(tx)
	if err != nil {
		return nil, err
	}

	r := &report{
		FeePayer:  tx.Message.AccountKeys[0],
		Blockhash: tx.Message.RecentBlockhash,
		Signers:   statuses,
		Complete:  validator.RequireAllSignatures(tx) == nil,
	}
	for i, ix := range tx.Message.Instructions {
		id, err := transaction.ProgramID(tx, i)
		if err != nil {
			return nil, err
		}
		r.Instructions = append(r.Instructions, instructionInfo{
			Program:  programName(id),
			Accounts: len(ix.Accounts),
			DataLen:  len(ix.Data),
		})
	}
	return r, nil
}

func renderReport(r *report) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Transaction"))
	b.WriteString("\n")
	b.WriteString(row("Fee payer", r.FeePayer.String()))
	b.WriteString("\n")
	b.WriteString(row("Blockhash", r.Blockhash.String()))
	b.WriteString("\n\n")

	b.WriteString(titleStyle.Render("Instructions"))
	b.WriteString("\n")
	for i, ix := range r.Instructions {
		b.WriteString(row(fmt.Sprintf("#%d", i), fmt.Sprintf("%s (accounts: %d, data: %d bytes)", ix.Program, ix.Accounts, ix.DataLen)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(titleStyle.Render("Signatures"))
	b.WriteString("\n")
	for _, st := range r.Signers {
		var status string
		switch {
		case st.Valid:
			status = okStyle.Render("valid")
		case st.Signed:
			status = errStyle.Render("INVALID")
		default:
			status = warnStyle.Render("pending")
		}
		b.WriteString(row(status, st.PublicKey.String()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if r.Complete {
		b.WriteString(okStyle.Render("Fully signed, ready to submit"))
	} else {
		b.WriteString(warnStyle.Render("Awaiting buyer signature"))
	}

	return boxStyle.Render(b.String())
}

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Decode a base64 transaction and show its instructions and signature state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tx",
				Usage: "Base64 transaction (read from stdin when omitted)",
			},
			&cli.BoolFlag{
				Name:  "require-complete",
				Usage: "Fail unless every required signature is present and valid",
			},
		},
		Action: func(c *cli.Context) error {
			encoded := c.String("tx")
			if encoded == "" {
				data, err := io.ReadAll(c.App.Reader)
				if err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				encoded = strings.TrimSpace(string(data))
			}

			tx, err := transaction.Decode(encoded)
			if err != nil {
				return err
			}

			r, err := inspect(tx, transaction.NewValidator(zap.NewNop()))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, renderReport(r))

			if c.Bool("require-complete") && !r.Complete {
				return ErrIncompleteSignatures
			}
			return nil
		},
	}
}
