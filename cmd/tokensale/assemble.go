// cmd/tokensale/assemble.go
package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/rovshanmuradov/token-sale/internal/blockchain/solbc/transaction"
)

func assembleCommand() *cli.Command {
	return &cli.Command{
		Name:  "assemble",
		Usage: "Assemble one purchase transaction and print it as base64",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "wallet",
				Aliases:  []string{"w"},
				Usage:    "Buyer wallet address (base58)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "inspect",
				Usage: "Also print a human-readable breakdown to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			rt, err := loadRuntime(c, true)
			if err != nil {
				return err
			}
			defer rt.close()

			assembler, err := rt.assembler(nil)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(c.Context, rt.cfg.RequestTimeout)
			defer cancel()

			done := rt.log.TrackPerformance("assemble")
			res, err := assembler.Assemble(ctx, c.String("wallet"))
			done()
			if err != nil {
				return fmt.Errorf("assembly failed: %w", err)
			}

			fmt.Fprintln(c.App.Writer, res.Base64)

			if c.Bool("inspect") {
				report, err := inspect(res.Transaction, transaction.NewValidator(rt.log.Logger))
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.ErrWriter, renderReport(report))
			}
			return nil
		},
	}
}
