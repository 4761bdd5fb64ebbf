// cmd/tokensale/custody.go
package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

func custodyCommand() *cli.Command {
	return &cli.Command{
		Name:  "custody",
		Usage: "Show the custody wallet address and its token account (never the secret)",
		Action: func(c *cli.Context) error {
			rt, err := loadRuntime(c, true)
			if err != nil {
				return err
			}
			defer rt.close()

			custody, err := rt.custody()
			if err != nil {
				return err
			}
			mint := rt.cfg.TokenMintKey()
			ata, err := custody.AssociatedTokenAccount(mint)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "Custody wallet:  %s\n", custody.PublicKey())
			fmt.Fprintf(c.App.Writer, "Token mint:      %s (decimals %d)\n", mint, rt.cfg.TokenDecimals)
			fmt.Fprintf(c.App.Writer, "Token account:   %s\n", ata)
			return nil
		},
	}
}
