package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/eon-protocol/minastate"
	"github.com/eon-protocol/minastate/accounts"
)

var configFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "Path to the node configuration",
	Value: "node.yaml",
}

var ledgerFlag = &cli.StringFlag{
	Name:     "ledger",
	Usage:    "Ledger hash the proof is bound to",
	Required: true,
}

var proofFlag = &cli.StringFlag{
	Name:     "proof",
	Usage:    "Proof file or http(s) URL, raw or 0x hex",
	Required: true,
}

func withNode(action func(c *cli.Context, n *node) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		n, err := openNode(c.String("config"))
		if err != nil {
			return err
		}
		defer n.Close()
		return action(c, n)
	}
}

func report(kind minastate.EventKind, err error) error {
	fmt.Println(kind)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "minastate",
		Usage: "Verifies Mina ledger and account state proofs",
		Commands: []*cli.Command{
			{
				Name:  "validate-ledger-state",
				Usage: "Verify a ledger state proof",
				Flags: []cli.Flag{configFlag, ledgerFlag, proofFlag, &cli.BoolFlag{
					Name:  "update",
					Usage: "Record the verdict in the registry",
				}},
				Action: withNode(func(c *cli.Context, n *node) error {
					proof, err := minastate.ReadProof(c.Context, c.String("proof"))
					if err != nil {
						return err
					}
					verify := n.state.VerifyLedgerState
					if c.Bool("update") {
						verify = n.state.UpdateLedgerProof
					}
					err = verify(c.Context, c.String("ledger"), proof, n.ledger)
					return report(minastate.LedgerVerdict(err), err)
				}),
			},
			{
				Name:  "validate-account-state",
				Usage: "Verify an account state proof against a recorded ledger",
				Flags: []cli.Flag{configFlag, ledgerFlag, proofFlag, &cli.StringFlag{
					Name:     "account",
					Usage:    "Account data JSON file",
					Required: true,
				}},
				Action: withNode(func(c *cli.Context, n *node) error {
					proof, err := minastate.ReadProof(c.Context, c.String("proof"))
					if err != nil {
						return err
					}
					account, err := accounts.LoadFile(c.String("account"))
					if err != nil {
						return err
					}
					err = n.state.VerifyAccountState(c.Context, account, c.String("ledger"), proof, n.account)
					return report(minastate.AccountVerdict(err), err)
				}),
			},
			{
				Name:  "is-validated",
				Usage: "Report whether a ledger hash carries an accepted ledger proof",
				Flags: []cli.Flag{configFlag, ledgerFlag},
				Action: withNode(func(c *cli.Context, n *node) error {
					ok, err := n.state.IsValidatedLedgerHash(c.String("ledger"))
					if err != nil {
						return err
					}
					fmt.Println(ok)
					return nil
				}),
			},
			{
				Name:  "serve",
				Usage: "Serve the verification API",
				Flags: []cli.Flag{configFlag},
				Action: withNode(func(c *cli.Context, n *node) error {
					return newServer(n).Listen(n.cfg.Listen)
				}),
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}
