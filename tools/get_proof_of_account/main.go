package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/eon-protocol/minastate/accounts"
	"github.com/eon-protocol/minastate/fixture"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatalln("usage:", os.Args[0], "<ledger-hash>", "<account.json>")
	}
	account, err := accounts.LoadFile(os.Args[2])
	if err != nil {
		log.Fatalln(err)
	}
	d, err := fixture.New()
	if err != nil {
		log.Fatalln(err)
	}
	envelope, err := d.AccountProof(context.Background(), os.Args[1], account)
	if err != nil {
		log.Fatalln(err)
	}
	fmt.Println(hexutil.Encode(envelope))
}
