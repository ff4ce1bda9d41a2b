package main

import (
	"fmt"
	"log"
	"os"

	"github.com/eon-protocol/minastate/accounts"
	"github.com/eon-protocol/minastate/field"
	"github.com/eon-protocol/minastate/placeholder"
)

func main() {
	if len(os.Args) != 3 {
		log.Fatalln("usage:", os.Args[0], "<account.params.json>", "<account.json>")
	}
	cfg, err := placeholder.LoadParamsFile(os.Args[1])
	if err != nil {
		log.Fatalln(err)
	}
	account, err := accounts.LoadFile(os.Args[2])
	if err != nil {
		log.Fatalln(err)
	}
	f, err := field.New(cfg.Params.Modulus)
	if err != nil {
		log.Fatalln(err)
	}
	pi, err := account.PublicInput(f)
	if err != nil {
		log.Fatalln(err)
	}
	for i, v := range pi {
		fmt.Println(i, v.BigInt().Text(16))
	}
}
