package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/eon-protocol/minastate/fixture"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatalln("usage:", os.Args[0], "<dir>")
	}
	d, err := fixture.New()
	if err != nil {
		log.Fatalln(err)
	}
	if err := d.Write(context.Background(), os.Args[1]); err != nil {
		log.Fatalln(err)
	}
	fmt.Println("ledger hash", fixture.LEDGER_HASH)
}
