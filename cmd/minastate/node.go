package main

import (
	"github.com/eon-protocol/minastate"
)

type node struct {
	cfg     *minastate.NodeConfig
	state   *minastate.StateVerifier
	ledger  *minastate.LedgerParams
	account *minastate.AccountParams
}

func openNode(path string) (*node, error) {
	cfg, err := minastate.LoadNodeConfig(path)
	if err != nil {
		return nil, err
	}
	return newNode(cfg)
}

func newNode(cfg *minastate.NodeConfig) (*node, error) {
	ledger, err := cfg.LedgerParams()
	if err != nil {
		return nil, err
	}
	account, err := cfg.AccountParams()
	if err != nil {
		return nil, err
	}
	registry, err := cfg.OpenRegistry()
	if err != nil {
		return nil, err
	}
	return &node{cfg: cfg, state: minastate.NewStateVerifier(registry), ledger: ledger, account: account}, nil
}

func (me *node) Close() error {
	return me.state.Registry().Close()
}
