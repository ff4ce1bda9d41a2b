package minastate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/eon-protocol/minastate/circuits"
	"github.com/eon-protocol/minastate/placeholder"
)

// CircuitFiles locates the parameter document and arithmetization of one
// sub-proof.
type CircuitFiles struct {
	Params  string `yaml:"params"`
	Circuit string `yaml:"circuit"`
}

// NodeConfig is the YAML configuration of a verifying node. Relative paths
// resolve against the directory of the config file.
type NodeConfig struct {
	DataDir string         `yaml:"datadir"`
	Listen  string         `yaml:"listen"`
	Sizing  []uint64       `yaml:"sizing"`
	Ledger  []CircuitFiles `yaml:"ledger"`
	Account CircuitFiles   `yaml:"account"`

	base string
}

func LoadNodeConfig(path string) (*NodeConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg, err := ReadNodeConfig(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.base = filepath.Dir(path)
	return cfg, nil
}

func ReadNodeConfig(r io.Reader) (*NodeConfig, error) {
	var cfg NodeConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	return &cfg, nil
}

func (me *NodeConfig) WriteTo(w io.Writer) (int64, error) {
	b, err := yaml.Marshal(me)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	return int64(n), err
}

func (me *NodeConfig) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || me.base == "" {
		return path
	}
	return filepath.Join(me.base, path)
}

// OpenRegistry opens the leveldb registry under DataDir, or an in-memory
// one when DataDir is empty.
func (me *NodeConfig) OpenRegistry() (*Registry, error) {
	if me.DataDir == "" {
		return NewMemoryRegistry(), nil
	}
	return OpenRegistry(me.resolve(me.DataDir))
}

func (me *NodeConfig) LedgerParams() (*LedgerParams, error) {
	init := &InitParams{Sizing: me.Sizing}
	var descs []*circuits.Description
	for _, files := range me.Ledger {
		cfg, err := placeholder.LoadParamsFile(me.resolve(files.Params))
		if err != nil {
			return nil, err
		}
		desc, err := circuits.LoadFile(me.resolve(files.Circuit))
		if err != nil {
			return nil, err
		}
		init.Configs = append(init.Configs, cfg)
		descs = append(descs, desc)
	}
	return NewLedgerParams(init, descs...)
}

func (me *NodeConfig) AccountParams() (*AccountParams, error) {
	v, err := LoadVerifier(me.resolve(me.Account.Params), me.resolve(me.Account.Circuit))
	if err != nil {
		return nil, err
	}
	return &AccountParams{Verifier: v}, nil
}
