// Package config loads the runtime configuration of one chain's portal and
// prover deployment. Everything here is fixed before the engines start;
// nothing is reloaded at runtime.
package config

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Portal  PortalConfig  `yaml:"portal" validate:"required"`
	Prover  ProverConfig  `yaml:"prover"`
	Mailbox MailboxConfig `yaml:"mailbox" validate:"required"`
	Store   StoreConfig   `yaml:"store"`
	Logging LoggingConfig `yaml:"logging"`
}

type PortalConfig struct {
	ProgramID        string `yaml:"program_id" validate:"required"`
	Authority        string `yaml:"authority" validate:"required"`
	AuthorizedProver string `yaml:"authorized_prover"`
	LocalDomain      uint64 `yaml:"local_domain" validate:"required,gt=0"`
	DefaultGasLimit  uint64 `yaml:"default_gas_limit" default:"200000"`
}

type ProverConfig struct {
	ProgramID string `yaml:"program_id"`
	// Whitelist holds the wire identities accepted as inbound proof
	// senders, at most twenty.
	Whitelist []string `yaml:"whitelist" validate:"max=20"`
	// SourceProvers maps source domain ids to the prover contract identity
	// outbound proofs are addressed to.
	SourceProvers map[uint64]string `yaml:"source_provers"`
	EagerClose    bool              `yaml:"eager_close"`
}

type MailboxConfig struct {
	ProgramID string            `yaml:"program_id" validate:"required"`
	GasPrices map[uint32]uint64 `yaml:"gas_prices"`
}

type StoreConfig struct {
	// Path of the SQLite account store; empty selects the in-memory store.
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"json" validate:"oneof=json console"`
}

func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (Config, error) {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, fmt.Errorf("apply defaults: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
