package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParse_DefaultsAndValidation(t *testing.T) {
	cfg, err := Parse([]byte(`
portal:
  program_id: "3zbEiMYyf4y1bGsVBAzKrXVzMndRQdTMDgx3aKCs8BHs"
  authority: "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
  local_domain: 1399811149
mailbox:
  program_id: "E588QtVUvresuXq2KoNEwAmoifCzYGpRBdHByN9KQMbi"
  gas_prices:
    10: 25
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Portal.DefaultGasLimit != 200000 {
		t.Fatalf("default gas limit: got %d", cfg.Portal.DefaultGasLimit)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Fatalf("logging defaults: %+v", cfg.Logging)
	}
	if cfg.Mailbox.GasPrices[10] != 25 {
		t.Fatalf("gas prices: %+v", cfg.Mailbox.GasPrices)
	}
}

func TestParse_RejectsMissingPortal(t *testing.T) {
	_, err := Parse([]byte(`
mailbox:
  program_id: "E588QtVUvresuXq2KoNEwAmoifCzYGpRBdHByN9KQMbi"
`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRegistryAndFind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "deployments.json")
	if err := os.WriteFile(path, []byte(`{
  "schema_version": 1,
  "protocol_version": 1,
  "deployments": [
    {
      "name": "devnet-1",
      "cluster": "devnet",
      "domain": 1399811150,
      "portal_program_id": "PORTAL"
    }
  ]
}`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	d, err := r.FindByName("devnet-1")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if d.Cluster != "devnet" || d.Domain != 1399811150 || d.PortalProgramID != "PORTAL" {
		t.Fatalf("unexpected deployment: %+v", d)
	}

	if _, err := r.FindByDomain(42); err == nil {
		t.Fatalf("expected ErrNotFound")
	}
}
