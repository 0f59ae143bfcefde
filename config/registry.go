package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrNotFound = errors.New("deployment not found")

// Registry is the JSON catalogue of known deployments: which programs form
// a portal on which domain, and who its provers trust.
type Registry struct {
	SchemaVersion   int          `json:"schema_version"`
	ProtocolVersion int          `json:"protocol_version"`
	Deployments     []Deployment `json:"deployments"`
}

type Deployment struct {
	Name    string `json:"name"`
	Cluster string `json:"cluster,omitempty"`
	RPCURL  string `json:"rpc_url,omitempty"`

	Domain uint64 `json:"domain"`

	PortalProgramID      string   `json:"portal_program_id"`
	MailboxProgramID     string   `json:"mailbox_program_id,omitempty"`
	HyperProverProgramID string   `json:"hyper_prover_program_id,omitempty"`
	LocalProverProgramID string   `json:"local_prover_program_id,omitempty"`
	ProverWhitelist      []string `json:"prover_whitelist,omitempty"`
}

func LoadRegistry(path string) (Registry, error) {
	var out Registry
	path = strings.TrimSpace(path)
	if path == "" {
		return Registry{}, errors.New("path required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return Registry{}, err
	}
	return out, nil
}

func (r Registry) FindByName(name string) (Deployment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Deployment{}, errors.New("name required")
	}
	for _, d := range r.Deployments {
		if d.Name == name {
			return d, nil
		}
	}
	return Deployment{}, fmt.Errorf("%w: %s", ErrNotFound, name)
}

func (r Registry) FindByDomain(domain uint64) (Deployment, error) {
	for _, d := range r.Deployments {
		if d.Domain == domain {
			return d, nil
		}
	}
	return Deployment{}, fmt.Errorf("%w: domain %d", ErrNotFound, domain)
}
