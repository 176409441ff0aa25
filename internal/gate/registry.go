package gate

import (
	"log/slog"

	"github.com/rickgao/dlc-settler/internal/contract"
)

// Registry wraps a contract.Registry so that Add requires a valid
// administrative grant. All other operations pass through ungated.
type Registry struct {
	contract.Registry

	verifier *Verifier
	logger   *slog.Logger
}

// NewRegistry wraps inner behind the verifier.
func NewRegistry(inner contract.Registry, verifier *Verifier, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		Registry: inner,
		verifier: verifier,
		logger:   logger,
	}
}

// Add shadows the inner Add: the grant must authorize creating this id.
func (g *Registry) Add(grant Grant, id, sourceRef string, closingTS int64) error {
	if err := g.verifier.Verify(grant, ActionAdd, id); err != nil {
		g.logger.Warn("contract creation denied",
			"id", id,
			"key_id", grant.KeyID,
		)
		return err
	}
	return g.Registry.Add(id, sourceRef, closingTS)
}
