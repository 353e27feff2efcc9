package daemon

import (
	"fmt"

	"github.com/alucardeht/ghostnote/internal/store"
	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/internal/tools/signal"
	usagetools "github.com/alucardeht/ghostnote/internal/tools/usage"
	"github.com/alucardeht/ghostnote/internal/usage"
)

// NewRegistry registers every GhostNote tool against st and gate. The CLI uses it
// to run tools in-process when no daemon is involved.
func NewRegistry(st *store.Store, gate *usage.Gate) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	if err := registry.Register(tools.NewHealthTool(registry)); err != nil {
		return nil, err
	}
	if err := registry.RegisterAll(signal.GetTools(st, gate)); err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}
	if err := registry.RegisterAll(usagetools.GetTools(gate)); err != nil {
		return nil, fmt.Errorf("usage: %w", err)
	}

	return registry, nil
}
