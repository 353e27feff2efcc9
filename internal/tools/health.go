package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/alucardeht/ghostnote/pkg/version"
)

type HealthTool struct {
	startTime time.Time
	registry  *Registry
}

// NewHealthTool reports uptime and the tool names in registry; registry may be nil.
func NewHealthTool(registry *Registry) *HealthTool {
	return &HealthTool{startTime: time.Now(), registry: registry}
}

func (t *HealthTool) Name() string {
	return "health"
}

func (t *HealthTool) Description() string {
	return "Check daemon health status"
}

func (t *HealthTool) Title() string {
	return "Daemon Health"
}

func (t *HealthTool) Annotations() map[string]bool {
	return ReadOnlyAnnotations()
}

func (t *HealthTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *HealthTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	result := map[string]interface{}{
		"status":  "healthy",
		"version": version.Version,
		"uptime":  int64(time.Since(t.startTime).Seconds()),
	}
	if t.registry != nil {
		result["tools"] = t.registry.Names()
	}
	return result, nil
}
