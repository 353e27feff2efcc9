// Package usage exposes the free-tier gate as tools.
package usage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/alucardeht/ghostnote/internal/tools"
	gate "github.com/alucardeht/ghostnote/internal/usage"
)

func GetTools(g *gate.Gate) []tools.Tool {
	return []tools.Tool{
		NewStatusTool(g),
		NewConsumeTool(g),
		NewResetTool(g),
		NewSetProTool(g),
	}
}

var emptySchema = json.RawMessage(`{
	"type": "object",
	"properties": {},
	"required": []
}`)

type StatusTool struct {
	gate *gate.Gate
}

func NewStatusTool(g *gate.Gate) *StatusTool {
	return &StatusTool{gate: g}
}

func (t *StatusTool) Name() string {
	return "usage_status"
}

func (t *StatusTool) Description() string {
	return `Report free-tier usage: usage_count, is_pro, limit, remaining (null when
unlimited) and limit_reached.`
}

func (t *StatusTool) Title() string {
	return "Usage Status"
}

func (t *StatusTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *StatusTool) Schema() json.RawMessage {
	return emptySchema
}

func (t *StatusTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return t.gate.Status(), nil
}

type ConsumeTool struct {
	gate *gate.Gate
}

func NewConsumeTool(g *gate.Gate) *ConsumeTool {
	return &ConsumeTool{gate: g}
}

func (t *ConsumeTool) Name() string {
	return "usage_consume"
}

func (t *ConsumeTool) Description() string {
	return `Spend one free-tier action. When the limit is reached nothing is spent and
"allowed" is false; pro installations are never limited.`
}

func (t *ConsumeTool) Title() string {
	return "Consume Usage"
}

func (t *ConsumeTool) Annotations() map[string]bool {
	return tools.NonIdempotentWriteAnnotations()
}

func (t *ConsumeTool) Schema() json.RawMessage {
	return emptySchema
}

func (t *ConsumeTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	status, err := t.gate.Consume()
	if errors.Is(err, gate.ErrLimitReached) {
		return map[string]interface{}{
			"allowed": false,
			"status":  status,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"allowed": true,
		"status":  status,
	}, nil
}

type ResetTool struct {
	gate *gate.Gate
}

func NewResetTool(g *gate.Gate) *ResetTool {
	return &ResetTool{gate: g}
}

func (t *ResetTool) Name() string {
	return "usage_reset"
}

func (t *ResetTool) Description() string {
	return "Reset the free-tier usage count to zero"
}

func (t *ResetTool) Title() string {
	return "Reset Usage"
}

func (t *ResetTool) Annotations() map[string]bool {
	return tools.ResetAnnotations()
}

func (t *ResetTool) Schema() json.RawMessage {
	return emptySchema
}

func (t *ResetTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := t.gate.ResetUsage(); err != nil {
		return nil, err
	}
	return t.gate.Status(), nil
}

type SetProTool struct {
	gate *gate.Gate
}

func NewSetProTool(g *gate.Gate) *SetProTool {
	return &SetProTool{gate: g}
}

func (t *SetProTool) Name() string {
	return "set_pro"
}

func (t *SetProTool) Description() string {
	return `Set the pro entitlement. Listeners are notified of the change; pass
reset_usage to clear the free-tier count in the same call.`
}

func (t *SetProTool) Title() string {
	return "Set Pro Status"
}

func (t *SetProTool) Annotations() map[string]bool {
	return tools.SafeWriteAnnotations()
}

func (t *SetProTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"is_pro": {
				"type": "boolean",
				"description": "New pro status"
			},
			"reset_usage": {
				"type": "boolean",
				"description": "Also reset the usage count"
			}
		},
		"required": ["is_pro"]
	}`)
}

func (t *SetProTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		IsPro      *bool `json:"is_pro"`
		ResetUsage bool  `json:"reset_usage"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError("invalid arguments: %v", err)
	}
	if req.IsPro == nil {
		return nil, tools.NewInvalidParamsError("is_pro is required")
	}

	if err := t.gate.SetPro(*req.IsPro); err != nil {
		return nil, err
	}
	if req.ResetUsage {
		if err := t.gate.ResetUsage(); err != nil {
			return nil, err
		}
	}

	return t.gate.Status(), nil
}
