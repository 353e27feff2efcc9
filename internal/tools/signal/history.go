package signal

import (
	"context"
	"encoding/json"

	"github.com/alucardeht/ghostnote/internal/tools"
)

const maxHistoryLimit = 200

type HistoryTool struct {
	journal Journal
}

func NewHistoryTool(journal Journal) *HistoryTool {
	return &HistoryTool{journal: journal}
}

func (t *HistoryTool) Name() string {
	return "signal_history"
}

func (t *HistoryTool) Description() string {
	return "List recently recorded signals, newest first"
}

func (t *HistoryTool) Title() string {
	return "Signal History"
}

func (t *HistoryTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *HistoryTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"limit": {
				"type": "integer",
				"description": "Maximum records to return (default 20, max 200)"
			}
		},
		"required": []
	}`)
}

func (t *HistoryTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if t.journal == nil {
		return nil, tools.NewInvalidParamsError("signal journal is not available")
	}

	var req struct {
		Limit int `json:"limit"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError("invalid arguments: %v", err)
	}
	if req.Limit > maxHistoryLimit {
		req.Limit = maxHistoryLimit
	}

	records, err := t.journal.RecentSignals(req.Limit)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"signals": records,
		"count":   len(records),
	}, nil
}
