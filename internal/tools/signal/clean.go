package signal

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/alucardeht/ghostnote/internal/analyzer"
	"github.com/alucardeht/ghostnote/internal/tools"
)

type CleanTool struct{}

func NewCleanTool() *CleanTool {
	return &CleanTool{}
}

func (t *CleanTool) Name() string {
	return "clean_transcript"
}

func (t *CleanTool) Description() string {
	return "Remove filler words (um, uh, you know, basically...) from a transcript and collapse whitespace"
}

func (t *CleanTool) Title() string {
	return "Clean Transcript"
}

func (t *CleanTool) Annotations() map[string]bool {
	return tools.ReadOnlyAnnotations()
}

func (t *CleanTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {
				"type": "string",
				"description": "Transcript text"
			}
		},
		"required": ["text"]
	}`)
}

func (t *CleanTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError("invalid arguments: %v", err)
	}
	if req.Text == nil {
		return nil, tools.NewInvalidParamsError("text is required")
	}

	cleaned := analyzer.RemoveFillerWords(*req.Text)

	return map[string]interface{}{
		"text":         cleaned,
		"words_before": len(strings.Fields(*req.Text)),
		"words_after":  len(strings.Fields(cleaned)),
	}, nil
}
