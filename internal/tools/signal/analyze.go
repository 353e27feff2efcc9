package signal

import (
	"context"
	"encoding/json"

	"github.com/alucardeht/ghostnote/internal/analyzer"
	"github.com/alucardeht/ghostnote/internal/logger"
	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/internal/transcript"
	"github.com/alucardeht/ghostnote/internal/usage"
)

var log = logger.ForComponent("signal")

type AnalyzeRequest struct {
	Text    *string                  `json:"text,omitempty"`
	Path    string                   `json:"path,omitempty"`
	Clean   bool                     `json:"clean,omitempty"`
	Record  bool                     `json:"record,omitempty"`
	Consume bool                     `json:"consume,omitempty"`
	Audit   *analyzer.AlignmentAudit `json:"audit,omitempty"`
}

type AnalyzeResponse struct {
	Signal   analyzer.TextSignal      `json:"signal"`
	Encoding transcript.Encoding      `json:"encoding,omitempty"`
	RecordID string                   `json:"record_id,omitempty"`
	Audit    *analyzer.AlignmentAudit `json:"audit,omitempty"`
	Usage    *usage.Status            `json:"usage,omitempty"`
}

type AnalyzeTool struct {
	journal Journal
	gate    *usage.Gate
}

func NewAnalyzeTool(journal Journal, gate *usage.Gate) *AnalyzeTool {
	return &AnalyzeTool{journal: journal, gate: gate}
}

func (t *AnalyzeTool) Name() string {
	return "analyze_text"
}

func (t *AnalyzeTool) Description() string {
	return `Classify the emotional tone of a transcript.

Returns word_count, emotion (calm, angry, excited), tone (Reflective, Direct,
Visionary, Neutral), virality_score (0-100) and suggestions.

INPUT: pass either "text" or "path" to a transcript file (UTF-8, UTF-16 with BOM,
or Windows-1252).

OPTIONS:
- clean: strip filler words before analysis
- record: store the signal in the local journal
- consume: spend one free-tier action first; fails when the limit is reached
- audit: an alignment audit to return next to the signal`
}

func (t *AnalyzeTool) Title() string {
	return "Analyze Tone"
}

func (t *AnalyzeTool) Annotations() map[string]bool {
	return tools.NonIdempotentWriteAnnotations()
}

func (t *AnalyzeTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"text": {
				"type": "string",
				"description": "Transcript text"
			},
			"path": {
				"type": "string",
				"description": "Path to a transcript file"
			},
			"clean": {
				"type": "boolean",
				"description": "Remove filler words before analysis"
			},
			"record": {
				"type": "boolean",
				"description": "Store the result in the signal journal"
			},
			"consume": {
				"type": "boolean",
				"description": "Spend one free-tier action"
			},
			"audit": {
				"type": "object",
				"properties": {
					"is_aligned": {"type": "boolean"},
					"insight": {"type": "string"},
					"stated_intent": {"type": "string"},
					"actual_obsession": {"type": "string"}
				},
				"required": ["is_aligned"]
			}
		},
		"required": []
	}`)
}

func (t *AnalyzeTool) Execute(ctx context.Context, input json.RawMessage) (interface{}, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var req AnalyzeRequest
	if err := json.Unmarshal(input, &req); err != nil {
		return nil, tools.NewInvalidParamsError("invalid arguments: %v", err)
	}

	if req.Text != nil && req.Path != "" {
		return nil, tools.NewInvalidParamsError("text and path are mutually exclusive")
	}
	if req.Text == nil && req.Path == "" {
		return nil, tools.NewInvalidParamsError("text or path is required")
	}
	if req.Audit != nil {
		if err := req.Audit.Validate(); err != nil {
			return nil, tools.NewInvalidParamsError("invalid audit: %v", err)
		}
	}
	if req.Record && t.journal == nil {
		return nil, tools.NewInvalidParamsError("signal journal is not available")
	}
	if req.Consume && t.gate == nil {
		return nil, tools.NewInvalidParamsError("usage gate is not available")
	}

	var resp AnalyzeResponse

	text := ""
	if req.Text != nil {
		text = *req.Text
	} else {
		decoded, enc, err := transcript.ReadFile(req.Path)
		if err != nil {
			return nil, err
		}
		text = decoded
		resp.Encoding = enc
	}

	if req.Consume {
		status, err := t.gate.Consume()
		if err != nil {
			return nil, err
		}
		resp.Usage = &status
	}

	if req.Clean {
		text = analyzer.RemoveFillerWords(text)
	}

	resp.Signal = analyzer.Analyze(text)
	resp.Audit = req.Audit

	if req.Record {
		rec, err := t.journal.RecordSignal(text, resp.Signal)
		if err != nil {
			return nil, err
		}
		resp.RecordID = rec.ID
		log.Debug("signal recorded", "id", rec.ID, "emotion", resp.Signal.Emotion)
	}

	return resp, nil
}
