// Package signal exposes the tone analyzer and transcript cleanup as tools.
package signal

import (
	"github.com/alucardeht/ghostnote/internal/analyzer"
	"github.com/alucardeht/ghostnote/internal/store"
	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/internal/usage"
)

// Journal persists analyzed signals. *store.Store implements it.
type Journal interface {
	RecordSignal(text string, sig analyzer.TextSignal) (*store.SignalRecord, error)
	RecentSignals(limit int) ([]store.SignalRecord, error)
}

// GetTools builds the signal tool set. journal and gate may be nil, in which case
// recording and metered analysis are rejected.
func GetTools(journal Journal, gate *usage.Gate) []tools.Tool {
	return []tools.Tool{
		NewAnalyzeTool(journal, gate),
		NewCleanTool(),
		NewHistoryTool(journal),
	}
}
