package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/internal/tools/signal"
	usagetools "github.com/alucardeht/ghostnote/internal/tools/usage"
	"github.com/alucardeht/ghostnote/internal/usage"
	"github.com/alucardeht/ghostnote/pkg/protocol"
	"github.com/alucardeht/ghostnote/pkg/version"
)

type panicTool struct{}

func (panicTool) Name() string            { return "explode" }
func (panicTool) Description() string     { return "panics" }
func (panicTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (panicTool) Execute(context.Context, json.RawMessage) (interface{}, error) {
	panic("kaboom")
}

func newHandler(t *testing.T) (*Handler, *usage.Gate) {
	t.Helper()
	gate := usage.NewGate(usage.NewMemoryBackend())

	registry := tools.NewRegistry()
	require.NoError(t, registry.Register(tools.NewHealthTool(registry)))
	require.NoError(t, registry.RegisterAll(signal.GetTools(nil, gate)))
	require.NoError(t, registry.RegisterAll(usagetools.GetTools(gate)))
	require.NoError(t, registry.Register(panicTool{}))

	return NewHandler(registry, time.Second), gate
}

func TestInitializeNegotiatesVersion(t *testing.T) {
	h, _ := newHandler(t)

	resp := h.Handle(context.Background(), &Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "initialize",
		Params: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"clientInfo":      map[string]interface{}{"name": "editor", "version": "1.0"},
		},
	})
	require.Nil(t, resp.Error)

	result := resp.Result.(InitializeResponse)
	assert.Equal(t, "2024-11-05", result.ProtocolVersion)
	assert.Equal(t, ServerName, result.ServerInfo.Name)

	resp = h.Handle(context.Background(), &Request{
		Method: "initialize",
		Params: map[string]interface{}{"protocolVersion": "1999-01-01"},
	})
	assert.Equal(t, version.ProtocolVersion, resp.Result.(InitializeResponse).ProtocolVersion)

	h.Handle(context.Background(), &Request{Method: "notifications/initialized"})
	client, initialized := h.Client()
	assert.True(t, initialized)
	assert.Equal(t, "", client.Name)
}

func TestPingAndUnknownMethod(t *testing.T) {
	h, _ := newHandler(t)

	resp := h.Handle(context.Background(), &Request{ID: 2, Method: "ping"})
	assert.Nil(t, resp.Error)
	assert.Equal(t, 2, resp.ID)

	resp = h.Handle(context.Background(), &Request{ID: 3, Method: "resources/list"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeMethodNotFound, resp.Error.Code)
}

func TestListTools(t *testing.T) {
	h, _ := newHandler(t)

	resp := h.Handle(context.Background(), &Request{ID: 1, Method: "tools/list"})
	list := resp.Result.(ListToolsResponse)

	names := make([]string, 0, len(list.Tools))
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"analyze_text", "clean_transcript", "explode", "health", "set_pro",
		"signal_history", "usage_consume", "usage_reset", "usage_status",
	}, names)

	analyze := list.Tools[0]
	assert.Equal(t, "Analyze Tone", analyze.Title)
	assert.Equal(t, "object", analyze.InputSchema["type"])
	assert.False(t, analyze.Annotations["readOnlyHint"])
}

func callTool(h *Handler, name string, args interface{}) *Response {
	return h.Handle(context.Background(), &Request{
		ID:     7,
		Method: "tools/call",
		Params: map[string]interface{}{"name": name, "arguments": args},
	})
}

func TestCallToolWrapsResultAsText(t *testing.T) {
	h, _ := newHandler(t)

	resp := callTool(h, "analyze_text", map[string]interface{}{"text": "Imagine a breakthrough!"})
	require.Nil(t, resp.Error)

	content := resp.Result.(CallToolResponse).Content
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0].Type)

	var payload struct {
		Signal struct {
			Emotion string `json:"emotion"`
			Tone    string `json:"tone"`
		} `json:"signal"`
	}
	require.NoError(t, json.Unmarshal([]byte(content[0].Text), &payload))
	assert.Equal(t, "excited", payload.Signal.Emotion)
	assert.Equal(t, "Visionary", payload.Signal.Tone)
}

func TestCallToolErrors(t *testing.T) {
	h, gate := newHandler(t)

	resp := callTool(h, "nope", map[string]interface{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeMethodNotFound, resp.Error.Code)

	resp = callTool(h, "set_pro", map[string]interface{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)

	resp = callTool(h, "explode", nil)
	require.NotNil(t, resp.Error)
	assert.Contains(t, resp.Error.Message, "kaboom")

	resp = h.Handle(context.Background(), &Request{ID: 1, Method: "tools/call"})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInvalidParams, resp.Error.Code)

	for i := 0; i < usage.Limit; i++ {
		require.NoError(t, gate.IncrementUsage())
	}
	resp = callTool(h, "analyze_text", map[string]interface{}{"text": "hi", "consume": true})
	require.NotNil(t, resp.Error)
	assert.Equal(t, protocol.CodeInternalError, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, usage.ErrLimitReached.Error())
}

func TestProcessStream(t *testing.T) {
	h, _ := newHandler(t)
	server := NewServer(h.registry, h)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"ping"}`,
		`not json`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"usage_status"}}`,
	}, "\n")

	var out bytes.Buffer
	require.NoError(t, server.ProcessStream(context.Background(), strings.NewReader(input), &out))

	decoder := json.NewDecoder(&out)
	var responses []Response
	for decoder.More() {
		var resp Response
		require.NoError(t, decoder.Decode(&resp))
		responses = append(responses, resp)
	}

	require.Len(t, responses, 3)
	assert.Equal(t, float64(1), responses[0].ID)
	assert.Equal(t, protocol.CodeParseError, responses[1].Error.Code)
	assert.Equal(t, float64(2), responses[2].ID)
	assert.Nil(t, responses[2].Error)
}
