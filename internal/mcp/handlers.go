package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/alucardeht/ghostnote/internal/logger"
	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/pkg/protocol"
	"github.com/alucardeht/ghostnote/pkg/version"
)

var log = logger.ForComponent("mcp")

const ServerName = "GhostNote"

const DefaultCallTimeout = 30 * time.Second

type Handler struct {
	registry    *tools.Registry
	callTimeout time.Duration
	startTime   time.Time

	mu          sync.Mutex
	initialized bool
	clientInfo  ClientInfo
}

func NewHandler(registry *tools.Registry, callTimeout time.Duration) *Handler {
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	return &Handler{
		registry:    registry,
		callTimeout: callTimeout,
		startTime:   time.Now(),
	}
}

func (h *Handler) Handle(ctx context.Context, req *Request) *Response {
	resp := &Response{
		JSONRPC: "2.0",
		ID:      req.ID,
	}

	switch req.Method {
	case "initialize":
		result, err := h.handleInitialize(req)
		if err != nil {
			resp.Error = errorFor(err, protocol.CodeInvalidParams)
		} else {
			resp.Result = result
		}
	case "ping":
		resp.Result = map[string]interface{}{}
	case "tools/list":
		resp.Result = h.handleListTools()
	case "tools/call":
		result, err := h.handleCallTool(ctx, req)
		if err != nil {
			resp.Error = errorFor(err, protocol.CodeInternalError)
		} else {
			resp.Result = result
		}
	case "notifications/initialized":
		h.mu.Lock()
		h.initialized = true
		h.mu.Unlock()
		resp.Result = map[string]interface{}{}
	default:
		resp.Error = &protocol.JSONRPCError{
			Code:    protocol.CodeMethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return resp
}

func errorFor(err error, fallback int) *protocol.JSONRPCError {
	if toolErr, ok := err.(*tools.ToolError); ok {
		return &protocol.JSONRPCError{Code: toolErr.Code, Message: toolErr.Message}
	}
	return &protocol.JSONRPCError{Code: fallback, Message: err.Error()}
}

func decodeParams(params map[string]interface{}, v interface{}) error {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	return json.Unmarshal(data, v)
}

func (h *Handler) handleInitialize(req *Request) (interface{}, error) {
	var initReq InitializeRequest
	if err := decodeParams(req.Params, &initReq); err != nil {
		return nil, fmt.Errorf("failed to parse initialize request: %w", err)
	}

	h.mu.Lock()
	h.clientInfo = initReq.ClientInfo
	h.mu.Unlock()

	log.Debug("client initialized", "client", initReq.ClientInfo.Name, "version", initReq.ClientInfo.Version)

	return InitializeResponse{
		ProtocolVersion: negotiateProtocolVersion(initReq.ProtocolVersion),
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
		ServerInfo: ServerInfo{
			Name:    ServerName,
			Version: version.Version,
		},
	}, nil
}

func negotiateProtocolVersion(clientVersion string) string {
	for _, v := range version.SupportedProtocolVersions {
		if clientVersion == v {
			return v
		}
	}

	return version.ProtocolVersion
}

func (h *Handler) handleListTools() ListToolsResponse {
	toolsList := h.registry.List()
	toolsData := make([]Tool, len(toolsList))

	for i, t := range toolsList {
		var schema map[string]interface{}
		if err := json.Unmarshal(t.Schema(), &schema); err != nil {
			log.Warn("tool has invalid schema", "tool", t.Name(), "error", err)
			schema = map[string]interface{}{"type": "object"}
		}

		toolData := Tool{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: schema,
		}

		if annotated, ok := t.(tools.AnnotatedTool); ok {
			toolData.Title = annotated.Title()
			toolData.Annotations = annotated.Annotations()
		}

		toolsData[i] = toolData
	}

	return ListToolsResponse{Tools: toolsData}
}

func (h *Handler) handleCallTool(ctx context.Context, req *Request) (result interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool execution panicked: %v", r)
			log.Error("tool panic recovered",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	var callReq CallToolRequest
	if err := decodeParams(req.Params, &callReq); err != nil {
		return nil, tools.NewInvalidParamsError("failed to parse tool call request: %v", err)
	}

	if callReq.Name == "" {
		return nil, tools.NewInvalidParamsError("tool name is required")
	}

	start := time.Now()
	value, err := h.registry.ExecuteWithTimeout(ctx, callReq.Name, callReq.Arguments, h.callTimeout)
	log.Debug("tool call", "tool", callReq.Name, "duration", time.Since(start), "error", err)
	if err != nil {
		return nil, err
	}

	resultJSON, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return CallToolResponse{
		Content: []Content{
			{Type: "text", Text: string(resultJSON)},
		},
	}, nil
}

func (h *Handler) Uptime() time.Duration {
	return time.Since(h.startTime)
}

func (h *Handler) Client() (ClientInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clientInfo, h.initialized
}
