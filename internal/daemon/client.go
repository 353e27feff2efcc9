package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/alucardeht/ghostnote/internal/mcp"
)

const dialTimeout = 2 * time.Second

type Client struct {
	netConn net.Conn
	conn    *jsonrpc2.Conn
}

// Dial connects to a daemon listening on socketPath.
func Dial(ctx context.Context, socketPath string) (*Client, error) {
	netConn, err := NewSocketConnector(socketPath, dialTimeout).Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("daemon not reachable at %s: %w", socketPath, err)
	}
	return NewClient(ctx, netConn), nil
}

func NewClient(ctx context.Context, netConn net.Conn) *Client {
	stream := jsonrpc2.NewBufferedStream(netConn, jsonrpc2.VSCodeObjectCodec{})
	return &Client{
		netConn: netConn,
		conn:    jsonrpc2.NewConn(ctx, stream, &clientHandler{}),
	}
}

// The daemon never calls back into clients.
type clientHandler struct{}

func (h *clientHandler) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	if req.Notif {
		return
	}
	conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
		Code:    jsonrpc2.CodeMethodNotFound,
		Message: fmt.Sprintf("client does not handle %s", req.Method),
	})
}

func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	return c.conn.Call(ctx, method, params, result)
}

func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) (*mcp.InitializeResponse, error) {
	var result mcp.InitializeResponse
	params := mcp.InitializeRequest{
		ClientInfo: mcp.ClientInfo{Name: clientName, Version: clientVersion},
	}
	if err := c.Call(ctx, "initialize", params, &result); err != nil {
		return nil, fmt.Errorf("initialize failed: %w", err)
	}
	if err := c.conn.Notify(ctx, "notifications/initialized", struct{}{}); err != nil {
		return nil, fmt.Errorf("initialized notification failed: %w", err)
	}
	return &result, nil
}

// CallTool runs a tool and decodes its text payload into result. A nil result
// discards the payload.
func (c *Client) CallTool(ctx context.Context, name string, args, result interface{}) error {
	if args == nil {
		args = struct{}{}
	}

	var resp mcp.CallToolResponse
	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	if err := c.Call(ctx, "tools/call", params, &resp); err != nil {
		return err
	}

	if len(resp.Content) == 0 {
		return fmt.Errorf("tool %s returned no content", name)
	}
	if result == nil {
		return nil
	}
	return json.Unmarshal([]byte(resp.Content[0].Text), result)
}

func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	var resp mcp.ListToolsResponse
	if err := c.Call(ctx, "tools/list", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tools, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
