package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/alucardeht/ghostnote/internal/tools"
	"github.com/alucardeht/ghostnote/pkg/protocol"
)

// maxLineSize bounds one request line; transcripts travel inline.
const maxLineSize = 8 * 1024 * 1024

type Server struct {
	registry *tools.Registry
	handler  *Handler
}

func NewServer(registry *tools.Registry, handler *Handler) *Server {
	return &Server{
		registry: registry,
		handler:  handler,
	}
}

func (s *Server) HandleRequest(ctx context.Context, req *Request) *Response {
	return s.handler.Handle(ctx, req)
}

// ProcessStream serves newline-delimited JSON-RPC until reader is exhausted or ctx
// is cancelled. Notifications get no reply.
func (s *Server) ProcessStream(ctx context.Context, reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	out := protocol.NewFlushWriter(writer)
	encoder := json.NewEncoder(out)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			resp := &Response{
				JSONRPC: "2.0",
				ID:      nil,
				Error: &protocol.JSONRPCError{
					Code:    protocol.CodeParseError,
					Message: "Parse error",
				},
			}
			if err := encoder.Encode(resp); err != nil {
				return err
			}
			if err := out.Flush(); err != nil {
				return err
			}
			continue
		}

		resp := s.HandleRequest(ctx, &req)
		if req.ID == nil {
			continue
		}
		if err := encoder.Encode(resp); err != nil {
			return err
		}
		if err := out.Flush(); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func (s *Server) Registry() *tools.Registry {
	return s.registry
}

func (s *Server) Handler() *Handler {
	return s.handler
}
