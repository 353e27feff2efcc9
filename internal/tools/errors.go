package tools

import (
	"fmt"
	"time"

	"github.com/alucardeht/ghostnote/pkg/protocol"
)

type ToolError struct {
	Code    int
	Message string
}

func (e *ToolError) Error() string {
	return e.Message
}

func NewToolNotFoundError(name string) *ToolError {
	return &ToolError{
		Code:    protocol.CodeMethodNotFound,
		Message: fmt.Sprintf("Tool not found: %s", name),
	}
}

func NewInvalidParamsError(format string, args ...interface{}) *ToolError {
	return &ToolError{
		Code:    protocol.CodeInvalidParams,
		Message: fmt.Sprintf(format, args...),
	}
}

func NewToolExecutionError(name string, err error) *ToolError {
	return &ToolError{
		Code:    protocol.CodeInternalError,
		Message: fmt.Sprintf("Error executing tool %s: %v", name, err),
	}
}

func NewToolTimeoutError(name string, timeout time.Duration) *ToolError {
	return &ToolError{
		Code:    protocol.CodeInternalError,
		Message: fmt.Sprintf("Tool %s timed out after %s", name, timeout),
	}
}
