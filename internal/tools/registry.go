package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, input json.RawMessage) (interface{}, error)
}

type AnnotatedTool interface {
	Tool
	Title() string
	Annotations() map[string]bool
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}

	r.tools[name] = tool
	return nil
}

// RegisterAll stops at the first duplicate.
func (r *Registry) RegisterAll(set []Tool) error {
	for _, tool := range set {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (interface{}, error) {
	tool, ok := r.Get(name)
	if !ok {
		return nil, NewToolNotFoundError(name)
	}

	if len(input) == 0 || string(input) == "null" {
		input = json.RawMessage(`{}`)
	}

	result, err := tool.Execute(ctx, input)
	if err != nil {
		if _, isToolErr := err.(*ToolError); isToolErr {
			return nil, err
		}
		return nil, NewToolExecutionError(name, err)
	}
	return result, nil
}

type executeResult struct {
	value interface{}
	err   error
}

// ExecuteWithTimeout cancels the tool's context after timeout. A tool that ignores
// its context keeps running in the background but its result is discarded.
func (r *Registry) ExecuteWithTimeout(ctx context.Context, name string, input json.RawMessage, timeout time.Duration) (interface{}, error) {
	if timeout <= 0 {
		return r.Execute(ctx, name, input)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan executeResult, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- executeResult{err: NewToolExecutionError(name, fmt.Errorf("panic: %v", p))}
			}
		}()
		value, err := r.Execute(ctx, name, input)
		done <- executeResult{value: value, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, NewToolTimeoutError(name, timeout)
		}
		return res.value, res.err
	case <-ctx.Done():
		return nil, NewToolTimeoutError(name, timeout)
	}
}

// List returns tools ordered by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		result = append(result, tool)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name() < result[j].Name()
	})
	return result
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
