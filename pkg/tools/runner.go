package tools

import (
	"context"
	"fmt"
	"time"

	"log/slog"
)

const defaultToolTimeout = 30 * time.Second

// Result is the outcome of one tool call, in the shape the session service
// expects back.
type Result struct {
	Success bool
	Output  string
}

// Runner executes requested tool calls against the registry, auto-approving
// anything on the allow-list and rejecting everything else with an explicit
// failure result. Rejection, not silence: the remote agent needs the answer
// to adapt.
type Runner struct {
	registry *Registry
	allowed  map[string]bool
	timeout  time.Duration
}

// NewRunner creates a runner. Only tool names in allowList are ever
// executed, even if more tools are registered.
func NewRunner(registry *Registry, allowList []string) *Runner {
	allowed := make(map[string]bool, len(allowList))
	for _, name := range allowList {
		allowed[name] = true
	}
	return &Runner{
		registry: registry,
		allowed:  allowed,
		timeout:  defaultToolTimeout,
	}
}

// SetTimeout overrides the per-call execution timeout.
func (r *Runner) SetTimeout(d time.Duration) {
	if d > 0 {
		r.timeout = d
	}
}

// Allowed reports whether a tool name is on the allow-list.
func (r *Runner) Allowed(name string) bool {
	return r.allowed[name]
}

// Run executes one tool call and returns the result to report back to the
// session. It never returns an error; failures become failed Results.
func (r *Runner) Run(ctx context.Context, name string, args map[string]any) Result {
	if !r.allowed[name] {
		return Result{
			Success: false,
			Output:  fmt.Sprintf("tool %q is not available for inline generation", name),
		}
	}

	tool, ok := r.registry.Get(name)
	if !ok {
		return Result{
			Success: false,
			Output:  fmt.Sprintf("tool %q is not available for inline generation", name),
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	output, err := tool.Execute(execCtx, args)
	if err != nil {
		slog.Warn("tool execution failed", "tool", name, "error", err)
		return Result{Success: false, Output: fmt.Sprintf("tool %q failed: %v", name, err)}
	}
	slog.Debug("tool executed", "tool", name, "duration_ms", time.Since(start).Milliseconds())
	return Result{Success: true, Output: output}
}
