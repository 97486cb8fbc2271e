package agent

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
)

// Controller runs one ReAct loop to completion, adapted from
// pkg/agent/base_agent.go's Controller interface (the teacher's
// strategy-pattern seam between BaseAgent's lifecycle bookkeeping and the
// actual iteration logic).
type Controller interface {
	Run(ctx context.Context, execCtx *ExecutionContext) (*ExecutionResult, error)
}

// BaseAgent wraps a Controller with the active-run bookkeeping and
// context-error classification pkg/agent/base_agent.go performs, so every
// controller gets the same cancellation/timeout handling.
type BaseAgent struct {
	controller Controller
	active     atomic.Bool
}

// NewBaseAgent constructs a BaseAgent around controller, panicking if
// controller is nil — a nil controller is a wiring bug, not a runtime
// condition to handle gracefully.
func NewBaseAgent(controller Controller) *BaseAgent {
	if controller == nil {
		panic("agent: NewBaseAgent called with nil controller")
	}
	return &BaseAgent{controller: controller}
}

// Active reports whether Execute is currently running.
func (a *BaseAgent) Active() bool {
	return a.active.Load()
}

// Execute runs the wrapped controller, classifying context cancellation
// and deadline errors into the matching ExecutionStatus the way
// pkg/agent/base_agent.go does — using errors.Is on the error the
// controller returns, not ctx.Err(), since the controller may wrap the
// context error.
func (a *BaseAgent) Execute(ctx context.Context, execCtx *ExecutionContext) (*ExecutionResult, error) {
	a.active.Store(true)
	defer a.active.Store(false)

	result, err := a.controller.Run(ctx, execCtx)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return &ExecutionResult{Status: ExecutionStatusTimedOut, Err: err}, nil
		case errors.Is(err, context.Canceled):
			return &ExecutionResult{Status: ExecutionStatusCancelled, Err: err}, nil
		default:
			return &ExecutionResult{Status: ExecutionStatusFailed, Err: err}, nil
		}
	}
	if result == nil {
		return nil, fmt.Errorf("agent: controller returned a nil result with no error")
	}
	return result, nil
}
