package agent

// MaxConsecutiveTimeouts is the number of consecutive per-iteration
// timeouts the controller tolerates before aborting the request, adapted
// from pkg/agent/iteration.go.
const MaxConsecutiveTimeouts = 2

// IterationState tracks one controller run's progress against the stop
// conditions spec.md §4.5 defines, adapted from pkg/agent/iteration.go.
type IterationState struct {
	Count               int
	ConsecutiveTimeouts int
	LastError           string

	lastAction string
	lastInput  string
	repeatCount int

	lastToolError string
	lastToolInput string
	toolErrorRepeatCount int
}

// RecordSuccess resets the consecutive-timeout counter after a successful
// iteration.
func (s *IterationState) RecordSuccess() {
	s.ConsecutiveTimeouts = 0
}

// RecordFailure records one iteration's failure; isTimeout increments the
// consecutive-timeout counter that ShouldAbortOnTimeouts checks.
func (s *IterationState) RecordFailure(errMsg string, isTimeout bool) {
	s.LastError = errMsg
	if isTimeout {
		s.ConsecutiveTimeouts++
	} else {
		s.ConsecutiveTimeouts = 0
	}
}

// ShouldAbortOnTimeouts reports whether the consecutive-timeout budget is
// exhausted.
func (s *IterationState) ShouldAbortOnTimeouts() bool {
	return s.ConsecutiveTimeouts > MaxConsecutiveTimeouts
}

// RecordAction tracks the loop-detection state spec.md §4.5 requires:
// the same action+input repeated three times in a row aborts the request.
// Returns true once the third consecutive repeat is observed.
func (s *IterationState) RecordAction(action, input string) bool {
	if action == s.lastAction && input == s.lastInput {
		s.repeatCount++
	} else {
		s.lastAction, s.lastInput = action, input
		s.repeatCount = 1
	}
	return s.repeatCount >= 3
}

// RecordToolError tracks a tool's fatal-error repetition with unchanged
// input; returns true once the same (action, input) has failed three
// times in a row.
func (s *IterationState) RecordToolError(action, input string) bool {
	if action == s.lastToolError && input == s.lastToolInput {
		s.toolErrorRepeatCount++
	} else {
		s.lastToolError, s.lastToolInput = action, input
		s.toolErrorRepeatCount = 1
	}
	return s.toolErrorRepeatCount >= 3
}

// ResetToolError clears the tool-error repetition counter after a
// successful tool call.
func (s *IterationState) ResetToolError() {
	s.lastToolError, s.lastToolInput = "", ""
	s.toolErrorRepeatCount = 0
}
