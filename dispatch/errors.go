package dispatch

import (
	"fmt"
)

// InvalidParametersError reports the first parameter violation found when an
// intent is checked against the capability's declared schema. Fields are
// checked in declaration order, so the reported field is deterministic.
type InvalidParametersError struct {
	Field  string
	Reason string
}

func (e *InvalidParametersError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Reason)
}

// AgentExecutionError wraps a failure from the agent itself, as opposed to a
// dispatch-side failure (unknown capability, invalid parameters). Agent
// failures are surfaced to every waiting caller and never cached.
type AgentExecutionError struct {
	Agent string
	Err   error
}

func (e *AgentExecutionError) Error() string {
	return fmt.Sprintf("agent %q execution failed: %v", e.Agent, e.Err)
}

func (e *AgentExecutionError) Unwrap() error {
	return e.Err
}
