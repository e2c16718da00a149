package agent

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/entrhq/recall/pkg/agent/prompts"
	"github.com/entrhq/recall/pkg/agent/tools"
	"github.com/entrhq/recall/pkg/metrics"
	"github.com/entrhq/recall/pkg/types"
)

// processToolCall parses the model's tool call and runs it. Parse failures
// are explained back to the model.
func (a *ChatAgent) processToolCall(ctx context.Context, state *turnState, toolCallContent string) (iterationOutcome, error) {
	call, _, err := tools.ParseToolCall("<tool>" + toolCallContent + "</tool>")
	if err != nil {
		errType := prompts.ErrorTypeInvalidXML
		if errors.Is(err, tools.ErrMissingToolName) {
			errType = prompts.ErrorTypeMissingToolName
		}
		errMsg := prompts.BuildErrorRecoveryMessage(prompts.ErrorRecoveryContext{
			Type:  errType,
			Error: err,
		})
		if a.trackError(errMsg) {
			return iterationOutcome{}, errCircuitBreaker("invalid tool calls")
		}
		a.emitEvent(types.NewErrorEvent(fmt.Errorf("invalid tool call: %w", err)))
		return iterationOutcome{errorContext: errMsg}, nil
	}

	return a.executeTool(ctx, state, *call)
}

// executeToolCall emits events, executes the tool, and handles execution errors
// Returns (result, metadata, outcome, err); outcome is only meaningful when
// the tool failed.
func (a *ChatAgent) executeToolCall(ctx context.Context, tool tools.Tool, toolCall tools.ToolCall) (string, map[string]interface{}, *iterationOutcome, error) {
	argsMap, err := tools.XMLToMap(toolCall.GetArgumentsXML())
	if err != nil {
		// The tool itself reports malformed arguments
		argsMap = make(map[string]interface{})
	}
	a.emitEvent(types.NewToolCallEvent(toolCall.ToolName, argsMap))

	result, metadata, toolErr := tool.Execute(ctx, toolCall.GetArgumentsXML())
	if toolErr != nil {
		if ctx.Err() != nil {
			return "", nil, nil, ctx.Err()
		}
		metrics.ToolCalls.WithLabelValues(toolCall.ToolName, metrics.StatusError).Inc()
		a.emitEvent(types.NewToolResultErrorEvent(toolCall.ToolName, toolErr))

		errMsg := prompts.BuildErrorRecoveryMessage(prompts.ErrorRecoveryContext{
			Type:     prompts.ErrorTypeToolExecution,
			ToolName: toolCall.ToolName,
			Error:    toolErr,
		})
		if a.trackError(errMsg) {
			return "", nil, nil, errCircuitBreaker("tool execution errors")
		}
		return "", nil, &iterationOutcome{errorContext: errMsg}, nil
	}

	metrics.ToolCalls.WithLabelValues(toolCall.ToolName, metrics.StatusOK).Inc()
	return result, metadata, nil, nil
}

// processToolResult handles successful tool execution results
func (a *ChatAgent) processToolResult(state *turnState, tool tools.Tool, toolCall tools.ToolCall, result string, metadata map[string]interface{}) iterationOutcome {
	event := types.NewToolResultEvent(toolCall.ToolName, result)
	if len(metadata) > 0 {
		maps.Copy(event.Metadata, metadata)
	}
	a.emitEvent(event)

	a.resetErrorTracking()

	// The result of a loop-breaking tool is the reply itself
	if tool.IsLoopBreaking() {
		return iterationOutcome{reply: result, done: true}
	}

	state.scratchpad = append(state.scratchpad, prompts.ToolResultMessage(toolCall.ToolName, result))
	return iterationOutcome{}
}

// lookupTool retrieves a tool by name and handles lookup errors
func (a *ChatAgent) lookupTool(toolName string) (tools.Tool, *iterationOutcome, error) {
	tool, exists := a.getTool(toolName)
	if exists {
		return tool, nil, nil
	}

	metrics.ToolCalls.WithLabelValues("unknown", metrics.StatusError).Inc()
	errMsg := prompts.BuildErrorRecoveryMessage(prompts.ErrorRecoveryContext{
		Type:           prompts.ErrorTypeUnknownTool,
		ToolName:       toolName,
		AvailableTools: a.getToolsList(),
	})
	if a.trackError(errMsg) {
		return nil, nil, errCircuitBreaker("unknown tool errors")
	}

	a.emitEvent(types.NewErrorEvent(fmt.Errorf("unknown tool: %s", toolName)))
	return nil, &iterationOutcome{errorContext: errMsg}, nil
}

// executeTool handles tool lookup, execution, and result processing
func (a *ChatAgent) executeTool(ctx context.Context, state *turnState, toolCall tools.ToolCall) (iterationOutcome, error) {
	tool, recovery, err := a.lookupTool(toolCall.ToolName)
	if err != nil {
		return iterationOutcome{}, err
	}
	if recovery != nil {
		return *recovery, nil
	}

	result, metadata, recovery, err := a.executeToolCall(ctx, tool, toolCall)
	if err != nil {
		return iterationOutcome{}, err
	}
	if recovery != nil {
		return *recovery, nil
	}

	return a.processToolResult(state, tool, toolCall, result, metadata), nil
}

// ErrCircuitBreaker is returned when the model repeats the same mistake
// too many times in a row.
var ErrCircuitBreaker = errors.New("circuit breaker triggered")

func errCircuitBreaker(what string) error {
	return fmt.Errorf("%w: %d consecutive %s", ErrCircuitBreaker, maxRepeatedErrors, what)
}

// trackError records errMsg and reports whether the last maxRepeatedErrors
// errors were all identical.
func (a *ChatAgent) trackError(errMsg string) bool {
	a.lastErrors[a.errorIndex] = errMsg
	a.errorIndex = (a.errorIndex + 1) % len(a.lastErrors)

	for _, e := range a.lastErrors {
		if e != errMsg {
			return false
		}
	}
	return true
}

// resetErrorTracking clears the error ring after a successful step.
func (a *ChatAgent) resetErrorTracking() {
	a.lastErrors = [maxRepeatedErrors]string{}
	a.errorIndex = 0
}
