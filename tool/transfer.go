package tool

import (
	"fmt"

	"github.com/hupe1980/meshstream/core"
)

// TransferName returns the operation name used to hand control back to target.
func TransferName(target string) string { return "transfer_back_to_" + target }

// NewTransfer returns an operation that requests explicit transfer of control
// to target instead of producing a final answer. The runtime recognises the
// *core.Handoff result and ends its loop.
func NewTransfer(target string) Operation {
	return NewFunctionTool(
		TransferName(target),
		fmt.Sprintf("Hand control back to %s without a final answer. Use when the task is outside your competence.", target),
		map[string]any{
			"type": "object",
			"properties": map[string]any{
				"reason": map[string]any{"type": "string", "description": "Why control is handed back"},
			},
		},
		func(tc *core.ToolContext, args map[string]any) (any, error) {
			reason, _ := args["reason"].(string)
			return &core.Handoff{From: tc.Caller(), To: target, Reason: reason}, nil
		},
	)
}
