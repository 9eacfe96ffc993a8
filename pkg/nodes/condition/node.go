// Package condition implements the branching chatflow node.
package condition

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

// Operators supported by condition nodes. This is deliberately a small fixed
// set, not a rule engine.
const (
	OperatorEquals    = "equals"
	OperatorNotEquals = "not_equals"
	OperatorContains  = "contains"
	OperatorMatches   = "matches"
)

var (
	ErrMissingVariable  = errors.New("condition node requires a variable")
	ErrUnknownOperator  = errors.New("condition node operator is not supported")
	ErrInvalidPattern   = errors.New("condition node matches pattern is invalid")
	errUnreachableState = errors.New("condition evaluation reached an impossible operator")
)

// Node compares a named execution variable against a configured value and
// routes the execution along the matching true/false edge. When the selected
// branch has no edge the execution is routed to the end node instead of being
// left dangling.
type Node struct {
	variable      string
	operator      string
	value         any
	caseSensitive bool
}

func NewNode(config map[string]any) (*Node, error) {
	variable, _ := config["variable"].(string)
	if variable == "" {
		return nil, ErrMissingVariable
	}

	operator, _ := config["operator"].(string)

	switch operator {
	case OperatorEquals, OperatorNotEquals, OperatorContains, OperatorMatches:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, operator)
	}

	caseSensitive := true
	if v, ok := config["case_sensitive"].(bool); ok {
		caseSensitive = v
	}

	return &Node{
		variable:      variable,
		operator:      operator,
		value:         config["value"],
		caseSensitive: caseSensitive,
	}, nil
}

func (n *Node) Interpret(_ context.Context, state *protocol.ExecutionState) (protocol.Outcome, error) {
	result, err := n.evaluate(state.Execution.Variables)
	if err != nil {
		return protocol.Outcome{}, err
	}

	state.Record.ConditionResult = &result

	handle := models.EdgeHandleFalse
	if result {
		handle = models.EdgeHandleTrue
	}

	output := map[string]any{
		"variable": n.variable,
		"operator": n.operator,
		"result":   result,
	}

	target := state.Chatflow.BranchTarget(state.Node.ID, handle)
	if target == "" {
		// No edge for this branch: route to the end node rather than
		// leaving the execution dangling.
		target = state.Chatflow.EndNodeID()
		if target == "" {
			return protocol.Outcome{Kind: protocol.OutcomeComplete, Output: output}, nil
		}
	}

	return protocol.Outcome{
		Kind:       protocol.OutcomeAdvance,
		NextNodeID: target,
		Output:     output,
	}, nil
}

func (n *Node) evaluate(variables map[string]any) (bool, error) {
	actual := stringify(variables[n.variable])
	expected := stringify(n.value)

	if !n.caseSensitive {
		actual = strings.ToLower(actual)
		expected = strings.ToLower(expected)
	}

	switch n.operator {
	case OperatorEquals:
		return actual == expected, nil
	case OperatorNotEquals:
		return actual != expected, nil
	case OperatorContains:
		return strings.Contains(actual, expected), nil
	case OperatorMatches:
		pattern := stringify(n.value)
		if !n.caseSensitive {
			pattern = "(?i)" + pattern
		}

		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}

		return re.MatchString(stringify(variables[n.variable])), nil
	}

	return false, errUnreachableState
}

func stringify(value any) string {
	if value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", value)
}
