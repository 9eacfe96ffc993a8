package registry

import (
	"errors"
	"fmt"

	"github.com/guestflow/guestflow/pkg/models"
)

// Chatflow validation errors.
var (
	ErrNoTriggerNode        = errors.New("chatflow must have exactly one trigger node")
	ErrAmbiguousEdges       = errors.New("node has multiple outgoing edges without branch handles")
	ErrUnknownNodeType      = errors.New("unknown node type")
	ErrDanglingEdge         = errors.New("edge references a missing node")
	ErrInvalidBranchHandles = errors.New("condition edges must carry true/false handles")
)

// ValidateChatflow checks a chatflow graph before publishing. A node with
// more than one outgoing edge lacking a source-handle discriminator is an
// authoring error, rejected here rather than silently picking one path at
// run time.
func (r *Registry) ValidateChatflow(flow *models.Chatflow) error {
	var errs []error

	triggers := 0

	for _, node := range flow.Nodes {
		if node.Type == models.NodeTypeTrigger {
			triggers++
		}

		factory, ok := r.factories[node.Type]
		if !ok {
			errs = append(errs, fmt.Errorf("node %s: %w: %s", node.ID, ErrUnknownNodeType, node.Type))

			continue
		}

		if err := r.validateConfig(factory, node); err != nil {
			errs = append(errs, err)
		}

		errs = append(errs, validateEdges(flow, node)...)
	}

	if triggers != 1 {
		errs = append(errs, fmt.Errorf("%w (found %d)", ErrNoTriggerNode, triggers))
	}

	for _, edge := range flow.Edges {
		if flow.NodeByID(edge.Source) == nil || flow.NodeByID(edge.Target) == nil {
			errs = append(errs, fmt.Errorf("edge %s: %w", edge.ID, ErrDanglingEdge))
		}
	}

	return errors.Join(errs...)
}

func validateEdges(flow *models.Chatflow, node *models.Node) []error {
	var errs []error

	edges := flow.OutgoingEdges(node.ID)

	if node.Type == models.NodeTypeCondition {
		seen := make(map[string]bool)

		for _, edge := range edges {
			if edge.SourceHandle != models.EdgeHandleTrue && edge.SourceHandle != models.EdgeHandleFalse {
				errs = append(errs, fmt.Errorf("node %s edge %s: %w", node.ID, edge.ID, ErrInvalidBranchHandles))

				continue
			}

			if seen[edge.SourceHandle] {
				errs = append(errs, fmt.Errorf("node %s: duplicate %q handle: %w", node.ID, edge.SourceHandle, ErrAmbiguousEdges))
			}

			seen[edge.SourceHandle] = true
		}

		return errs
	}

	unlabelled := 0

	for _, edge := range edges {
		if edge.SourceHandle == "" {
			unlabelled++
		}
	}

	if unlabelled > 1 {
		errs = append(errs, fmt.Errorf("node %s: %w", node.ID, ErrAmbiguousEdges))
	}

	return errs
}
