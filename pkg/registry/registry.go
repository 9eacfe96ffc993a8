// Package registry maps chatflow node types to their handler factories and
// validates chatflows before they are published.
package registry

import (
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/guestflow/guestflow/pkg/models"
	"github.com/guestflow/guestflow/pkg/protocol"
)

// Registry holds the handler factory for every known node type. Adding a
// node type means registering a factory; the executor loop never changes.
type Registry struct {
	logger    *slog.Logger
	factories map[models.NodeType]protocol.NodeFactory
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[models.NodeType]protocol.NodeFactory),
	}
}

// Register adds a node factory, replacing any factory already registered
// for the same type.
func (r *Registry) Register(factory protocol.NodeFactory) {
	r.factories[factory.Type()] = factory
}

// Create builds a handler for the given node, validating its configuration
// against the factory's schema first.
func (r *Registry) Create(node *models.Node) (protocol.NodeHandler, error) {
	factory, ok := r.factories[node.Type]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", node.Type)
	}

	if err := r.validateConfig(factory, node); err != nil {
		return nil, err
	}

	return factory.Create(node.Config)
}

// Types returns the registered node types.
func (r *Registry) Types() []models.NodeType {
	types := make([]models.NodeType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}

	return types
}

func (r *Registry) validateConfig(factory protocol.NodeFactory, node *models.Node) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	config := node.Config
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate config for node %s: %w", node.ID, err)
	}

	if !result.Valid() {
		for _, desc := range result.Errors() {
			r.logger.Warn("Invalid node config",
				"node_id", node.ID,
				"node_type", node.Type,
				"error", desc.String())
		}

		return fmt.Errorf("invalid config for node %s (%s): %s", node.ID, node.Type, result.Errors()[0].String())
	}

	return nil
}
