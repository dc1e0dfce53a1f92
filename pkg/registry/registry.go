// Package registry maps node types to runner factories.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/flowd-io/flowd/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.RunnerFactory
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		logger:    log,
		factories: make(map[string]protocol.RunnerFactory),
	}
}

func (r *Registry) Register(factory protocol.RunnerFactory) {
	r.factories[factory.ID()] = factory
}

// Registered reports whether a runner factory exists for the node type.
func (r *Registry) Registered(nodeType string) bool {
	_, ok := r.factories[nodeType]

	return ok
}

// Factories returns the registered factories sorted by node type.
func (r *Registry) Factories() []protocol.RunnerFactory {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	factories := make([]protocol.RunnerFactory, 0, len(ids))
	for _, id := range ids {
		factories = append(factories, r.factories[id])
	}

	return factories
}

// Create validates the node configuration against the factory's schema and
// builds a runner for it.
func (r *Registry) Create(ctx context.Context, nodeType, nodeID string, config map[string]any, deps protocol.Dependencies) (protocol.Runner, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	if schema := factory.Schema(); schema != nil {
		if err := validateJSONSchema(config, schema); err != nil {
			return nil, fmt.Errorf("invalid configuration for node %s (%s): %w", nodeID, nodeType, err)
		}
	}

	return factory.Create(ctx, nodeID, config, deps)
}

func validateJSONSchema(config map[string]any, schema map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(schema)

	if config == nil {
		config = map[string]any{}
	}

	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errs []string
		for _, resultError := range result.Errors() {
			errs = append(errs, resultError.String())
		}

		return fmt.Errorf("JSON schema validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
