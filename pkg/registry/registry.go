// Package registry maps node type tags to pluggable executor factories.
package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"plugin"
	"strings"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/protocol"
	"github.com/xeipuuv/gojsonschema"
)

// NodeType describes a registered node type for API listings and tooling.
type NodeType struct {
	Type          string         `json:"type"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	HasSideEffect bool           `json:"has_side_effect"`
	Schema        map[string]any `json:"schema"`
}

type Registry struct {
	logger        *slog.Logger
	nodeFactories map[string]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		nodeFactories: make(map[string]protocol.NodeFactory),
	}
}

// RegisterNode registers a node factory under its type tag. A later
// registration for the same tag replaces the earlier one.
func (r *Registry) RegisterNode(factory protocol.NodeFactory) {
	r.nodeFactories[factory.ID()] = factory
}

// NodeFactory returns the factory registered under the given type tag.
func (r *Registry) NodeFactory(nodeType string) (protocol.NodeFactory, bool) {
	factory, ok := r.nodeFactories[nodeType]

	return factory, ok
}

// CreateNode creates an executor for the node's declared type.
func (r *Registry) CreateNode(ctx context.Context, nodeType, id string, config map[string]any) (protocol.Executor, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return nil, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.Create(ctx, id, config)
}

// HasSideEffect returns the static side-effect flag for a node type.
func (r *Registry) HasSideEffect(nodeType string) (bool, error) {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return false, fmt.Errorf("node type '%s' not registered", nodeType)
	}

	return factory.HasSideEffect(), nil
}

// NodeTypes returns metadata for every registered node type.
func (r *Registry) NodeTypes() []NodeType {
	types := make([]NodeType, 0, len(r.nodeFactories))

	for _, factory := range r.nodeFactories {
		types = append(types, NodeType{
			Type:          factory.ID(),
			Name:          factory.Name(),
			Description:   factory.Description(),
			HasSideEffect: factory.HasSideEffect(),
			Schema:        factory.Schema(),
		})
	}

	return types
}

// ValidateNodeConfig checks a node's config against its type's JSON schema.
func (r *Registry) ValidateNodeConfig(nodeType string, config map[string]any) error {
	factory, ok := r.nodeFactories[nodeType]
	if !ok {
		return fmt.Errorf("node type '%s' not registered", nodeType)
	}

	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		messages := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			messages = append(messages, desc.String())
		}

		return fmt.Errorf("invalid config: %s", strings.Join(messages, "; "))
	}

	return nil
}

// ValidateWorkflowNodes checks every node's config against its type schema
// and collects one node_config_invalid entry per violation. A run may not
// start while this returns problems.
func (r *Registry) ValidateWorkflowNodes(workflow *models.Workflow) *models.ValidationResult {
	result := models.NewValidationResult()

	for _, node := range workflow.Nodes {
		if err := r.ValidateNodeConfig(node.Type, node.Config); err != nil {
			result.Add(models.NewEngineError(
				models.ErrorCodeNodeConfigInvalid,
				err.Error(),
			).WithPath("nodes/" + node.ID + "/config"))
		}
	}

	return result
}

// LoadNodePlugins loads node factories from shared objects under
// <pluginsPath>/nodes, each exporting a NodeFactory symbol.
func (r *Registry) LoadNodePlugins(pluginsPath string) ([]protocol.NodeFactory, error) {
	rootPath := pluginsPath + "/nodes"
	root := os.DirFS(rootPath)

	pluginPathList, err := fs.Glob(root, "**/*.so")
	if err != nil {
		return nil, err
	}

	logger := r.logger.With(slog.String("path", rootPath))
	logger.Info("Loading node plugins")

	factories := make([]protocol.NodeFactory, 0, len(pluginPathList))

	for _, path := range pluginPathList {
		plg, err := plugin.Open(rootPath + "/" + path)
		if err != nil {
			return nil, fmt.Errorf("failed to open plugin %s: %w", path, err)
		}

		symbol, err := plg.Lookup("NodeFactory")
		if err != nil {
			return nil, fmt.Errorf("plugin %s has no NodeFactory symbol: %w", path, err)
		}

		factory, ok := symbol.(protocol.NodeFactory)
		if !ok {
			return nil, fmt.Errorf("plugin %s NodeFactory has wrong type", path)
		}

		factories = append(factories, factory)

		logger.Info("Loaded node plugin", slog.String("plugin", path))
	}

	return factories, nil
}
