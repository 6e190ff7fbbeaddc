// Package registry provides node factory registration for the registry system.
package registry

import (
	"github.com/arcflow/arcflow/pkg/nodes/branch"
	"github.com/arcflow/arcflow/pkg/nodes/end"
	"github.com/arcflow/arcflow/pkg/nodes/filewrite"
	"github.com/arcflow/arcflow/pkg/nodes/httprequest"
	"github.com/arcflow/arcflow/pkg/nodes/llm"
	"github.com/arcflow/arcflow/pkg/nodes/log"
	"github.com/arcflow/arcflow/pkg/nodes/merge"
	"github.com/arcflow/arcflow/pkg/nodes/notify"
	"github.com/arcflow/arcflow/pkg/nodes/script"
	"github.com/arcflow/arcflow/pkg/nodes/sqlquery"
	"github.com/arcflow/arcflow/pkg/nodes/start"
	"github.com/arcflow/arcflow/pkg/nodes/switchnode"
	"github.com/arcflow/arcflow/pkg/nodes/tool"
	"github.com/arcflow/arcflow/pkg/nodes/transform"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	// Boundary nodes
	r.RegisterNode(start.NewStartNodeFactory())
	r.RegisterNode(end.NewEndNodeFactory())

	// Flow control nodes
	r.RegisterNode(branch.NewBranchNodeFactory())
	r.RegisterNode(switchnode.NewSwitchNodeFactory())
	r.RegisterNode(merge.NewMergeNodeFactory())

	// Data nodes
	r.RegisterNode(transform.NewTransformNodeFactory())
	r.RegisterNode(log.NewLogNodeFactory())
	r.RegisterNode(llm.NewLLMNodeFactory())
	r.RegisterNode(httprequest.NewHTTPRequestNodeFactory())

	// Side-effect nodes
	r.RegisterNode(sqlquery.NewSQLQueryNodeFactory())
	r.RegisterNode(script.NewScriptNodeFactory())
	r.RegisterNode(filewrite.NewFileWriteNodeFactory())
	r.RegisterNode(tool.NewToolNodeFactory())
	r.RegisterNode(notify.NewNotifyNodeFactory())
}
