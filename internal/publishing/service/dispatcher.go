package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/auth"
	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

var commandCapabilities = map[model.CommandKind]auth.Capability{
	model.CommandSubmit:  auth.CanSubmit,
	model.CommandApprove: auth.CanApprove,
	model.CommandReject:  auth.CanReject,
	model.CommandAdvance: auth.CanAdvance,
	model.CommandReorder: auth.CanReorderCatalog,
}

// Dispatcher executes state-changing commands. Every command is checked against the
// principal's capabilities and validated before any state is touched.
type Dispatcher struct {
	manuscripts *ManuscriptService
	pipeline    *PipelineService
	catalog     *CatalogService
}

func NewDispatcher(manuscripts *ManuscriptService, pipeline *PipelineService, catalog *CatalogService) *Dispatcher {
	return &Dispatcher{manuscripts: manuscripts, pipeline: pipeline, catalog: catalog}
}

// Execute runs cmd on behalf of principal. The result type depends on the command:
// *model.Manuscript for submit and reject, *model.ApprovalResult for approve,
// *model.PipelineView for advance and *model.StageCatalog for reorder.
func (d *Dispatcher) Execute(ctx context.Context, principal *auth.Principal, cmd model.Command) (any, error) {
	if cmd == nil {
		return nil, model.NewValidationError("command", "is required")
	}
	capability, ok := commandCapabilities[cmd.Kind()]
	if !ok {
		return nil, model.NewValidationError("command", fmt.Sprintf("unknown command %q", cmd.Kind()))
	}
	if err := auth.Require(principal, capability); err != nil {
		slog.WarnContext(ctx, "command rejected", "command", cmd.Kind(), "error", err)
		return nil, err
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var (
		result any
		err    error
	)
	switch c := cmd.(type) {
	case model.SubmitCommand:
		result, err = d.manuscripts.Submit(ctx, principal, c)
	case model.ApproveCommand:
		result, err = d.manuscripts.Approve(ctx, principal, c)
	case model.RejectCommand:
		result, err = d.manuscripts.Reject(ctx, principal, c)
	case model.AdvanceCommand:
		result, err = d.pipeline.Advance(ctx, c)
	case model.ReorderCommand:
		result, err = d.catalog.Reorder(ctx, c)
	default:
		return nil, model.NewValidationError("command", fmt.Sprintf("unsupported command type %T", cmd))
	}
	// a failed call returns a typed nil pointer, which must not leak into the interface
	if err != nil {
		return nil, err
	}
	return result, nil
}
