package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/user"
)

const dateLayout = "2006-01-02"

// toolFunc is the body of a tool once the actor is known.
type toolFunc[In any] func(ctx context.Context, actor *user.User, in In) (any, error)

func addTool[In any](server *sdkmcp.Server, name, description string, fn toolFunc[In]) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: name, Description: description},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in In) (*sdkmcp.CallToolResult, any, error) {
			actor := actorFrom(ctx)
			if actor == nil {
				return errorResult(fmt.Errorf("%w: no acting user", errUnauthorized))
			}
			out, err := fn(ctx, actor, in)
			if err != nil {
				return errorResult(err)
			}
			return jsonResult(out)
		})
}

func jsonResult(v any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}

func errorResult(err error) (*sdkmcp.CallToolResult, any, error) {
	apiErr := MapError(err)
	if apiErr == nil {
		return nil, nil, err
	}
	data, mErr := json.Marshal(map[string]any{"error": apiErr})
	if mErr != nil {
		return nil, nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: true,
	}, nil, nil
}

func registerTools(server *sdkmcp.Server, svc Services) {
	registerProjectTools(server, svc.Projects)
	registerMaintenanceTools(server, svc)
	registerNotificationTools(server, svc.Notifications)
}

func registerProjectTools(server *sdkmcp.Server, projects ProjectService) {
	addTool(server, "create_project",
		"Create a category or minor_repair project. Administrators create approved projects; everyone else creates a Pending request for an approver.",
		func(ctx context.Context, actor *user.User, in CreateProjectParams) (any, error) {
			req, err := in.request()
			if err != nil {
				return nil, err
			}
			return projects.Create(ctx, actor, req)
		})

	addTool(server, "update_project",
		"Change project fields. Creators edit their unapproved projects directly, administrators edit anything, other edits become a request for approval.",
		func(ctx context.Context, actor *user.User, in UpdateProjectParams) (any, error) {
			patch, err := in.Changes.patch()
			if err != nil {
				return nil, err
			}
			req := project.UpdateRequest{
				ID:              in.ID,
				Patch:           patch,
				Approver:        in.Approver,
				ExpectedVersion: in.ExpectedVersion,
			}
			if in.Status != nil {
				status := project.Status(*in.Status)
				if !status.Valid() {
					return nil, &project.ValidationError{Fields: []string{"status"}}
				}
				req.Status = &status
			}
			return projects.Update(ctx, actor, req)
		})

	addTool(server, "delete_project",
		"Delete a project. Unapproved projects are removed immediately by their creator; approved projects need an approved delete request.",
		func(ctx context.Context, actor *user.User, in DeleteProjectParams) (any, error) {
			return projects.Delete(ctx, actor, project.DeleteRequest{
				ID:              in.ID,
				Approver:        in.Approver,
				ExpectedVersion: in.ExpectedVersion,
			})
		})

	addTool(server, "approve_project",
		"Approve the pending edit, creation or delete request on a project.",
		func(ctx context.Context, actor *user.User, in ReviewProjectParams) (any, error) {
			return projects.Approve(ctx, actor, in.ID, in.ExpectedVersion)
		})

	addTool(server, "reject_project",
		"Reject the pending request on a project with a reason. Rejected creations are kept as restorable snapshots.",
		func(ctx context.Context, actor *user.User, in RejectProjectParams) (any, error) {
			return projects.Reject(ctx, actor, in.ID, in.Reason, in.ExpectedVersion)
		})

	addTool(server, "restore_project",
		"Recreate a project from a rejected creation snapshot as an approved project.",
		func(ctx context.Context, actor *user.User, in RejectedIDParams) (any, error) {
			return projects.Restore(ctx, actor, in.RejectedID)
		})

	addTool(server, "purge_rejected",
		"Permanently delete a rejected creation snapshot.",
		func(ctx context.Context, actor *user.User, in RejectedIDParams) (any, error) {
			if err := projects.PurgeRejected(ctx, actor, in.RejectedID); err != nil {
				return nil, err
			}
			return StatusResponse{Status: "purged"}, nil
		})

	addTool(server, "get_project",
		"Get a project with its history and any pending request.",
		func(ctx context.Context, _ *user.User, in GetProjectParams) (any, error) {
			return projects.Get(ctx, in.ID)
		})

	addTool(server, "list_projects",
		"List projects in creation order, optionally filtered by kind, status, unit or financial year.",
		func(ctx context.Context, _ *user.User, in ListProjectsParams) (any, error) {
			opts := project.ListOptions{
				Unit:          in.Unit,
				FinancialYear: in.FinancialYear,
				Limit:         in.Limit,
				Offset:        in.Offset,
			}
			if in.Kind != "" {
				k, err := parseKind(in.Kind)
				if err != nil {
					return nil, err
				}
				opts.Kind = k
			}
			if in.Status != "" {
				status := project.Status(in.Status)
				if !status.Valid() {
					return nil, &project.ValidationError{Fields: []string{"status"}}
				}
				opts.Status = &status
			}
			records, err := projects.List(ctx, opts)
			if err != nil {
				return nil, err
			}
			return ListProjectsResponse{Projects: records}, nil
		})

	addTool(server, "list_rejected",
		"List rejected creation snapshots.",
		func(ctx context.Context, _ *user.User, in ListRejectedParams) (any, error) {
			opts := project.ListRejectedOptions{Limit: in.Limit, Offset: in.Offset}
			if in.Kind != "" {
				k, err := parseKind(in.Kind)
				if err != nil {
					return nil, err
				}
				opts.Kind = k
			}
			rejected, err := projects.ListRejected(ctx, opts)
			if err != nil {
				return nil, err
			}
			return ListRejectedResponse{Rejected: rejected}, nil
		})

	addTool(server, "preview_code",
		"Show the project code the next approval would receive without consuming it.",
		func(ctx context.Context, _ *user.User, in PreviewCodeParams) (any, error) {
			k, err := parseKind(in.Kind)
			if err != nil {
				return nil, err
			}
			c, err := projects.PreviewCode(ctx, code.Request{
				Kind:          k,
				FinancialYear: in.FinancialYear,
				Unit:          in.Unit,
				Wave:          in.Wave,
			})
			if err != nil {
				return nil, err
			}
			return PreviewCodeResponse{Code: c}, nil
		})
}

func registerMaintenanceTools(server *sdkmcp.Server, svc Services) {
	addTool(server, "standardize_codes",
		"Administrators only. Rewrite project codes of a unit (or every unit) into creation order and resynchronize the counters.",
		func(ctx context.Context, actor *user.User, in StandardizeCodesParams) (any, error) {
			if !actor.IsAdmin() {
				return nil, project.ErrForbidden
			}
			if in.Unit == "" {
				results, err := svc.Codes.StandardizeAll(ctx)
				if err != nil {
					return nil, err
				}
				return StandardizeCodesResponse{Results: results}, nil
			}
			res, err := svc.Codes.Standardize(ctx, code.Scope{Unit: in.Unit, Wave: in.Wave})
			if err != nil {
				return nil, err
			}
			return StandardizeCodesResponse{Results: []code.StandardizeResult{*res}}, nil
		})

	addTool(server, "renumber_serials",
		"Administrators only. Reassign dense serial numbers 1..N to a kind in creation order.",
		func(ctx context.Context, actor *user.User, in RenumberSerialsParams) (any, error) {
			if !actor.IsAdmin() {
				return nil, project.ErrForbidden
			}
			k, err := parseKind(in.Kind)
			if err != nil {
				return nil, err
			}
			n, err := svc.Serials.Renumber(ctx, k)
			if err != nil {
				return nil, err
			}
			return RenumberSerialsResponse{Kind: string(k), Renumbered: n}, nil
		})
}

func registerNotificationTools(server *sdkmcp.Server, notifications NotificationService) {
	addTool(server, "list_notifications",
		"List notifications addressed to you, plus those addressed to every approver when you can approve.",
		func(ctx context.Context, actor *user.User, in ListNotificationsParams) (any, error) {
			opts := notification.ListOptions{
				ProjectID: in.ProjectID,
				Limit:     in.Limit,
				Offset:    in.Offset,
			}
			if in.Status != "" {
				status := notification.Status(in.Status)
				if status != notification.StatusPending && status != notification.StatusProcessed {
					return nil, fmt.Errorf("%w: status %q", notification.ErrInvalidInput, in.Status)
				}
				opts.Status = &status
			}
			list, err := notifications.ListForRecipient(ctx, actor.ID, actor.Can(user.CapApprove), opts)
			if err != nil {
				return nil, err
			}
			return ListNotificationsResponse{Notifications: list}, nil
		})

	addTool(server, "mark_notification_processed",
		"Mark a notification as processed.",
		func(ctx context.Context, _ *user.User, in MarkNotificationParams) (any, error) {
			if err := notifications.MarkProcessed(ctx, in.ID); err != nil {
				return nil, err
			}
			return StatusResponse{Status: string(notification.StatusProcessed)}, nil
		})
}

func parseKind(raw string) (kind.Kind, error) {
	k := kind.Kind(strings.TrimSpace(raw))
	if !k.Valid() {
		return "", &project.ValidationError{Fields: []string{"kind"}}
	}
	return k, nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		if t, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, &project.ValidationError{Fields: []string{field}}
		}
	}
	return &t, nil
}

func (in CreateProjectParams) request() (project.CreateRequest, error) {
	k, err := parseKind(in.Kind)
	if err != nil {
		return project.CreateRequest{}, err
	}
	req := project.CreateRequest{
		Kind:           k,
		Name:           in.Name,
		AllocationUnit: in.AllocationUnit,
		AllocationWave: in.AllocationWave,
		FinancialYear:  in.FinancialYear,
		Location:       in.Location,
		Scale:          in.Scale,
		Remarks:        in.Remarks,
		EstimatedCost:  in.EstimatedCost,
		Supervisor:     in.Supervisor,
		Estimator:      in.Estimator,
		Approver:       in.Approver,
		EnteredBy:      in.EnteredBy,
	}
	if req.StartDate, err = parseDate("start_date", in.StartDate); err != nil {
		return req, err
	}
	if req.CompletionDate, err = parseDate("completion_date", in.CompletionDate); err != nil {
		return req, err
	}
	if req.IncidentDate, err = parseDate("incident_date", in.IncidentDate); err != nil {
		return req, err
	}
	return req, nil
}

func (p PatchParams) patch() (project.Patch, error) {
	out := project.Patch{
		Name:           p.Name,
		AllocationUnit: p.AllocationUnit,
		AllocationWave: p.AllocationWave,
		FinancialYear:  p.FinancialYear,
		Location:       p.Location,
		Scale:          p.Scale,
		Remarks:        p.Remarks,
		EstimatedCost:  p.EstimatedCost,
		Supervisor:     p.Supervisor,
		Estimator:      p.Estimator,
	}
	dates := []struct {
		field string
		raw   *string
		dst   **time.Time
	}{
		{"start_date", p.StartDate, &out.StartDate},
		{"completion_date", p.CompletionDate, &out.CompletionDate},
		{"incident_date", p.IncidentDate, &out.IncidentDate},
	}
	for _, d := range dates {
		if d.raw == nil {
			continue
		}
		t, err := parseDate(d.field, *d.raw)
		if err != nil {
			return out, err
		}
		if t == nil {
			return out, &project.ValidationError{Fields: []string{d.field}}
		}
		*d.dst = t
	}
	return out, nil
}
