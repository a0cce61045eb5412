package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `worksreg keeps the register of category works and minor repair projects.

Core concepts:
- Project: a category or minor_repair record owned by an allocation unit and a financial year.
- Status: Pending -> Approved -> Allocated -> Completed. Pending projects await an approver.
- Serial number: dense 1..N per kind in creation order. Renumbered after deletions.
- Project code: C{wave}{yy}{unit}{seq} or MR{yy}{unit}{seq}, assigned once and never reused.
- Pending request: at most one edit or delete request awaits review on a project.

Rules of engagement:
1) Browse with list_projects / get_project. Pass expected_version on writes to detect concurrent changes.
2) Write with create_project / update_project / delete_project. The outcome field says whether the change applied or became a request.
3) Review with approve_project / reject_project. Only the designated approver (or an administrator) may act.
4) Check list_notifications for work addressed to you.

Docs:
- worksreg://docs/index
- worksreg://docs/workflows/review
- worksreg://docs/codes
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "worksreg://docs/index",
		Name:        "docs_index",
		Title:       "worksreg docs index",
		Description: "Entry point: tools by task and where to read more.",
		Content: `# worksreg: Docs Index

## Tools by task

- Browse: ` + "`list_projects`" + `, ` + "`get_project`" + `, ` + "`list_rejected`" + `, ` + "`preview_code`" + `.
- Write: ` + "`create_project`" + `, ` + "`update_project`" + `, ` + "`delete_project`" + `.
- Review: ` + "`approve_project`" + `, ` + "`reject_project`" + `, ` + "`restore_project`" + `, ` + "`purge_rejected`" + `.
- Notifications: ` + "`list_notifications`" + `, ` + "`mark_notification_processed`" + `.
- Maintenance (administrators): ` + "`standardize_codes`" + `, ` + "`renumber_serials`" + `.

## Docs

- ` + "`worksreg://docs/workflows/review`" + ` describes who may change what and how requests are reviewed.
- ` + "`worksreg://docs/codes`" + ` describes serial numbers and project codes.

## Errors

Failed tools return ` + "`{\"error\": {code, message, details, recovery_hint}}`" + `. Codes: NOT_FOUND, FORBIDDEN, CONFLICT, DUPLICATE, VALIDATION_FAILED, NO_PENDING_ACTION, ALLOCATION_FAILED, UNAUTHORIZED.
`,
	},
	{
		URI:         "worksreg://docs/workflows/review",
		Name:        "docs_workflow_review",
		Title:       "Workflow: edits, deletes and review",
		Description: "Who may change a project directly and how requests are approved or rejected.",
		Content: `# Workflow: edits, deletes and review

## Creating

- Administrators create Approved projects; they receive a serial number and a project code at once.
- Everyone else with add rights creates a Pending project. Name an ` + "`approver`" + ` or leave it empty to notify every approver.
- Names are unique per kind, allocation unit and financial year, ignoring case and surrounding spaces.

## Editing

- The creator edits an unapproved project directly.
- Administrators edit anything directly. Setting ` + "`approver`" + ` or approving a Pending project through ` + "`status`" + ` also approves any pending edit request.
- Any other edit becomes an edit request. A second request before review merges into the first.
- An edit that changes nothing returns outcome ` + "`no_change`" + `.

## Deleting

- The creator or an administrator deletes an unapproved project directly.
- Approved projects need a delete request and an approval.
- A project carries at most one request: an edit request blocks a delete request and vice versa (CONFLICT).

## Reviewing

- ` + "`approve_project`" + ` applies the pending edit, approves a Pending creation, or carries out a delete request.
- ` + "`reject_project`" + ` needs a reason. Rejected creations are removed and kept as snapshots that ` + "`restore_project`" + ` can bring back.
- Only the designated approver or an administrator may review (FORBIDDEN otherwise).
`,
	},
	{
		URI:         "worksreg://docs/codes",
		Name:        "docs_codes",
		Title:       "Serial numbers and project codes",
		Description: "How serial numbers and project codes are allocated, renumbered and standardized.",
		Content: `# Serial numbers and project codes

## Serial numbers

Each kind has a dense serial sequence 1..N in creation order. Deleting a project renumbers the rest; a periodic sweep repairs any gap left by a failed renumber.

## Project codes

- Category: ` + "`C{wave}{yy}{unit}{seq}`" + `, for example ` + "`C0125NTH001`" + `.
- Minor repair: ` + "`MR{yy}{unit}{seq}`" + `, for example ` + "`MR25NTH001`" + `.

` + "`yy`" + ` is the last two digits of the financial year, ` + "`unit`" + ` is the three character unit short code (XXX when missing) and ` + "`wave`" + ` the two character wave short code (00 when missing). Codes are assigned on approval and never reused, even after deletion.

## Maintenance

` + "`standardize_codes`" + ` rewrites the codes of a unit into creation order and resets the counters to match. ` + "`preview_code`" + ` shows the next code without consuming it.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
