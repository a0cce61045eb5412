package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpggio/worksreg/internal/domain/code"
	"github.com/rpggio/worksreg/internal/domain/kind"
	"github.com/rpggio/worksreg/internal/domain/notification"
	"github.com/rpggio/worksreg/internal/domain/project"
	"github.com/rpggio/worksreg/internal/domain/user"
)

type stubResolver struct {
	users  map[string]*user.User
	tokens map[string]*user.User
}

func (r stubResolver) ResolveToken(_ context.Context, token string) (*user.User, error) {
	if u, ok := r.tokens[token]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

func (r stubResolver) Resolve(_ context.Context, ident string) (*user.User, error) {
	if u, ok := r.users[ident]; ok {
		return u, nil
	}
	return nil, user.ErrUserNotFound
}

type stubProjects struct {
	createReq  project.CreateRequest
	updateReq  project.UpdateRequest
	actor      *user.User
	listOpts   project.ListOptions
	approveErr error
}

func (s *stubProjects) Create(_ context.Context, actor *user.User, req project.CreateRequest) (*project.Result, error) {
	s.actor = actor
	s.createReq = req
	return &project.Result{
		Record:  &project.Record{ID: "p-1", Kind: req.Kind, Name: req.Name, Status: project.StatusPending, Version: 1},
		Outcome: project.OutcomeCreated,
	}, nil
}

func (s *stubProjects) Update(_ context.Context, actor *user.User, req project.UpdateRequest) (*project.Result, error) {
	s.actor = actor
	s.updateReq = req
	return &project.Result{Outcome: project.OutcomeEditRequested}, nil
}

func (s *stubProjects) Delete(context.Context, *user.User, project.DeleteRequest) (*project.Result, error) {
	return &project.Result{Outcome: project.OutcomeDeleted}, nil
}

func (s *stubProjects) Approve(context.Context, *user.User, string, *int64) (*project.Result, error) {
	if s.approveErr != nil {
		return nil, s.approveErr
	}
	return &project.Result{Outcome: project.OutcomeApproved}, nil
}

func (s *stubProjects) Reject(_ context.Context, _ *user.User, _ string, reason string, _ *int64) (*project.Result, error) {
	if reason == "" {
		return nil, project.ErrMissingReason
	}
	return &project.Result{Outcome: project.OutcomeRejected}, nil
}

func (s *stubProjects) Restore(context.Context, *user.User, string) (*project.Result, error) {
	return &project.Result{Outcome: project.OutcomeRestored}, nil
}

func (s *stubProjects) PurgeRejected(context.Context, *user.User, string) error { return nil }

func (s *stubProjects) Get(_ context.Context, id string) (*project.Record, error) {
	if id != "p-1" {
		return nil, fmt.Errorf("load %s: %w", id, project.ErrProjectNotFound)
	}
	return &project.Record{ID: "p-1", Name: "Road works"}, nil
}

func (s *stubProjects) List(_ context.Context, opts project.ListOptions) ([]project.Record, error) {
	s.listOpts = opts
	return []project.Record{{ID: "p-1"}}, nil
}

func (s *stubProjects) ListRejected(context.Context, project.ListRejectedOptions) ([]project.RejectedRecord, error) {
	return nil, nil
}

func (s *stubProjects) PreviewCode(_ context.Context, req code.Request) (string, error) {
	return code.Format(req.Kind, req.FinancialYear, "NTH", "01", 1), nil
}

type stubCodes struct{ calls int }

func (s *stubCodes) Standardize(_ context.Context, scope code.Scope) (*code.StandardizeResult, error) {
	s.calls++
	return &code.StandardizeResult{Scope: scope, Changed: 2, Total: 3}, nil
}

func (s *stubCodes) StandardizeAll(context.Context) ([]code.StandardizeResult, error) {
	s.calls++
	return []code.StandardizeResult{{Scope: code.Scope{Unit: "u-1"}}}, nil
}

type stubSerials struct{}

func (stubSerials) Renumber(context.Context, kind.Kind) (int, error) { return 4, nil }

type stubNotifications struct {
	recipient string
	approver  bool
}

func (s *stubNotifications) ListForRecipient(_ context.Context, recipient string, approver bool, _ notification.ListOptions) ([]notification.Notification, error) {
	s.recipient = recipient
	s.approver = approver
	return []notification.Notification{{ID: "n-1", Type: notification.TypeNew}}, nil
}

func (s *stubNotifications) MarkProcessed(_ context.Context, id string) error {
	if id != "n-1" {
		return notification.ErrNotFound
	}
	return nil
}

var (
	adminUser  = &user.User{ID: "u-admin", Username: "admin", Role: user.RoleAdmin}
	editorUser = &user.User{ID: "u-ed", Username: "ed", Role: user.RoleEditor, Permissions: user.Permissions{Add: true, Edit: true}}
)

type fixture struct {
	projects      *stubProjects
	codes         *stubCodes
	notifications *stubNotifications
	session       *sdkmcp.ClientSession
}

func newFixture(t *testing.T, defaultActor string) *fixture {
	t.Helper()
	f := &fixture{
		projects:      &stubProjects{},
		codes:         &stubCodes{},
		notifications: &stubNotifications{},
	}
	server := NewServer(Config{
		Services: Services{
			Projects:      f.projects,
			Codes:         f.codes,
			Serials:       stubSerials{},
			Notifications: f.notifications,
		},
		Actors: stubResolver{users: map[string]*user.User{
			"admin": adminUser,
			"ed":    editorUser,
		}},
		TransportMode: "stdio",
		DefaultActor:  defaultActor,
	})

	ctx := context.Background()
	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		session.Close()
		serverSession.Wait()
	})
	f.session = session
	return f
}

func (f *fixture) call(t *testing.T, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := f.session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(t *testing.T, res *sdkmcp.CallToolResult) string {
	t.Helper()
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func toolError(t *testing.T, res *sdkmcp.CallToolResult) APIError {
	t.Helper()
	require.True(t, res.IsError)
	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &body))
	return body.Error
}

func TestTools_Registered(t *testing.T) {
	f := newFixture(t, "ed")
	res, err := f.session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{
		"create_project", "update_project", "delete_project", "approve_project",
		"reject_project", "restore_project", "purge_rejected", "get_project",
		"list_projects", "list_rejected", "preview_code", "standardize_codes",
		"renumber_serials", "list_notifications", "mark_notification_processed",
	} {
		assert.True(t, names[name], "missing tool %s", name)
	}
}

func TestCreateProject_ParsesDatesAndActsAsDefaultActor(t *testing.T) {
	f := newFixture(t, "ed")

	res := f.call(t, "create_project", map[string]any{
		"kind":            "minor_repair",
		"name":            "Roof leak",
		"allocation_unit": "North",
		"financial_year":  2025,
		"incident_date":   "2025-03-04",
	})
	require.False(t, res.IsError, resultText(t, res))

	assert.Equal(t, editorUser, f.projects.actor)
	assert.Equal(t, kind.MinorRepair, f.projects.createReq.Kind)
	require.NotNil(t, f.projects.createReq.IncidentDate)
	assert.Equal(t, time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC), *f.projects.createReq.IncidentDate)

	var out project.Result
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, project.OutcomeCreated, out.Outcome)
}

func TestCreateProject_InvalidInputs(t *testing.T) {
	f := newFixture(t, "ed")

	res := f.call(t, "create_project", map[string]any{
		"kind": "bridge", "name": "X", "allocation_unit": "North", "financial_year": 2025,
	})
	apiErr := toolError(t, res)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)

	res = f.call(t, "create_project", map[string]any{
		"kind": "category", "name": "X", "allocation_unit": "North", "financial_year": 2025,
		"start_date": "04/03/2025",
	})
	apiErr = toolError(t, res)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)
	assert.Contains(t, resultText(t, res), "start_date")
}

func TestUpdateProject_BuildsPatch(t *testing.T) {
	f := newFixture(t, "ed")

	res := f.call(t, "update_project", map[string]any{
		"id":               "p-1",
		"changes":          map[string]any{"name": "Renamed", "completion_date": "2025-12-31"},
		"expected_version": 3,
	})
	require.False(t, res.IsError, resultText(t, res))

	req := f.projects.updateReq
	assert.Equal(t, "p-1", req.ID)
	require.NotNil(t, req.Patch.Name)
	assert.Equal(t, "Renamed", *req.Patch.Name)
	require.NotNil(t, req.Patch.CompletionDate)
	assert.Nil(t, req.Patch.StartDate)
	require.NotNil(t, req.ExpectedVersion)
	assert.Equal(t, int64(3), *req.ExpectedVersion)
	assert.Nil(t, req.Status)
}

func TestUpdateProject_RejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, "admin")
	res := f.call(t, "update_project", map[string]any{
		"id": "p-1", "changes": map[string]any{}, "status": "Archived",
	})
	assert.Equal(t, "VALIDATION_FAILED", toolError(t, res).Code)
}

func TestApproveProject_MapsDomainErrors(t *testing.T) {
	f := newFixture(t, "ed")

	f.projects.approveErr = project.ErrForbidden
	assert.Equal(t, "FORBIDDEN", toolError(t, f.call(t, "approve_project", map[string]any{"id": "p-1"})).Code)

	f.projects.approveErr = fmt.Errorf("approve: %w", project.ErrNoPendingAction)
	assert.Equal(t, "NO_PENDING_ACTION", toolError(t, f.call(t, "approve_project", map[string]any{"id": "p-1"})).Code)
}

func TestRejectProject_RequiresReason(t *testing.T) {
	f := newFixture(t, "admin")
	res := f.call(t, "reject_project", map[string]any{"id": "p-1", "reason": ""})
	apiErr := toolError(t, res)
	assert.Equal(t, "VALIDATION_FAILED", apiErr.Code)
}

func TestGetProject_NotFound(t *testing.T) {
	f := newFixture(t, "ed")
	res := f.call(t, "get_project", map[string]any{"id": "missing"})
	assert.Equal(t, "NOT_FOUND", toolError(t, res).Code)
}

func TestListProjects_Filters(t *testing.T) {
	f := newFixture(t, "ed")
	res := f.call(t, "list_projects", map[string]any{"kind": "category", "status": "Approved", "limit": 5})
	require.False(t, res.IsError, resultText(t, res))

	assert.Equal(t, kind.Category, f.projects.listOpts.Kind)
	require.NotNil(t, f.projects.listOpts.Status)
	assert.Equal(t, project.StatusApproved, *f.projects.listOpts.Status)
	assert.Equal(t, 5, f.projects.listOpts.Limit)
}

func TestPreviewCode(t *testing.T) {
	f := newFixture(t, "ed")
	res := f.call(t, "preview_code", map[string]any{"kind": "category", "financial_year": 2025, "unit": "North"})
	require.False(t, res.IsError, resultText(t, res))

	var out PreviewCodeResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	assert.Equal(t, "C0125NTH001", out.Code)
}

func TestMaintenanceTools_RequireAdmin(t *testing.T) {
	f := newFixture(t, "ed")

	assert.Equal(t, "FORBIDDEN", toolError(t, f.call(t, "standardize_codes", map[string]any{"unit": "North"})).Code)
	assert.Equal(t, "FORBIDDEN", toolError(t, f.call(t, "renumber_serials", map[string]any{"kind": "category"})).Code)
	assert.Zero(t, f.codes.calls)
}

func TestMaintenanceTools_Admin(t *testing.T) {
	f := newFixture(t, "admin")

	res := f.call(t, "standardize_codes", map[string]any{"unit": "North"})
	require.False(t, res.IsError, resultText(t, res))
	var out StandardizeCodesResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &out))
	require.Len(t, out.Results, 1)
	assert.Equal(t, 2, out.Results[0].Changed)

	res = f.call(t, "standardize_codes", map[string]any{})
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, 2, f.codes.calls)

	res = f.call(t, "renumber_serials", map[string]any{"kind": "minor_repair"})
	require.False(t, res.IsError, resultText(t, res))
	var renum RenumberSerialsResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &renum))
	assert.Equal(t, 4, renum.Renumbered)
}

func TestNotifications(t *testing.T) {
	f := newFixture(t, "admin")

	res := f.call(t, "list_notifications", map[string]any{"status": "pending"})
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "u-admin", f.notifications.recipient)
	assert.True(t, f.notifications.approver)

	res = f.call(t, "list_notifications", map[string]any{"status": "unknown"})
	assert.Equal(t, "VALIDATION_FAILED", toolError(t, res).Code)

	res = f.call(t, "mark_notification_processed", map[string]any{"id": "n-2"})
	assert.Equal(t, "NOT_FOUND", toolError(t, res).Code)

	res = f.call(t, "mark_notification_processed", map[string]any{"id": "n-1"})
	require.False(t, res.IsError, resultText(t, res))
}

func TestNoActor_Unauthorized(t *testing.T) {
	f := newFixture(t, "")
	res := f.call(t, "get_project", map[string]any{"id": "p-1"})
	assert.Equal(t, "UNAUTHORIZED", toolError(t, res).Code)
}

type headerRequest struct {
	sdkmcp.Request
	extra *sdkmcp.RequestExtra
}

func (r headerRequest) GetExtra() *sdkmcp.RequestExtra { return r.extra }

func TestAuthMiddleware(t *testing.T) {
	resolver := stubResolver{tokens: map[string]*user.User{"secret": editorUser}}
	var seen *user.User
	handler := authMiddleware(resolver)(func(ctx context.Context, _ string, _ sdkmcp.Request) (sdkmcp.Result, error) {
		seen = actorFrom(ctx)
		return nil, nil
	})

	header := http.Header{}
	header.Set("Authorization", "Bearer secret")
	_, err := handler(context.Background(), "tools/call", headerRequest{extra: &sdkmcp.RequestExtra{Header: header}})
	require.NoError(t, err)
	assert.Equal(t, editorUser, seen)

	header.Set("Authorization", "Bearer wrong")
	_, err = handler(context.Background(), "tools/call", headerRequest{extra: &sdkmcp.RequestExtra{Header: header}})
	assert.ErrorIs(t, err, errUnauthorized)

	_, err = handler(context.Background(), "tools/call", headerRequest{extra: &sdkmcp.RequestExtra{Header: http.Header{}}})
	assert.ErrorIs(t, err, errUnauthorized)

	seen = nil
	_, err = handler(context.Background(), "initialize", headerRequest{})
	require.NoError(t, err)
	assert.Nil(t, seen)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{project.ErrProjectNotFound, "NOT_FOUND"},
		{project.ErrRejectedNotFound, "NOT_FOUND"},
		{project.ErrForbidden, "FORBIDDEN"},
		{project.ErrConflict, "CONFLICT"},
		{project.ErrReviewInFlight, "CONFLICT"},
		{fmt.Errorf("create: %w", project.ErrDuplicateProject), "DUPLICATE"},
		{&project.ValidationError{Fields: []string{"name"}}, "VALIDATION_FAILED"},
		{project.ErrNoPendingAction, "NO_PENDING_ACTION"},
		{code.ErrAllocation, "ALLOCATION_FAILED"},
		{errUnauthorized, "UNAUTHORIZED"},
	}
	for _, tc := range cases {
		t.Run(tc.code+"/"+tc.err.Error(), func(t *testing.T) {
			apiErr := MapError(tc.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tc.code, apiErr.Code)
		})
	}

	assert.Nil(t, MapError(nil))
	assert.Nil(t, MapError(fmt.Errorf("boom")))

	apiErr := MapError(&project.ValidationError{Fields: []string{"name", "incident_date"}})
	assert.Equal(t, map[string]any{"fields": []string{"name", "incident_date"}}, apiErr.Details)
}
