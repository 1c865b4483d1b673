package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/wellspringhq/foundation/internal/audit/domain"
	authdomain "github.com/wellspringhq/foundation/internal/auth/domain"
	"github.com/wellspringhq/foundation/internal/auth/session"
	"github.com/wellspringhq/foundation/internal/config"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	"github.com/wellspringhq/foundation/internal/notify"
	"github.com/wellspringhq/foundation/internal/orgchart/tree"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
	"gorm.io/gorm"
)

type fakeAuthService struct{}

func (f *fakeAuthService) CreateUser(ctx context.Context, req authdomain.CreateUserRequest) (*authdomain.User, error) {
	return &authdomain.User{ID: snowflake.ID(200), Email: req.Email, Role: req.Role}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	return &authdomain.LoginResult{RawToken: "session-token"}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error { return nil }

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	if rawToken != "session-token" {
		return nil, authdomain.ErrInvalidSession
	}
	return &authdomain.Session{ID: snowflake.ID(300), UserID: snowflake.ID(200)}, nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID string, newPassword string) error {
	return nil
}

func (f *fakeAuthService) GetUser(ctx context.Context, id snowflake.ID) (*authdomain.User, error) {
	return &authdomain.User{ID: id, Email: "admin@example.test", Name: "Admin", Role: authdomain.RoleAdmin}, nil
}

type fakeAuthzService struct {
	denied map[string]bool
}

func (f *fakeAuthzService) Authorize(ctx context.Context, actor, object, action string) error {
	if f.denied[action] {
		return ErrForbidden
	}
	return nil
}

type fakeMemberService struct {
	listCalls   int
	createCalls int
	created     memberdomain.CreateMemberRequest
}

func (f *fakeMemberService) List(ctx context.Context, req memberdomain.ListMemberRequest) ([]memberdomain.Member, error) {
	f.listCalls++
	return []memberdomain.Member{{ID: snowflake.ID(1), Name: "Ada"}}, nil
}

func (f *fakeMemberService) GetByID(ctx context.Context, req memberdomain.GetMemberRequest) (memberdomain.Member, error) {
	return memberdomain.Member{ID: snowflake.ID(1), Name: "Ada"}, nil
}

func (f *fakeMemberService) Create(ctx context.Context, req memberdomain.CreateMemberRequest) (memberdomain.Member, error) {
	f.createCalls++
	f.created = req
	return memberdomain.Member{ID: snowflake.ID(2), Name: req.Name}, nil
}

func (f *fakeMemberService) Update(ctx context.Context, req memberdomain.UpdateMemberRequest) (memberdomain.Member, error) {
	return memberdomain.Member{ID: snowflake.ID(1), Name: "Ada"}, nil
}

func (f *fakeMemberService) Delete(ctx context.Context, req memberdomain.DeleteMemberRequest) error {
	return nil
}

func (f *fakeMemberService) PotentialParents(ctx context.Context, req memberdomain.PotentialParentsRequest) ([]memberdomain.Member, error) {
	return nil, nil
}

type fakeReportingService struct{}

func (f *fakeReportingService) List(ctx context.Context, req reportingdomain.ListRelationshipRequest) ([]reportingdomain.ReportingRelationship, error) {
	return nil, nil
}

func (f *fakeReportingService) Add(ctx context.Context, req reportingdomain.AddRelationshipRequest) (reportingdomain.ReportingRelationship, error) {
	return reportingdomain.ReportingRelationship{}, nil
}

func (f *fakeReportingService) Update(ctx context.Context, req reportingdomain.UpdateRelationshipRequest) (reportingdomain.ReportingRelationship, error) {
	return reportingdomain.ReportingRelationship{}, nil
}

func (f *fakeReportingService) Remove(ctx context.Context, req reportingdomain.RemoveRelationshipRequest) error {
	return nil
}

func (f *fakeReportingService) SyncPrimaryManager(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, managerID *snowflake.ID) error {
	return nil
}

type fakeOrgChartService struct {
	invalidations int
}

func (f *fakeOrgChartService) GetOrgChart(ctx context.Context) (tree.Hierarchy, error) {
	return tree.Hierarchy{}, nil
}

func (f *fakeOrgChartService) GetDepartments(ctx context.Context) ([]tree.DepartmentGroup, error) {
	return nil, nil
}

func (f *fakeOrgChartService) Invalidate() { f.invalidations++ }

type fakeAuditService struct {
	actions []string
}

func (f *fakeAuditService) AuditLog(ctx context.Context, actorType string, actorID *string, action string, targetType string, targetID *string, metadata map[string]any) error {
	f.actions = append(f.actions, action)
	return nil
}

func (f *fakeAuditService) List(ctx context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	return auditdomain.ListAuditLogResponse{}, nil
}

type fakeDispatcher struct {
	events []notify.ChangeEvent
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event notify.ChangeEvent) {
	f.events = append(f.events, event)
}

type serverFixture struct {
	engine    *gin.Engine
	members   *fakeMemberService
	orgcharts *fakeOrgChartService
	audits    *fakeAuditService
	notifier  *fakeDispatcher
	authz     *fakeAuthzService
}

func newTestServer(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	members := &fakeMemberService{}
	orgcharts := &fakeOrgChartService{}
	audits := &fakeAuditService{}
	notifier := &fakeDispatcher{}
	authz := &fakeAuthzService{denied: map[string]bool{}}

	srv := &Server{
		engine:       engine,
		cfg:          config.Config{},
		authsvc:      &fakeAuthService{},
		sessions:     session.NewManager(config.Config{}),
		authzSvc:     authz,
		auditSvc:     audits,
		memberSvc:    members,
		reportingSvc: &fakeReportingService{},
		orgchartSvc:  orgcharts,
		notifier:     notifier,
	}
	srv.registerAuthRoutes()
	srv.registerAPIRoutes()

	return &serverFixture{
		engine:    engine,
		members:   members,
		orgcharts: orgcharts,
		audits:    audits,
		notifier:  notifier,
		authz:     authz,
	}
}

func doRequest(fx *serverFixture, method, path string, body any, withSession bool) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withSession {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "session-token"})
	}
	rec := httptest.NewRecorder()
	fx.engine.ServeHTTP(rec, req)
	return rec
}

func TestListMembersRequiresSession(t *testing.T) {
	fx := newTestServer(t)

	rec := doRequest(fx, http.MethodGet, "/api/v1/members", nil, false)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if fx.members.listCalls != 0 {
		t.Fatalf("service should not be reached without a session")
	}
}

func TestListMembersWithSession(t *testing.T) {
	fx := newTestServer(t)

	rec := doRequest(fx, http.MethodGet, "/api/v1/members", nil, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fx.members.listCalls != 1 {
		t.Fatalf("expected one list call, got %d", fx.members.listCalls)
	}
}

func TestCreateMemberAuditsAndInvalidates(t *testing.T) {
	fx := newTestServer(t)

	rec := doRequest(fx, http.MethodPost, "/api/v1/members", map[string]any{
		"name":      "Grace Hopper",
		"parent_id": "1",
	}, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if fx.members.createCalls != 1 {
		t.Fatalf("expected one create call, got %d", fx.members.createCalls)
	}
	if fx.members.created.Name != "Grace Hopper" || fx.members.created.ParentID != "1" {
		t.Fatalf("unexpected create request: %+v", fx.members.created)
	}
	if len(fx.audits.actions) != 1 || fx.audits.actions[0] != "member.create" {
		t.Fatalf("unexpected audit actions: %v", fx.audits.actions)
	}
	if len(fx.notifier.events) != 1 || fx.notifier.events[0].Kind != notify.KindMemberAdded {
		t.Fatalf("unexpected notify events: %+v", fx.notifier.events)
	}
	if fx.orgcharts.invalidations != 1 {
		t.Fatalf("expected one cache invalidation, got %d", fx.orgcharts.invalidations)
	}
}

func TestDeleteMemberForbiddenForEditor(t *testing.T) {
	fx := newTestServer(t)
	fx.authz.denied["member.delete"] = true

	rec := doRequest(fx, http.MethodDelete, "/api/v1/members/1", nil, true)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if fx.orgcharts.invalidations != 0 {
		t.Fatalf("denied request must not invalidate the chart cache")
	}
}

func TestInvalidMemberPayloadReturnsValidationError(t *testing.T) {
	fx := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/members", bytes.NewBufferString("{"))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: "session-token"})
	rec := httptest.NewRecorder()
	fx.engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
