package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/wellspringhq/foundation/internal/audit/domain"
	authdomain "github.com/wellspringhq/foundation/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectMember       = "member"
	ObjectRelationship = "relationship"
	ObjectOrgChart     = "orgchart"
	ObjectAuditLog     = "audit_log"
	ObjectUser         = "user"
)

const (
	ActionMemberView   = "member.view"
	ActionMemberCreate = "member.create"
	ActionMemberUpdate = "member.update"
	ActionMemberDelete = "member.delete"

	ActionRelationshipView   = "relationship.view"
	ActionRelationshipCreate = "relationship.create"
	ActionRelationshipUpdate = "relationship.update"
	ActionRelationshipDelete = "relationship.delete"

	ActionOrgChartView = "orgchart.view"

	ActionAuditLogView = "audit_log.view"

	ActionUserManage = "user.manage"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, object, action)
		return err
	}

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, object, action)
		return ErrForbidden
	}

	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		role, err := s.roleForUser(ctx, userID)
		if err != nil {
			return actor, "", "user", &userIDStr, err
		}
		roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
		return actor, roleName, "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).
		Model(&authdomain.User{}).
		Select("role").
		Where("id = ?", userID).
		Limit(1).
		Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, actorType, actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Editors maintain the org chart but cannot manage accounts or read
		// the audit trail.
		{"role:editor", ObjectMember, ActionMemberView},
		{"role:editor", ObjectMember, ActionMemberCreate},
		{"role:editor", ObjectMember, ActionMemberUpdate},
		{"role:editor", ObjectRelationship, ActionRelationshipView},
		{"role:editor", ObjectRelationship, ActionRelationshipCreate},
		{"role:editor", ObjectRelationship, ActionRelationshipUpdate},
		{"role:editor", ObjectRelationship, ActionRelationshipDelete},
		{"role:editor", ObjectOrgChart, ActionOrgChartView},

		// Admin permissions
		{"role:admin", ObjectMember, ActionMemberView},
		{"role:admin", ObjectMember, ActionMemberCreate},
		{"role:admin", ObjectMember, ActionMemberUpdate},
		{"role:admin", ObjectMember, ActionMemberDelete},
		{"role:admin", ObjectRelationship, ActionRelationshipView},
		{"role:admin", ObjectRelationship, ActionRelationshipCreate},
		{"role:admin", ObjectRelationship, ActionRelationshipUpdate},
		{"role:admin", ObjectRelationship, ActionRelationshipDelete},
		{"role:admin", ObjectOrgChart, ActionOrgChartView},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
		{"role:admin", ObjectUser, ActionUserManage},

		// System permissions (seeding and migrations)
		{"role:system", ObjectMember, ActionMemberCreate},
		{"role:system", ObjectMember, ActionMemberUpdate},
		{"role:system", ObjectUser, ActionUserManage},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
