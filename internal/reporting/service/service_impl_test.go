package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellspringhq/foundation/internal/actorcontext"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	memberrepo "github.com/wellspringhq/foundation/internal/member/repository"
	"github.com/wellspringhq/foundation/internal/reporting/domain"
	reportingrepo "github.com/wellspringhq/foundation/internal/reporting/repository"
	reportingservice "github.com/wellspringhq/foundation/internal/reporting/service"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&memberdomain.Member{}, &domain.ReportingRelationship{}))
	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(7)
	require.NoError(t, err)

	return reportingservice.New(reportingservice.Params{
		DB:      db,
		Log:     zaptest.NewLogger(t),
		GenID:   node,
		Repo:    reportingrepo.Provide(),
		Members: memberrepo.Provide(),
	})
}

func actorCtx() context.Context {
	return actorcontext.WithActor(context.Background(), actorcontext.Actor{
		ID:    "1",
		Email: "admin@wellspring.org",
		Name:  "Admin",
		Role:  "admin",
	})
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) memberdomain.Member {
	t.Helper()

	now := time.Now().UTC()
	m := memberdomain.Member{
		ID:        node.Generate(),
		Name:      name,
		Slug:      fmt.Sprintf("%s-%d", name, now.UnixNano()),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func reloadMember(t *testing.T, db *gorm.DB, id snowflake.ID) memberdomain.Member {
	t.Helper()

	var m memberdomain.Member
	require.NoError(t, db.First(&m, "id = ?", id).Error)
	return m
}

func TestAddPrimaryRelationshipSetsParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	rel, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		IsPrimary:  true,
		ReportType: "direct",
	})
	require.NoError(t, err)
	assert.True(t, rel.IsPrimary)
	assert.Equal(t, domain.ReportTypeDirect, rel.ReportType)

	got := reloadMember(t, db, report.ID)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, manager.ID, *got.ParentID)
}

func TestAddSecondPrimaryDemotesFirst(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	first := seedMember(t, db, node, "Alice")
	second := seedMember(t, db, node, "Carol")
	report := seedMember(t, db, node, "Bob")

	_, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  first.ID.String(),
		IsPrimary:  true,
		ReportType: "direct",
	})
	require.NoError(t, err)

	_, err = svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  second.ID.String(),
		IsPrimary:  true,
		ReportType: "direct",
	})
	require.NoError(t, err)

	rels, err := svc.List(actorCtx(), domain.ListRelationshipRequest{MemberID: report.ID.String()})
	require.NoError(t, err)
	require.Len(t, rels, 2)

	primaries := 0
	for _, rel := range rels {
		if rel.IsPrimary {
			primaries++
			assert.Equal(t, second.ID, rel.ManagerID)
		}
	}
	assert.Equal(t, 1, primaries)

	got := reloadMember(t, db, report.ID)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, second.ID, *got.ParentID)
}

func TestAddRejectsDuplicatePair(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	req := domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		ReportType: "dotted",
	}
	_, err := svc.Add(actorCtx(), req)
	require.NoError(t, err)

	_, err = svc.Add(actorCtx(), req)
	assert.ErrorIs(t, err, domain.ErrDuplicateRelationship)
}

func TestAddRejectsSelfReference(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	m := seedMember(t, db, node, "Alice")

	_, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   m.ID.String(),
		ManagerID:  m.ID.String(),
		ReportType: "direct",
	})
	assert.ErrorIs(t, err, domain.ErrSelfReference)
}

func TestAddRejectsUnknownReportType(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	_, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		ReportType: "matrix",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReportType)
}

func TestAddRequiresActor(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	_, err := svc.Add(context.Background(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		ReportType: "direct",
	})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdatePromoteDottedToPrimary(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	rel, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		IsPrimary:  false,
		ReportType: "dotted",
	})
	require.NoError(t, err)
	assert.Nil(t, reloadMember(t, db, report.ID).ParentID)

	primary := true
	updated, err := svc.Update(actorCtx(), domain.UpdateRelationshipRequest{
		ID:        rel.ID.String(),
		IsPrimary: &primary,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsPrimary)

	got := reloadMember(t, db, report.ID)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, manager.ID, *got.ParentID)
}

func TestUpdateDemotePrimaryClearsParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	rel, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		IsPrimary:  true,
		ReportType: "direct",
	})
	require.NoError(t, err)

	primary := false
	_, err = svc.Update(actorCtx(), domain.UpdateRelationshipRequest{
		ID:        rel.ID.String(),
		IsPrimary: &primary,
	})
	require.NoError(t, err)

	assert.Nil(t, reloadMember(t, db, report.ID).ParentID)
}

func TestRemovePrimaryClearsParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	rel, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		IsPrimary:  true,
		ReportType: "direct",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(actorCtx(), domain.RemoveRelationshipRequest{ID: rel.ID.String()}))

	assert.Nil(t, reloadMember(t, db, report.ID).ParentID)

	rels, err := svc.List(actorCtx(), domain.ListRelationshipRequest{MemberID: report.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestRemoveDottedKeepsParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	dotted := seedMember(t, db, node, "Carol")
	report := seedMember(t, db, node, "Bob")

	_, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		IsPrimary:  true,
		ReportType: "direct",
	})
	require.NoError(t, err)

	rel, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  dotted.ID.String(),
		ReportType: "dotted",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(actorCtx(), domain.RemoveRelationshipRequest{ID: rel.ID.String()}))

	got := reloadMember(t, db, report.ID)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, manager.ID, *got.ParentID)
}

func TestSyncPrimaryManagerPromotesExistingEdge(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	_, err := svc.Add(actorCtx(), domain.AddRelationshipRequest{
		MemberID:   report.ID.String(),
		ManagerID:  manager.ID.String(),
		ReportType: "dotted",
	})
	require.NoError(t, err)

	managerID := manager.ID
	require.NoError(t, svc.SyncPrimaryManager(actorCtx(), db, report.ID, &managerID))

	rels, err := svc.List(actorCtx(), domain.ListRelationshipRequest{MemberID: report.ID.String()})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].IsPrimary)
	assert.Equal(t, domain.ReportTypeDotted, rels[0].ReportType)
}

func TestSyncPrimaryManagerIdempotent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	managerID := manager.ID
	require.NoError(t, svc.SyncPrimaryManager(actorCtx(), db, report.ID, &managerID))
	require.NoError(t, svc.SyncPrimaryManager(actorCtx(), db, report.ID, &managerID))

	rels, err := svc.List(actorCtx(), domain.ListRelationshipRequest{MemberID: report.ID.String()})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].IsPrimary)
	assert.Equal(t, domain.ReportTypeDirect, rels[0].ReportType)
}

func TestSyncPrimaryManagerNilClearsPrimaryFlags(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(8)

	manager := seedMember(t, db, node, "Alice")
	report := seedMember(t, db, node, "Bob")

	managerID := manager.ID
	require.NoError(t, svc.SyncPrimaryManager(actorCtx(), db, report.ID, &managerID))
	require.NoError(t, svc.SyncPrimaryManager(actorCtx(), db, report.ID, nil))

	rels, err := svc.List(actorCtx(), domain.ListRelationshipRequest{MemberID: report.ID.String()})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.False(t, rels[0].IsPrimary)
}
