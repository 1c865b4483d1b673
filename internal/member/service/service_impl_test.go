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
	"github.com/wellspringhq/foundation/internal/member/domain"
	memberrepo "github.com/wellspringhq/foundation/internal/member/repository"
	memberservice "github.com/wellspringhq/foundation/internal/member/service"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
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

	require.NoError(t, db.AutoMigrate(&domain.Member{}, &reportingdomain.ReportingRelationship{}))
	return db
}

func newService(t *testing.T, db *gorm.DB) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	memberRepo := memberrepo.Provide()
	relRepo := reportingrepo.Provide()
	relSvc := reportingservice.New(reportingservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Repo:    relRepo,
		Members: memberRepo,
	})

	return memberservice.New(memberservice.Params{
		DB:      db,
		Log:     log,
		GenID:   node,
		Repo:    memberRepo,
		RelRepo: relRepo,
		Sync:    relSvc,
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

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, svc domain.Service, req domain.CreateMemberRequest) domain.Member {
	t.Helper()

	m, err := svc.Create(actorCtx(), req)
	require.NoError(t, err)
	return m
}

func relationshipsFor(t *testing.T, db *gorm.DB, id snowflake.ID) []reportingdomain.ReportingRelationship {
	t.Helper()

	var rels []reportingdomain.ReportingRelationship
	require.NoError(t, db.Where("member_id = ?", id).Find(&rels).Error)
	return rels
}

func TestCreateMemberSlugAndDefaults(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	m := mustCreate(t, svc, domain.CreateMemberRequest{
		Name:       "Grace Hopper",
		Department: strPtr("Executive"),
		Position:   map[string]any{"en": "Director"},
	})

	assert.Equal(t, "grace-hopper", m.Slug)
	assert.True(t, m.IsActive)
	assert.Nil(t, m.ParentID)
}

func TestCreateMemberDuplicateNameGetsSuffixedSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	first := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Grace Hopper"})
	second := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Grace Hopper"})

	assert.Equal(t, "grace-hopper", first.Slug)
	assert.Equal(t, "grace-hopper-"+second.ID.String(), second.Slug)
}

func TestCreateMemberWithParentCreatesPrimaryEdge(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	parent := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	child := mustCreate(t, svc, domain.CreateMemberRequest{
		Name:     "Bob",
		ParentID: parent.ID.String(),
	})

	require.NotNil(t, child.ParentID)
	assert.Equal(t, parent.ID, *child.ParentID)

	rels := relationshipsFor(t, db, child.ID)
	require.Len(t, rels, 1)
	assert.True(t, rels[0].IsPrimary)
	assert.Equal(t, parent.ID, rels[0].ManagerID)
}

func TestCreateMemberUnknownParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	_, err := svc.Create(actorCtx(), domain.CreateMemberRequest{
		Name:     "Bob",
		ParentID: "424242",
	})
	assert.ErrorIs(t, err, domain.ErrParentNotFound)
}

func TestCreateMemberRequiresActor(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	_, err := svc.Create(context.Background(), domain.CreateMemberRequest{Name: "Bob"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUpdateMemberReparent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	first := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	second := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Carol"})
	child := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob", ParentID: first.ID.String()})

	updated, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:       child.ID.String(),
		ParentID: strPtr(second.ID.String()),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, second.ID, *updated.ParentID)

	var primary int64
	require.NoError(t, db.Model(&reportingdomain.ReportingRelationship{}).
		Where("member_id = ? AND is_primary = ?", child.ID, true).
		Count(&primary).Error)
	assert.Equal(t, int64(1), primary)

	rels := relationshipsFor(t, db, child.ID)
	for _, rel := range rels {
		if rel.IsPrimary {
			assert.Equal(t, second.ID, rel.ManagerID)
		}
	}
}

func TestUpdateMemberRenameToExistingNameGetsSuffixedSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	mustCreate(t, svc, domain.CreateMemberRequest{Name: "Ada Lovelace"})
	grace := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Grace Hopper"})

	updated, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:   grace.ID.String(),
		Name: strPtr("Ada Lovelace"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, "ada-lovelace-"+grace.ID.String(), updated.Slug)
}

func TestUpdateMemberRenameKeepsOwnSlug(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	m := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Grace Hopper"})

	updated, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:   m.ID.String(),
		Name: strPtr("Grace  Hopper"),
	})
	require.NoError(t, err)
	assert.Equal(t, "grace-hopper", updated.Slug)
}

func TestUpdateMemberClearParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	parent := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	child := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob", ParentID: parent.ID.String()})

	updated, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:       child.ID.String(),
		ParentID: strPtr(""),
	})
	require.NoError(t, err)
	assert.Nil(t, updated.ParentID)

	rels := relationshipsFor(t, db, child.ID)
	require.Len(t, rels, 1)
	assert.False(t, rels[0].IsPrimary)
}

func TestUpdateMemberNilParentLeavesUnchanged(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	parent := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	child := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob", ParentID: parent.ID.String()})

	updated, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:   child.ID.String(),
		Name: strPtr("Robert"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Robert", updated.Name)
	assert.Equal(t, "robert", updated.Slug)
	require.NotNil(t, updated.ParentID)
	assert.Equal(t, parent.ID, *updated.ParentID)
}

func TestUpdateMemberSelfParent(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	m := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})

	_, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:       m.ID.String(),
		ParentID: strPtr(m.ID.String()),
	})
	assert.ErrorIs(t, err, domain.ErrSelfReference)
}

func TestDeleteMemberCascades(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	manager := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	child := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob", ParentID: manager.ID.String()})
	grand := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Carol", ParentID: child.ID.String()})

	require.NoError(t, svc.Delete(actorCtx(), domain.DeleteMemberRequest{ID: child.ID.String()}))

	_, err := svc.GetByID(actorCtx(), domain.GetMemberRequest{ID: child.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var edges int64
	require.NoError(t, db.Model(&reportingdomain.ReportingRelationship{}).
		Where("member_id = ? OR manager_id = ?", child.ID, child.ID).
		Count(&edges).Error)
	assert.Equal(t, int64(0), edges)

	got, err := svc.GetByID(actorCtx(), domain.GetMemberRequest{ID: grand.ID.String()})
	require.NoError(t, err)
	assert.Nil(t, got.ParentID)
}

func TestPotentialParentsExcludesDescendants(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	root := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	mid := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob", ParentID: root.ID.String()})
	leaf := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Carol", ParentID: mid.ID.String()})
	other := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Dan"})

	eligible, err := svc.PotentialParents(actorCtx(), domain.PotentialParentsRequest{
		ExcludeID: mid.ID.String(),
	})
	require.NoError(t, err)

	ids := make(map[snowflake.ID]bool, len(eligible))
	for _, m := range eligible {
		ids[m.ID] = true
	}
	assert.True(t, ids[root.ID])
	assert.True(t, ids[other.ID])
	assert.False(t, ids[mid.ID], "member cannot manage itself")
	assert.False(t, ids[leaf.ID], "descendant would close a cycle")
}

func TestPotentialParentsExcludesInactive(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	active := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice"})
	retired := mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob"})

	inactive := false
	_, err := svc.Update(actorCtx(), domain.UpdateMemberRequest{
		ID:       retired.ID.String(),
		IsActive: &inactive,
	})
	require.NoError(t, err)

	eligible, err := svc.PotentialParents(actorCtx(), domain.PotentialParentsRequest{})
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, active.ID, eligible[0].ID)
}

func TestListFilters(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)

	mustCreate(t, svc, domain.CreateMemberRequest{Name: "Alice", Department: strPtr("Finance")})
	mustCreate(t, svc, domain.CreateMemberRequest{Name: "Bob", Department: strPtr("Executive")})

	all, err := svc.List(actorCtx(), domain.ListMemberRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	finance, err := svc.List(actorCtx(), domain.ListMemberRequest{Department: "Finance"})
	require.NoError(t, err)
	require.Len(t, finance, 1)
	assert.Equal(t, "Alice", finance[0].Name)
}
