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
	"github.com/wellspringhq/foundation/internal/config"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	memberrepo "github.com/wellspringhq/foundation/internal/member/repository"
	orgchartdomain "github.com/wellspringhq/foundation/internal/orgchart/domain"
	orgchartservice "github.com/wellspringhq/foundation/internal/orgchart/service"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
	reportingrepo "github.com/wellspringhq/foundation/internal/reporting/repository"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&memberdomain.Member{}, &reportingdomain.ReportingRelationship{}))
	return db
}

func newService(t *testing.T, db *gorm.DB) orgchartdomain.Service {
	t.Helper()

	holder, err := config.NewOrgChartConfigHolder()
	require.NoError(t, err)

	return orgchartservice.New(orgchartservice.Params{
		DB:      db,
		Log:     zaptest.NewLogger(t),
		Members: memberrepo.Provide(),
		Rels:    reportingrepo.Provide(),
		Holder:  holder,
	})
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, name, department string, parentID *snowflake.ID) memberdomain.Member {
	t.Helper()

	now := time.Now().UTC()
	m := memberdomain.Member{
		ID:        node.Generate(),
		Name:      name,
		Slug:      fmt.Sprintf("%s-%d", name, now.UnixNano()),
		IsActive:  true,
		ParentID:  parentID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if department != "" {
		m.Department = &department
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}

func TestGetOrgChartBuildsForest(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(4)

	root := seedMember(t, db, node, "Alice", "Executive", nil)
	child := seedMember(t, db, node, "Bob", "Program", &root.ID)
	seedMember(t, db, node, "Carol", "Finance", &child.ID)

	hierarchy, err := svc.GetOrgChart(context.Background())
	require.NoError(t, err)
	require.Len(t, hierarchy.Roots, 1)
	assert.Equal(t, "Alice", hierarchy.Roots[0].Member.Name)
	require.Len(t, hierarchy.Roots[0].Children, 1)
	assert.Equal(t, "Bob", hierarchy.Roots[0].Children[0].Member.Name)
	require.Len(t, hierarchy.Roots[0].Children[0].Children, 1)
	assert.Equal(t, "Carol", hierarchy.Roots[0].Children[0].Children[0].Member.Name)
}

func TestGetOrgChartCachesUntilInvalidate(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(4)

	seedMember(t, db, node, "Alice", "Executive", nil)

	first, err := svc.GetOrgChart(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Roots, 1)

	// Writes that bypass the services do not show up until the cache drops.
	seedMember(t, db, node, "Bob", "Program", nil)

	cached, err := svc.GetOrgChart(context.Background())
	require.NoError(t, err)
	assert.Len(t, cached.Roots, 1)

	svc.Invalidate()

	fresh, err := svc.GetOrgChart(context.Background())
	require.NoError(t, err)
	assert.Len(t, fresh.Roots, 2)
}

func TestGetDepartmentsUsesConfiguredPriority(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(t, db)
	node, _ := snowflake.NewNode(4)

	seedMember(t, db, node, "Frank", "Finance", nil)
	seedMember(t, db, node, "Eve", "Executive", nil)
	seedMember(t, db, node, "Oscar", "", nil)

	groups, err := svc.GetDepartments(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)

	// Canonical priority puts Executive before Finance; the fallback bucket
	// for members without a department always comes last.
	assert.Equal(t, "Executive", groups[0].Department)
	assert.Equal(t, "Finance", groups[1].Department)
	assert.Equal(t, "Other", groups[2].Department)
	require.Len(t, groups[2].Members, 1)
	assert.Equal(t, "Oscar", groups[2].Members[0].Name)
}
