package service

import (
	"context"
	"time"

	"github.com/wellspringhq/foundation/internal/cache"
	"github.com/wellspringhq/foundation/internal/config"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	"github.com/wellspringhq/foundation/internal/observability/metrics"
	"github.com/wellspringhq/foundation/internal/orgchart/domain"
	"github.com/wellspringhq/foundation/internal/orgchart/tree"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	chartCacheKey      = "orgchart"
	departmentCacheKey = "departments"
	snapshotTTL        = 30 * time.Second
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Members memberdomain.Repository
	Rels    reportingdomain.Repository
	Holder  *config.OrgChartConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	members memberdomain.Repository
	rels    reportingdomain.Repository
	holder  *config.OrgChartConfigHolder
	metrics *metrics.Metrics

	charts cache.Cache[string, tree.Hierarchy]
	groups cache.Cache[string, []tree.DepartmentGroup]
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("orgchart.service"),
		members: p.Members,
		rels:    p.Rels,
		holder:  p.Holder,
		metrics: p.Metrics,
		charts:  cache.NewTTLCache[string, tree.Hierarchy](),
		groups:  cache.NewTTLCache[string, []tree.DepartmentGroup](),
	}
}

func (s *Service) GetOrgChart(ctx context.Context) (tree.Hierarchy, error) {
	if hierarchy, ok := s.charts.Get(chartCacheKey); ok {
		return hierarchy, nil
	}

	members, rels, err := s.snapshot(ctx)
	if err != nil {
		return tree.Hierarchy{}, err
	}

	hierarchy := tree.Build(members, rels)
	s.metrics.RecordHierarchyBuild(ctx, "orgchart")
	s.log.Debug("hierarchy rebuilt",
		zap.Int("members", len(members)),
		zap.Int("relationships", len(rels)),
		zap.Int("roots", len(hierarchy.Roots)),
		zap.Int("shared_children", len(hierarchy.SharedChildren)),
	)

	s.charts.Set(chartCacheKey, hierarchy, snapshotTTL)
	return hierarchy, nil
}

func (s *Service) GetDepartments(ctx context.Context) ([]tree.DepartmentGroup, error) {
	if groups, ok := s.groups.Get(departmentCacheKey); ok {
		return groups, nil
	}

	members, err := s.members.List(ctx, s.db, memberdomain.ListMemberFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}

	cfg := s.holder.Get()
	groups := tree.GroupByDepartment(dereference(members), cfg.DepartmentPriority, cfg.FallbackLabel)
	s.metrics.RecordHierarchyBuild(ctx, "departments")

	s.groups.Set(departmentCacheKey, groups, snapshotTTL)
	return groups, nil
}

func (s *Service) Invalidate() {
	s.charts.Purge()
	s.groups.Purge()
}

// snapshot reads members and relationships inside one transaction so the
// builder never sees an edge without its member or vice versa.
func (s *Service) snapshot(ctx context.Context) ([]memberdomain.Member, []reportingdomain.ReportingRelationship, error) {
	var (
		members []memberdomain.Member
		rels    []reportingdomain.ReportingRelationship
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := s.members.List(ctx, tx, memberdomain.ListMemberFilter{})
		if err != nil {
			return err
		}
		members = dereference(items)

		edges, err := s.rels.ListAll(ctx, tx)
		if err != nil {
			return err
		}
		rels = make([]reportingdomain.ReportingRelationship, 0, len(edges))
		for _, edge := range edges {
			if edge == nil {
				continue
			}
			rels = append(rels, *edge)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return members, rels, nil
}

func dereference(items []*memberdomain.Member) []memberdomain.Member {
	members := make([]memberdomain.Member, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}
	return members
}
