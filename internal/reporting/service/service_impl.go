package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/wellspringhq/foundation/internal/actorcontext"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	"github.com/wellspringhq/foundation/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Members memberdomain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	members memberdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("reporting.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		members: p.Members,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRelationshipRequest) ([]domain.ReportingRelationship, error) {
	memberID, err := s.parseID(req.MemberID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.ListByMember(ctx, s.db, memberID)
	if err != nil {
		return nil, err
	}

	rels := make([]domain.ReportingRelationship, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rels = append(rels, *item)
	}
	return rels, nil
}

func (s *Service) Add(ctx context.Context, req domain.AddRelationshipRequest) (domain.ReportingRelationship, error) {
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		return domain.ReportingRelationship{}, domain.ErrUnauthorized
	}

	memberID, err := s.parseID(req.MemberID)
	if err != nil {
		return domain.ReportingRelationship{}, err
	}
	managerID, err := s.parseID(req.ManagerID)
	if err != nil {
		return domain.ReportingRelationship{}, err
	}
	if memberID == managerID {
		return domain.ReportingRelationship{}, domain.ErrSelfReference
	}

	reportType := domain.ReportType(strings.TrimSpace(req.ReportType))
	if reportType == "" {
		reportType = domain.ReportTypeDirect
	}
	if !reportType.Valid() {
		return domain.ReportingRelationship{}, domain.ErrInvalidReportType
	}

	rel := domain.ReportingRelationship{
		ID:         s.genID.Generate(),
		MemberID:   memberID,
		ManagerID:  managerID,
		IsPrimary:  req.IsPrimary,
		ReportType: reportType,
		Notes:      strings.TrimSpace(req.Notes),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.members.FindByID(ctx, tx, memberID)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrMemberNotFound
		}
		manager, err := s.members.FindByID(ctx, tx, managerID)
		if err != nil {
			return err
		}
		if manager == nil {
			return domain.ErrMemberNotFound
		}

		existing, err := s.repo.FindByPair(ctx, tx, memberID, managerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateRelationship
		}

		if rel.IsPrimary {
			if err := s.repo.ClearPrimary(ctx, tx, memberID); err != nil {
				return err
			}
		}
		if err := s.repo.Insert(ctx, tx, &rel); err != nil {
			return err
		}
		if rel.IsPrimary {
			return s.members.UpdateParentID(ctx, tx, memberID, &rel.ManagerID)
		}
		return nil
	})
	if err != nil {
		return domain.ReportingRelationship{}, err
	}

	return rel, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateRelationshipRequest) (domain.ReportingRelationship, error) {
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		return domain.ReportingRelationship{}, domain.ErrUnauthorized
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.ReportingRelationship{}, err
	}

	if req.ReportType != nil && !domain.ReportType(strings.TrimSpace(*req.ReportType)).Valid() {
		return domain.ReportingRelationship{}, domain.ErrInvalidReportType
	}

	var updated domain.ReportingRelationship
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rel == nil {
			return domain.ErrNotFound
		}

		if req.ReportType != nil {
			rel.ReportType = domain.ReportType(strings.TrimSpace(*req.ReportType))
		}
		if req.Notes != nil {
			rel.Notes = strings.TrimSpace(*req.Notes)
		}

		wasPrimary := rel.IsPrimary
		if req.IsPrimary != nil {
			rel.IsPrimary = *req.IsPrimary
		}

		if rel.IsPrimary && !wasPrimary {
			if err := s.repo.ClearPrimary(ctx, tx, rel.MemberID); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, tx, rel); err != nil {
			return err
		}

		// Keep the denormalized pointer truthful either way the flag moved.
		if rel.IsPrimary && !wasPrimary {
			if err := s.members.UpdateParentID(ctx, tx, rel.MemberID, &rel.ManagerID); err != nil {
				return err
			}
		}
		if !rel.IsPrimary && wasPrimary {
			if err := s.members.UpdateParentID(ctx, tx, rel.MemberID, nil); err != nil {
				return err
			}
		}

		updated = *rel
		return nil
	})
	if err != nil {
		return domain.ReportingRelationship{}, err
	}

	return updated, nil
}

func (s *Service) Remove(ctx context.Context, req domain.RemoveRelationshipRequest) error {
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		return domain.ErrUnauthorized
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rel, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if rel == nil {
			return domain.ErrNotFound
		}

		if err := s.repo.Delete(ctx, tx, rel.ID); err != nil {
			return err
		}
		if rel.IsPrimary {
			return s.members.UpdateParentID(ctx, tx, rel.MemberID, nil)
		}
		return nil
	})
}

// SyncPrimaryManager re-routes memberID's primary edge inside the caller's
// transaction. With a nil managerID it only unsets primary flags; the caller
// clears Member.ParentID as part of the same unit. With a manager it demotes
// every existing primary, then promotes the (member, manager) edge or creates
// a fresh direct one.
func (s *Service) SyncPrimaryManager(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, managerID *snowflake.ID) error {
	if err := s.repo.ClearPrimary(ctx, tx, memberID); err != nil {
		return err
	}
	if managerID == nil {
		return nil
	}
	if *managerID == memberID {
		return domain.ErrSelfReference
	}

	existing, err := s.repo.FindByPair(ctx, tx, memberID, *managerID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.IsPrimary = true
		return s.repo.Update(ctx, tx, existing)
	}

	rel := domain.ReportingRelationship{
		ID:         s.genID.Generate(),
		MemberID:   memberID,
		ManagerID:  *managerID,
		IsPrimary:  true,
		ReportType: domain.ReportTypeDirect,
	}
	return s.repo.Insert(ctx, tx, &rel)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
