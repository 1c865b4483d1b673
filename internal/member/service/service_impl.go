package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/wellspringhq/foundation/internal/actorcontext"
	"github.com/wellspringhq/foundation/internal/member/domain"
	"github.com/wellspringhq/foundation/internal/orgchart/tree"
	"github.com/wellspringhq/foundation/internal/ratelimit"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const reparentLockTTL = 5 * time.Second

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	RelRepo reportingdomain.Repository
	Sync    reportingdomain.Service
	Locker  *ratelimit.Locker `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	relRepo reportingdomain.Repository
	sync    reportingdomain.Synchronizer
	locker  *ratelimit.Locker
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("member.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		relRepo: p.RelRepo,
		sync:    p.Sync,
		locker:  p.Locker,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListMemberRequest) ([]domain.Member, error) {
	items, err := s.repo.List(ctx, s.db, domain.ListMemberFilter{
		ActiveOnly: req.ActiveOnly,
		Department: strings.TrimSpace(req.Department),
	})
	if err != nil {
		return nil, err
	}
	return dereference(items), nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetMemberRequest) (domain.Member, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Member{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Member{}, err
	}
	if item == nil {
		return domain.Member{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateMemberRequest) (domain.Member, error) {
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		return domain.Member{}, domain.ErrUnauthorized
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Member{}, domain.ErrInvalidName
	}

	var parentID *snowflake.ID
	if strings.TrimSpace(req.ParentID) != "" {
		parsed, err := s.parseID(req.ParentID)
		if err != nil {
			return domain.Member{}, err
		}
		parentID = &parsed
	}

	now := time.Now().UTC()
	member := domain.Member{
		ID:         s.genID.Generate(),
		Name:       name,
		Slug:       slug.Make(name),
		Position:   toJSONMap(req.Position),
		Bio:        toJSONMap(req.Bio),
		Department: trimPtr(req.Department),
		PhotoURL:   strings.TrimSpace(req.PhotoURL),
		SortOrder:  req.SortOrder,
		IsActive:   true,
		ParentID:   parentID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if parentID != nil {
			parent, err := s.repo.FindByID(ctx, tx, *parentID)
			if err != nil {
				return err
			}
			if parent == nil {
				return domain.ErrParentNotFound
			}
		}

		// The slug is resolved before the insert: retrying after a
		// unique-index violation would run against an already-aborted
		// transaction on postgres.
		taken, err := s.repo.SlugTaken(ctx, tx, member.Slug, member.ID)
		if err != nil {
			return err
		}
		if taken {
			member.Slug = member.Slug + "-" + member.ID.String()
		}

		if err := s.repo.Insert(ctx, tx, &member); err != nil {
			return err
		}
		if parentID != nil {
			return s.sync.SyncPrimaryManager(ctx, tx, member.ID, parentID)
		}
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}

	return member, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateMemberRequest) (domain.Member, error) {
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		return domain.Member{}, domain.ErrUnauthorized
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Member{}, err
	}

	reparenting := req.ParentID != nil
	var newParent *snowflake.ID
	if reparenting && strings.TrimSpace(*req.ParentID) != "" {
		parsed, err := s.parseID(*req.ParentID)
		if err != nil {
			return domain.Member{}, err
		}
		if parsed == id {
			return domain.Member{}, domain.ErrSelfReference
		}
		newParent = &parsed
	}

	if reparenting {
		token, ok, err := s.locker.TryLock(ctx, reparentLockKey(id), reparentLockTTL)
		switch {
		case err != nil:
			// Redis being unreachable must not block reparenting. The
			// transaction below still serializes conflicting writes, the
			// lock only narrows the race window.
			s.log.Warn("reparent lock unavailable", zap.Error(err))
		case !ok:
			return domain.Member{}, domain.ErrConcurrentUpdate
		default:
			defer func() { _ = s.locker.Release(ctx, reparentLockKey(id), token) }()
		}
	}

	var updated domain.Member
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrNotFound
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return domain.ErrInvalidName
			}
			if name != member.Name {
				member.Name = name
				member.Slug = slug.Make(name)
				taken, err := s.repo.SlugTaken(ctx, tx, member.Slug, member.ID)
				if err != nil {
					return err
				}
				if taken {
					member.Slug = member.Slug + "-" + member.ID.String()
				}
			}
		}
		if req.Position != nil {
			member.Position = toJSONMap(req.Position)
		}
		if req.Bio != nil {
			member.Bio = toJSONMap(req.Bio)
		}
		if req.Department != nil {
			member.Department = trimPtr(req.Department)
		}
		if req.PhotoURL != nil {
			member.PhotoURL = strings.TrimSpace(*req.PhotoURL)
		}
		if req.SortOrder != nil {
			member.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil {
			member.IsActive = *req.IsActive
		}

		if reparenting {
			if newParent != nil {
				parent, err := s.repo.FindByID(ctx, tx, *newParent)
				if err != nil {
					return err
				}
				if parent == nil {
					return domain.ErrParentNotFound
				}
			}
			member.ParentID = newParent
		}

		member.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, tx, member); err != nil {
			return err
		}

		if reparenting {
			if err := s.sync.SyncPrimaryManager(ctx, tx, member.ID, newParent); err != nil {
				return err
			}
		}

		updated = *member
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteMemberRequest) error {
	if _, ok := actorcontext.ActorFromContext(ctx); !ok {
		return domain.ErrUnauthorized
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		member, err := s.repo.FindByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if member == nil {
			return domain.ErrNotFound
		}

		// Cascade: every edge touching the member goes first, then former
		// reports lose their denormalized pointer and surface as new roots.
		if err := s.relRepo.DeleteAllForMember(ctx, tx, id); err != nil {
			return err
		}
		if err := s.repo.ClearParentFor(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, id)
	})
}

// PotentialParents lists the active members eligible as a primary manager in
// the admin UI. With an exclude id it removes that member and every one of
// its primary-chain descendants so the offered choices can never close a
// cycle in the primary-edge forest.
func (s *Service) PotentialParents(ctx context.Context, req domain.PotentialParentsRequest) ([]domain.Member, error) {
	var excludeID snowflake.ID
	excluding := strings.TrimSpace(req.ExcludeID) != ""
	if excluding {
		parsed, err := s.parseID(req.ExcludeID)
		if err != nil {
			return nil, err
		}
		excludeID = parsed
	}

	items, err := s.repo.List(ctx, s.db, domain.ListMemberFilter{})
	if err != nil {
		return nil, err
	}
	members := dereference(items)

	if !excluding {
		active := make([]domain.Member, 0, len(members))
		for _, m := range members {
			if m.IsActive {
				active = append(active, m)
			}
		}
		return active, nil
	}

	excluded := tree.PrimaryDescendants(members, excludeID)
	eligible := make([]domain.Member, 0, len(members))
	for _, m := range members {
		if !m.IsActive || excluded[m.ID] {
			continue
		}
		eligible = append(eligible, m)
	}
	return eligible, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func reparentLockKey(id snowflake.ID) string {
	return "member:reparent:" + id.String()
}

func dereference(items []*domain.Member) []domain.Member {
	members := make([]domain.Member, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}
	return members
}

func toJSONMap(values map[string]any) datatypes.JSONMap {
	if values == nil {
		return datatypes.JSONMap{}
	}
	return datatypes.JSONMap(values)
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
