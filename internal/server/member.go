package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellspringhq/foundation/internal/actorcontext"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	"github.com/wellspringhq/foundation/internal/notify"
)

type createMemberRequest struct {
	Name       string         `json:"name"`
	Position   map[string]any `json:"position"`
	Bio        map[string]any `json:"bio"`
	Department *string        `json:"department"`
	PhotoURL   string         `json:"photo_url"`
	SortOrder  int            `json:"sort_order"`
	ParentID   string         `json:"parent_id"`
}

type updateMemberRequest struct {
	Name       *string        `json:"name"`
	Position   map[string]any `json:"position"`
	Bio        map[string]any `json:"bio"`
	Department *string        `json:"department"`
	PhotoURL   *string        `json:"photo_url"`
	SortOrder  *int           `json:"sort_order"`
	IsActive   *bool          `json:"is_active"`
	ParentID   *string        `json:"parent_id"`
}

func (s *Server) ListMembers(c *gin.Context) {
	var query struct {
		ActiveOnly bool   `form:"active_only"`
		Department string `form:"department"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.List(c.Request.Context(), memberdomain.ListMemberRequest{
		ActiveOnly: query.ActiveOnly,
		Department: strings.TrimSpace(query.Department),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMemberByID(c *gin.Context) {
	resp, err := s.memberSvc.GetByID(c.Request.Context(), memberdomain.GetMemberRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateMember(c *gin.Context) {
	var req createMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.Create(c.Request.Context(), memberdomain.CreateMemberRequest{
		Name:       strings.TrimSpace(req.Name),
		Position:   req.Position,
		Bio:        req.Bio,
		Department: req.Department,
		PhotoURL:   strings.TrimSpace(req.PhotoURL),
		SortOrder:  req.SortOrder,
		ParentID:   strings.TrimSpace(req.ParentID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := resp.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "member.create", "member", &targetID, map[string]any{
		"member_id": resp.ID.String(),
		"name":      resp.Name,
		"parent_id": req.ParentID,
	})
	s.notifier.Dispatch(c.Request.Context(), notify.NewChangeEvent(notify.KindMemberAdded, resp.Name, "", actorEmail(c)))
	s.orgchartSvc.Invalidate()
	s.obsMetrics.RecordMemberMutation(c.Request.Context(), "create")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMember(c *gin.Context) {
	var req updateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.Update(c.Request.Context(), memberdomain.UpdateMemberRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		Name:       req.Name,
		Position:   req.Position,
		Bio:        req.Bio,
		Department: req.Department,
		PhotoURL:   req.PhotoURL,
		SortOrder:  req.SortOrder,
		IsActive:   req.IsActive,
		ParentID:   req.ParentID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := resp.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "member.update", "member", &targetID, map[string]any{
		"member_id":   resp.ID.String(),
		"name":        resp.Name,
		"reparented":  req.ParentID != nil,
		"deactivated": req.IsActive != nil && !*req.IsActive,
	})
	if req.ParentID != nil {
		detail := fmt.Sprintf("%s now reports to a new manager", resp.Name)
		s.notifier.Dispatch(c.Request.Context(), notify.NewChangeEvent(notify.KindHierarchyChanged, resp.Name, detail, actorEmail(c)))
	}
	s.orgchartSvc.Invalidate()
	s.obsMetrics.RecordMemberMutation(c.Request.Context(), "update")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteMember(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	// Fetch before delete so the audit trail and notification keep the name.
	existing, err := s.memberSvc.GetByID(c.Request.Context(), memberdomain.GetMemberRequest{ID: id})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.memberSvc.Delete(c.Request.Context(), memberdomain.DeleteMemberRequest{ID: id}); err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := existing.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "member.delete", "member", &targetID, map[string]any{
		"member_id": existing.ID.String(),
		"name":      existing.Name,
	})
	s.notifier.Dispatch(c.Request.Context(), notify.NewChangeEvent(notify.KindMemberRemoved, existing.Name, "", actorEmail(c)))
	s.orgchartSvc.Invalidate()
	s.obsMetrics.RecordMemberMutation(c.Request.Context(), "delete")

	c.Status(http.StatusNoContent)
}

func (s *Server) ListPotentialParents(c *gin.Context) {
	var query struct {
		ExcludeID string `form:"exclude_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.memberSvc.PotentialParents(c.Request.Context(), memberdomain.PotentialParentsRequest{
		ExcludeID: strings.TrimSpace(query.ExcludeID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func actorEmail(c *gin.Context) string {
	if actor, ok := actorcontext.ActorFromContext(c.Request.Context()); ok {
		return actor.Email
	}
	return ""
}
