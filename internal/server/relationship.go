package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/wellspringhq/foundation/internal/notify"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
)

type addRelationshipRequest struct {
	MemberID   string `json:"member_id"`
	ManagerID  string `json:"manager_id"`
	IsPrimary  bool   `json:"is_primary"`
	ReportType string `json:"report_type"`
	Notes      string `json:"notes"`
}

type updateRelationshipRequest struct {
	IsPrimary  *bool   `json:"is_primary"`
	ReportType *string `json:"report_type"`
	Notes      *string `json:"notes"`
}

func (s *Server) ListRelationships(c *gin.Context) {
	var query struct {
		MemberID string `form:"member_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	// Served both as /relationships?member_id= and /members/:id/relationships.
	memberID := strings.TrimSpace(query.MemberID)
	if memberID == "" {
		memberID = strings.TrimSpace(c.Param("id"))
	}

	resp, err := s.reportingSvc.List(c.Request.Context(), reportingdomain.ListRelationshipRequest{
		MemberID: memberID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) AddRelationship(c *gin.Context) {
	var req addRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportingSvc.Add(c.Request.Context(), reportingdomain.AddRelationshipRequest{
		MemberID:   strings.TrimSpace(req.MemberID),
		ManagerID:  strings.TrimSpace(req.ManagerID),
		IsPrimary:  req.IsPrimary,
		ReportType: strings.TrimSpace(req.ReportType),
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := resp.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "relationship.create", "relationship", &targetID, map[string]any{
		"relationship_id": resp.ID.String(),
		"member_id":       resp.MemberID.String(),
		"manager_id":      resp.ManagerID.String(),
		"is_primary":      resp.IsPrimary,
		"report_type":     string(resp.ReportType),
	})
	s.notifier.Dispatch(c.Request.Context(), notify.NewChangeEvent(notify.KindHierarchyChanged, "", "reporting line added", actorEmail(c)))
	s.orgchartSvc.Invalidate()
	s.obsMetrics.RecordRelationshipMutation(c.Request.Context(), "create")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateRelationship(c *gin.Context) {
	var req updateRelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportingSvc.Update(c.Request.Context(), reportingdomain.UpdateRelationshipRequest{
		ID:         strings.TrimSpace(c.Param("id")),
		IsPrimary:  req.IsPrimary,
		ReportType: req.ReportType,
		Notes:      req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := resp.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "relationship.update", "relationship", &targetID, map[string]any{
		"relationship_id": resp.ID.String(),
		"member_id":       resp.MemberID.String(),
		"manager_id":      resp.ManagerID.String(),
		"is_primary":      resp.IsPrimary,
		"report_type":     string(resp.ReportType),
	})
	s.notifier.Dispatch(c.Request.Context(), notify.NewChangeEvent(notify.KindHierarchyChanged, "", "reporting line updated", actorEmail(c)))
	s.orgchartSvc.Invalidate()
	s.obsMetrics.RecordRelationshipMutation(c.Request.Context(), "update")

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveRelationship(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if err := s.reportingSvc.Remove(c.Request.Context(), reportingdomain.RemoveRelationshipRequest{ID: id}); err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "relationship.delete", "relationship", &id, map[string]any{
		"relationship_id": id,
	})
	s.notifier.Dispatch(c.Request.Context(), notify.NewChangeEvent(notify.KindHierarchyChanged, "", "reporting line removed", actorEmail(c)))
	s.orgchartSvc.Invalidate()
	s.obsMetrics.RecordRelationshipMutation(c.Request.Context(), "delete")

	c.Status(http.StatusNoContent)
}
