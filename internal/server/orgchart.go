package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetOrgChart(c *gin.Context) {
	resp, err := s.orgchartSvc.GetOrgChart(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListDepartments(c *gin.Context) {
	resp, err := s.orgchartSvc.GetDepartments(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
