package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/wellspringhq/foundation/internal/auth/domain"
)

type userView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	IsDefault bool   `json:"is_default"`
}

func newUserView(user *authdomain.User) userView {
	return userView{
		ID:        user.ID.String(),
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsDefault: user.IsDefault,
	}
}

func (s *Server) Me(c *gin.Context) {
	userID := strings.TrimSpace(c.GetString(contextUserIDKey))
	if userID == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := snowflake.ParseString(userID)
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	user, err := s.authsvc.GetUser(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newUserView(user)})
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (s *Server) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	userID := strings.TrimSpace(c.GetString(contextUserIDKey))
	if userID == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.authsvc.ChangePassword(c.Request.Context(), userID, req.NewPassword); err != nil {
		AbortWithError(c, err)
		return
	}

	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "user.change_password", "user", &userID, nil)

	c.Status(http.StatusNoContent)
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

func (s *Server) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	role := strings.TrimSpace(req.Role)
	if role == "" {
		role = authdomain.RoleEditor
	}
	if role != authdomain.RoleAdmin && role != authdomain.RoleEditor {
		AbortWithError(c, newValidationError("role", "invalid_role", "invalid role"))
		return
	}

	user, err := s.authsvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Role:     role,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	targetID := user.ID.String()
	_ = s.auditSvc.AuditLog(c.Request.Context(), "", nil, "user.create", "user", &targetID, map[string]any{
		"user_id": user.ID.String(),
		"email":   user.Email,
		"role":    user.Role,
	})

	c.JSON(http.StatusOK, gin.H{"data": newUserView(user)})
}
