package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/wellspringhq/foundation/internal/auth/domain"
	"github.com/wellspringhq/foundation/internal/auth/password"
	"github.com/wellspringhq/foundation/internal/config"
	"gorm.io/gorm"
)

const (
	defaultAdminEmail    = "admin@wellspring.local"
	defaultAdminPassword = "changeme-admin"
	defaultAdminName     = "Foundation Admin"
)

// EnsureAdmin seeds the bootstrap admin account so a fresh install has a
// login. Existing accounts are never modified.
func EnsureAdmin(db *gorm.DB, cfg config.BootstrapAdminConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	email := strings.ToLower(strings.TrimSpace(cfg.Email))
	if email == "" {
		email = defaultAdminEmail
	}
	pass := cfg.Password
	if strings.TrimSpace(pass) == "" {
		pass = defaultAdminPassword
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = defaultAdminName
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user authdomain.User
		err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := password.Hash(pass)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		user = authdomain.User{
			ID:                  node.Generate(),
			Email:               email,
			Name:                name,
			Role:                authdomain.RoleAdmin,
			PasswordHash:        &hashed,
			IsDefault:           true,
			LastPasswordChanged: nil,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
