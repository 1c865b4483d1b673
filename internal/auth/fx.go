package auth

import (
	"github.com/wellspringhq/foundation/internal/auth/repository"
	"github.com/wellspringhq/foundation/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
