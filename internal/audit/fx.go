package audit

import (
	"github.com/wellspringhq/foundation/internal/audit/repository"
	"github.com/wellspringhq/foundation/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
