package reporting

import (
	"github.com/wellspringhq/foundation/internal/reporting/repository"
	"github.com/wellspringhq/foundation/internal/reporting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reporting.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
