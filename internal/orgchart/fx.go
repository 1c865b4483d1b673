package orgchart

import (
	"github.com/wellspringhq/foundation/internal/orgchart/service"
	"go.uber.org/fx"
)

var Module = fx.Module("orgchart.service",
	fx.Provide(service.New),
)
