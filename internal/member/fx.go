package member

import (
	"github.com/wellspringhq/foundation/internal/member/repository"
	"github.com/wellspringhq/foundation/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
