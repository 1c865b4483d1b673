package providers

import (
	"github.com/wellspringhq/foundation/internal/providers/email"
	"github.com/wellspringhq/foundation/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
