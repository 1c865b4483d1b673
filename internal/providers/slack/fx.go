package slack

import (
	"github.com/wellspringhq/foundation/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config) Provider {
	if cfg.SlackWebhook == "" {
		return &NoOpProvider{}
	}
	return NewWebhook(cfg.SlackWebhook)
}
