package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// OrgChartConfig drives department ordering on the public team page.
// DepartmentPriority lists departments in display order; anything not listed
// is appended after, in first-seen order. FallbackLabel is the bucket for
// members without a department.
type OrgChartConfig struct {
	DepartmentPriority []string `mapstructure:"departmentPriority"`
	FallbackLabel      string   `mapstructure:"fallbackLabel"`
}

func DefaultOrgChartConfig() OrgChartConfig {
	return OrgChartConfig{
		DepartmentPriority: []string{
			"Board of Trustees",
			"Supervisory Board",
			"Executive",
			"Program",
			"Finance",
			"Fundraising",
			"Communications",
			"Operations",
			"Volunteers",
		},
		FallbackLabel: "Other",
	}
}

type OrgChartConfigHolder struct {
	current atomic.Value // holds OrgChartConfig
}

func NewOrgChartConfigHolder() (*OrgChartConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("orgchart")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/foundation/config") // Volume-mounted config
	v.AddConfigPath("/etc/foundation")            // System config
	v.AddConfigPath(".")                          // Current directory (dev mode)

	v.SetEnvPrefix("FOUNDATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultOrgChartConfig()
		v.SetDefault("orgchart.departmentPriority", defaults.DepartmentPriority)
		v.SetDefault("orgchart.fallbackLabel", defaults.FallbackLabel)
	}

	var cfg OrgChartConfig
	if err := v.UnmarshalKey("orgchart", &cfg); err != nil {
		return nil, err
	}
	if err := validateOrgChartConfig(cfg); err != nil {
		return nil, err
	}

	holder := &OrgChartConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated OrgChartConfig
		if err := v.UnmarshalKey("orgchart", &updated); err != nil {
			log.Printf("[orgchart-config] reload failed: %v", err)
			return
		}
		if err := validateOrgChartConfig(updated); err != nil {
			log.Printf("[orgchart-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[orgchart-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *OrgChartConfigHolder) Get() OrgChartConfig {
	if cfg, ok := h.current.Load().(OrgChartConfig); ok {
		return cfg
	}
	return DefaultOrgChartConfig()
}

func validateOrgChartConfig(cfg OrgChartConfig) error {
	if len(cfg.DepartmentPriority) == 0 {
		return errors.New("orgchart.departmentPriority cannot be empty")
	}
	if strings.TrimSpace(cfg.FallbackLabel) == "" {
		return errors.New("orgchart.fallbackLabel cannot be empty")
	}
	return nil
}
