package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AnalyticsConfig holds the tunable business thresholds for the analytics
// and detection components. The defaults are the established operational
// values; a mounted analytics.yml can override them at runtime.
type AnalyticsConfig struct {
	// LookbackDays is the KPI and anomaly aggregation window.
	LookbackDays int `mapstructure:"lookbackDays"`
	// FraudMinRentals flags customers with strictly more rentals than this.
	FraudMinRentals int `mapstructure:"fraudMinRentals"`
	// FraudAvgAmount flags customers whose average transaction exceeds this.
	FraudAvgAmount float64 `mapstructure:"fraudAvgAmount"`
	// OpportunityMargin is the fraction the realized daily rate must exceed
	// the listed rate by before a model is surfaced (0.10 = 10%).
	OpportunityMargin float64 `mapstructure:"opportunityMargin"`
	// IdleWindowDays marks vehicles idle longer than this for maintenance.
	IdleWindowDays int `mapstructure:"idleWindowDays"`
	// MaintenanceLimit caps the maintenance list on the dashboard; 0 means
	// unbounded.
	MaintenanceLimit int `mapstructure:"maintenanceLimit"`
	// CriticalAlertLimit caps the critical alert strip on the dashboard.
	CriticalAlertLimit int `mapstructure:"criticalAlertLimit"`
	// MetricSeriesDays is the trailing window for the performance series.
	MetricSeriesDays int `mapstructure:"metricSeriesDays"`
}

func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		LookbackDays:       30,
		FraudMinRentals:    2,
		FraudAvgAmount:     500,
		OpportunityMargin:  0.10,
		IdleWindowDays:     30,
		MaintenanceLimit:   10,
		CriticalAlertLimit: 5,
		MetricSeriesDays:   7,
	}
}

// AnalyticsConfigHolder serves the current threshold set and hot-reloads it
// when the config file changes. Reads are lock-free.
type AnalyticsConfigHolder struct {
	current atomic.Value // holds AnalyticsConfig
}

func NewAnalyticsConfigHolder() (*AnalyticsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("analytics")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/fleetops/config")
	v.AddConfigPath("/etc/fleetops")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FLEETOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultAnalyticsConfig()
	v.SetDefault("analytics.lookbackDays", defaults.LookbackDays)
	v.SetDefault("analytics.fraudMinRentals", defaults.FraudMinRentals)
	v.SetDefault("analytics.fraudAvgAmount", defaults.FraudAvgAmount)
	v.SetDefault("analytics.opportunityMargin", defaults.OpportunityMargin)
	v.SetDefault("analytics.idleWindowDays", defaults.IdleWindowDays)
	v.SetDefault("analytics.maintenanceLimit", defaults.MaintenanceLimit)
	v.SetDefault("analytics.criticalAlertLimit", defaults.CriticalAlertLimit)
	v.SetDefault("analytics.metricSeriesDays", defaults.MetricSeriesDays)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg AnalyticsConfig
	if err := v.UnmarshalKey("analytics", &cfg); err != nil {
		return nil, err
	}
	if err := validateAnalyticsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AnalyticsConfig
		if err := v.UnmarshalKey("analytics", &updated); err != nil {
			log.Printf("[analytics-config] reload failed: %v", err)
			return
		}
		if err := validateAnalyticsConfig(updated); err != nil {
			log.Printf("[analytics-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[analytics-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticAnalyticsConfigHolder wraps a fixed threshold set with no file
// watching. Used by tests and embedded callers.
func NewStaticAnalyticsConfigHolder(cfg AnalyticsConfig) *AnalyticsConfigHolder {
	holder := &AnalyticsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *AnalyticsConfigHolder) Get() AnalyticsConfig {
	return h.current.Load().(AnalyticsConfig)
}

func validateAnalyticsConfig(cfg AnalyticsConfig) error {
	if cfg.LookbackDays <= 0 {
		return errors.New("analytics.lookbackDays must be positive")
	}
	if cfg.IdleWindowDays <= 0 {
		return errors.New("analytics.idleWindowDays must be positive")
	}
	if cfg.FraudAvgAmount < 0 {
		return errors.New("analytics.fraudAvgAmount cannot be negative")
	}
	if cfg.OpportunityMargin < 0 {
		return errors.New("analytics.opportunityMargin cannot be negative")
	}
	return nil
}
