package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// VehicleListing is one row of the fleet browse view: the inventory
// snapshot joined with its category and the derived utilization percent.
type VehicleListing struct {
	VehicleID        snowflake.ID `json:"vehicle_id"`
	ModelName        string       `json:"model_name"`
	CategoryName     string       `json:"category_name"`
	PricePerDay      float64      `json:"price_per_day"`
	CurrentInventory int          `json:"current_inventory"`
	// UtilizationRate is a percentage rounded to 1 decimal; nil when the
	// vehicle has zero total inventory.
	UtilizationRate *float64 `json:"utilization_rate"`
}

type MetricSeriesRequest struct {
	// Days is the trailing window length; the configured default applies
	// when zero.
	Days int
}

type Service interface {
	// BrowseFleet returns the vehicle snapshot sorted by utilization
	// descending.
	BrowseFleet(ctx context.Context) ([]VehicleListing, error)
	// MetricSeries returns the precomputed performance time series,
	// newest first.
	MetricSeries(ctx context.Context, req MetricSeriesRequest) ([]PerformanceMetric, error)
}

var ErrDataUnavailable = errors.New("fleet data unavailable")

// SnapshotDate truncates a timestamp to its UTC calendar date, the grain of
// performance_metrics rows.
func SnapshotDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
