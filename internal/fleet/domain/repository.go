package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListVehicles(ctx context.Context, db *gorm.DB) ([]Vehicle, error)
	ListVehiclesWithCategory(ctx context.Context, db *gorm.DB) ([]VehicleCategoryRow, error)
	ListStores(ctx context.Context, db *gorm.DB) ([]Store, error)
	ListMetricsSince(ctx context.Context, db *gorm.DB, since time.Time) ([]PerformanceMetric, error)
	UpsertMetric(ctx context.Context, db *gorm.DB, metric PerformanceMetric) error
	// StoreRevenue sums completed-transaction revenue per store for
	// rentals dated in [from, to).
	StoreRevenue(ctx context.Context, db *gorm.DB, from, to time.Time) ([]StoreRevenueRow, error)
}

// StoreRevenueRow is one store's completed revenue over a date range.
type StoreRevenueRow struct {
	StoreID snowflake.ID `gorm:"column:store_id"`
	Revenue float64      `gorm:"column:revenue"`
}

// VehicleCategoryRow is the raw browse join row before utilization is
// derived.
type VehicleCategoryRow struct {
	VehicleID        snowflake.ID `gorm:"column:vehicle_id"`
	ModelName        string       `gorm:"column:model_name"`
	CategoryName     string       `gorm:"column:category_name"`
	PricePerDay      float64      `gorm:"column:price_per_day"`
	CurrentInventory int          `gorm:"column:current_inventory"`
	TotalInventory   int          `gorm:"column:total_inventory"`
}
