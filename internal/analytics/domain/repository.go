package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
)

// WindowStats is the transaction aggregate for one lookback window.
type WindowStats struct {
	DistinctCustomers int64   `gorm:"column:distinct_customers"`
	ActiveRentals     int64   `gorm:"column:active_rentals"`
	CompletedRevenue  float64 `gorm:"column:completed_revenue"`
}

// CustomerWindowRow is one customer's transaction aggregate in the window.
type CustomerWindowRow struct {
	CustomerID  snowflake.ID `gorm:"column:customer_id"`
	Name        string       `gorm:"column:name"`
	Email       string       `gorm:"column:email"`
	Phone       string       `gorm:"column:phone"`
	RentalCount int64        `gorm:"column:rental_count"`
	TotalSpent  float64      `gorm:"column:total_spent"`
}

// CompletedRentalRow is one completed transaction joined with its
// vehicle's model and listed rate.
type CompletedRentalRow struct {
	ModelName   string     `gorm:"column:model_name"`
	PricePerDay float64    `gorm:"column:price_per_day"`
	TotalAmount float64    `gorm:"column:total_amount"`
	RentalDate  time.Time  `gorm:"column:rental_date"`
	ReturnDate  *time.Time `gorm:"column:return_date"`
}

// Repository is the data-access gateway: parametrized aggregate queries
// against the relational store. Callers pass the handle explicitly so the
// same queries run against the live store or an in-memory test database.
type Repository interface {
	TransactionWindowStats(ctx context.Context, db *gorm.DB, from time.Time) (WindowStats, error)
	CustomerWindowAggregates(ctx context.Context, db *gorm.DB, from time.Time) ([]CustomerWindowRow, error)
	CompletedRentals(ctx context.Context, db *gorm.DB) ([]CompletedRentalRow, error)
	ListVehicles(ctx context.Context, db *gorm.DB) ([]fleetdomain.Vehicle, error)
}
