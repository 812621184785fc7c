package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// FleetKPIs is the dashboard headline record for one lookback window.
type FleetKPIs struct {
	DistinctCustomerCount int64   `json:"distinct_customer_count"`
	ActiveRentalCount     int64   `json:"active_rental_count"`
	TotalRevenue          float64 `json:"total_revenue"`
	// AvgFleetUtilization is a percentage rounded to 1 decimal, averaged
	// over vehicles with non-zero total inventory.
	AvgFleetUtilization float64 `json:"avg_fleet_utilization"`
}

// SuspiciousCustomer is one row of the abnormal-usage review list. The
// flag is a heuristic for human review, not a fraud determination.
type SuspiciousCustomer struct {
	CustomerID     snowflake.ID `json:"customer_id"`
	Name           string       `json:"name"`
	Email          string       `json:"email,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	RentalCount    int64        `json:"rental_count"`
	TotalSpent     float64      `json:"total_spent"`
	AvgTransaction float64      `json:"avg_transaction"`
}

// ModelOpportunity flags a vehicle model whose realized daily rate runs
// ahead of its listed rate by more than the configured margin.
type ModelOpportunity struct {
	ModelName          string  `json:"model_name"`
	PricePerDay        float64 `json:"price_per_day"`
	RentalCount        int64   `json:"rental_count"`
	ActualDailyRate    float64 `json:"actual_daily_rate"`
	MonthlyOpportunity float64 `json:"monthly_opportunity"`
}

// MaintenanceCandidate is a vehicle due for service review. DaysIdle is
// nil for never-rented vehicles, which sort first.
type MaintenanceCandidate struct {
	VehicleID      snowflake.ID `json:"vehicle_id"`
	ModelName      string       `json:"model_name"`
	LastRentalDate *time.Time   `json:"last_rental_date,omitempty"`
	DaysIdle       *int64       `json:"days_idle,omitempty"`
}

type KPIRequest struct {
	// LookbackDays overrides the configured window when positive.
	LookbackDays int
}

type AnomalyRequest struct {
	LookbackDays int
}

type MaintenanceRequest struct {
	// IdleWindowDays overrides the configured idle window when positive.
	IdleWindowDays int
	// Limit caps the result when positive; zero returns everything.
	Limit int
}

type Service interface {
	FleetKPIs(ctx context.Context, req KPIRequest) (FleetKPIs, error)
	SuspiciousCustomers(ctx context.Context, req AnomalyRequest) ([]SuspiciousCustomer, error)
	RevenueOpportunities(ctx context.Context) ([]ModelOpportunity, error)
	MaintenancePriorities(ctx context.Context, req MaintenanceRequest) ([]MaintenanceCandidate, error)
}

var ErrDataUnavailable = errors.New("analytics data unavailable")
