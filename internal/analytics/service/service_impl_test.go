package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	analyticsrepository "github.com/jwwtc/fleet-intelligence/internal/analytics/repository"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
)

func setupAnalyticsService(t *testing.T, now time.Time) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&fleetdomain.Category{},
		&fleetdomain.Store{},
		&fleetdomain.Vehicle{},
		&fleetdomain.Customer{},
		&fleetdomain.Transaction{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}

	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Repo:   analyticsrepository.Provide(),
		Clock:  clock.NewFakeClock(now),
		Holder: config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig()),
	})
	return svc, db, node
}

func seedCustomer(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) fleetdomain.Customer {
	t.Helper()
	c := fleetdomain.Customer{ID: node.Generate(), Name: name, Email: name + "@example.com"}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedVehicle(t *testing.T, db *gorm.DB, node *snowflake.Node, model string, price float64, current, total int, lastRental *time.Time) fleetdomain.Vehicle {
	t.Helper()
	v := fleetdomain.Vehicle{
		ID:               node.Generate(),
		ModelName:        model,
		PricePerDay:      price,
		CurrentInventory: current,
		TotalInventory:   total,
		LastRentalDate:   lastRental,
	}
	require.NoError(t, db.Create(&v).Error)
	return v
}

func seedTransaction(t *testing.T, db *gorm.DB, node *snowflake.Node, customer, vehicle snowflake.ID, status fleetdomain.TransactionStatus, rentalDate time.Time, returnDate *time.Time, amount float64) {
	t.Helper()
	txn := fleetdomain.Transaction{
		ID:          node.Generate(),
		CustomerID:  customer,
		VehicleID:   vehicle,
		Status:      status,
		RentalDate:  rentalDate,
		ReturnDate:  returnDate,
		TotalAmount: amount,
	}
	require.NoError(t, db.Create(&txn).Error)
}

func timePtr(t time.Time) *time.Time { return &t }

func TestSuspiciousCustomersEitherRuleFlags(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, node, "Toyota Corolla", 45, 2, 4, nil)

	// Three cheap rentals: flagged on volume alone.
	frequent := seedCustomer(t, db, node, "Frequent Renter")
	for i := 0; i < 3; i++ {
		day := now.AddDate(0, 0, -(i + 1))
		seedTransaction(t, db, node, frequent.ID, vehicle.ID, fleetdomain.TransactionStatusCompleted, day, timePtr(day.AddDate(0, 0, 1)), 10)
	}

	// One expensive rental: flagged on average alone.
	bigSpender := seedCustomer(t, db, node, "Big Spender")
	seedTransaction(t, db, node, bigSpender.ID, vehicle.ID, fleetdomain.TransactionStatusCompleted, now.AddDate(0, 0, -5), timePtr(now.AddDate(0, 0, -3)), 600)

	// Two moderate rentals: neither rule fires.
	normal := seedCustomer(t, db, node, "Normal")
	for i := 0; i < 2; i++ {
		day := now.AddDate(0, 0, -(i + 2))
		seedTransaction(t, db, node, normal.ID, vehicle.ID, fleetdomain.TransactionStatusCompleted, day, timePtr(day.AddDate(0, 0, 1)), 100)
	}

	flagged, err := svc.SuspiciousCustomers(ctx, domain.AnomalyRequest{})
	require.NoError(t, err)
	require.Len(t, flagged, 2)

	// Sorted by average transaction descending.
	require.Equal(t, bigSpender.ID, flagged[0].CustomerID)
	require.Equal(t, 600.0, flagged[0].AvgTransaction)
	require.Equal(t, int64(1), flagged[0].RentalCount)

	require.Equal(t, frequent.ID, flagged[1].CustomerID)
	require.Equal(t, 10.0, flagged[1].AvgTransaction)
	require.Equal(t, int64(3), flagged[1].RentalCount)
	require.Equal(t, 30.0, flagged[1].TotalSpent)
}

func TestSuspiciousCustomersWindowExcludesOldRentals(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	vehicle := seedVehicle(t, db, node, "Honda Civic", 50, 1, 2, nil)
	customer := seedCustomer(t, db, node, "Historic Spender")

	// Outside the 30-day window: not even scanned.
	old := now.AddDate(0, 0, -40)
	seedTransaction(t, db, node, customer.ID, vehicle.ID, fleetdomain.TransactionStatusCompleted, old, timePtr(old.AddDate(0, 0, 2)), 900)

	flagged, err := svc.SuspiciousCustomers(ctx, domain.AnomalyRequest{})
	require.NoError(t, err)
	require.Empty(t, flagged)
}

func TestRevenueOpportunitiesMarginAndRounding(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	customer := seedCustomer(t, db, node, "Renter")

	// Realized rate $115/day on a $100 listing: 15% over, surfaced.
	underpriced := seedVehicle(t, db, node, "Jeep Wrangler", 100, 1, 3, nil)
	for i := 0; i < 2; i++ {
		start := now.AddDate(0, 0, -(10 + i*3))
		seedTransaction(t, db, node, customer.ID, underpriced.ID, fleetdomain.TransactionStatusCompleted, start, timePtr(start.AddDate(0, 0, 2)), 230)
	}

	// Realized rate $108/day on a $100 listing: inside the 10% margin.
	fairlyPriced := seedVehicle(t, db, node, "Kia Sorento", 100, 1, 3, nil)
	start := now.AddDate(0, 0, -8)
	seedTransaction(t, db, node, customer.ID, fairlyPriced.ID, fleetdomain.TransactionStatusCompleted, start, timePtr(start.AddDate(0, 0, 2)), 216)

	opportunities, err := svc.RevenueOpportunities(ctx)
	require.NoError(t, err)
	require.Len(t, opportunities, 1)

	got := opportunities[0]
	require.Equal(t, "Jeep Wrangler", got.ModelName)
	require.Equal(t, 100.0, got.PricePerDay)
	require.Equal(t, int64(2), got.RentalCount)
	require.Equal(t, 115.0, got.ActualDailyRate)
	require.Equal(t, 450.0, got.MonthlyOpportunity)
}

func TestRevenueOpportunitiesSkipSameDayRentals(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	customer := seedCustomer(t, db, node, "Renter")
	vehicle := seedVehicle(t, db, node, "Mazda 3", 50, 1, 2, nil)

	// Same-day return carries no usable daily rate, whatever the amount.
	day := now.AddDate(0, 0, -4)
	seedTransaction(t, db, node, customer.ID, vehicle.ID, fleetdomain.TransactionStatusCompleted, day, timePtr(day), 999)

	// The only valid-duration rental sets the realized rate.
	start := now.AddDate(0, 0, -9)
	seedTransaction(t, db, node, customer.ID, vehicle.ID, fleetdomain.TransactionStatusCompleted, start, timePtr(start.AddDate(0, 0, 2)), 120)

	opportunities, err := svc.RevenueOpportunities(ctx)
	require.NoError(t, err)
	require.Len(t, opportunities, 1)
	require.Equal(t, 60.0, opportunities[0].ActualDailyRate)
	// Same-day rental still counts toward rental volume.
	require.Equal(t, int64(2), opportunities[0].RentalCount)
}

func TestFleetKPIs(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	// 50% and 100% utilized; the zero-inventory vehicle is excluded from
	// the average.
	v1 := seedVehicle(t, db, node, "Toyota Corolla", 45, 2, 4, nil)
	v2 := seedVehicle(t, db, node, "Ford Explorer", 85, 0, 3, nil)
	seedVehicle(t, db, node, "Phantom", 10, 0, 0, nil)

	a := seedCustomer(t, db, node, "A")
	b := seedCustomer(t, db, node, "B")

	seedTransaction(t, db, node, a.ID, v1.ID, fleetdomain.TransactionStatusCompleted, now.AddDate(0, 0, -10), timePtr(now.AddDate(0, 0, -8)), 90)
	seedTransaction(t, db, node, a.ID, v2.ID, fleetdomain.TransactionStatusActive, now.AddDate(0, 0, -1), nil, 170)
	seedTransaction(t, db, node, b.ID, v1.ID, fleetdomain.TransactionStatusCancelled, now.AddDate(0, 0, -3), nil, 0)
	// Outside the window entirely.
	old := now.AddDate(0, 0, -45)
	seedTransaction(t, db, node, b.ID, v1.ID, fleetdomain.TransactionStatusCompleted, old, timePtr(old.AddDate(0, 0, 1)), 500)

	kpis, err := svc.FleetKPIs(ctx, domain.KPIRequest{})
	require.NoError(t, err)

	require.Equal(t, int64(2), kpis.DistinctCustomerCount)
	require.Equal(t, int64(1), kpis.ActiveRentalCount)
	require.Equal(t, 90.0, kpis.TotalRevenue)
	require.Equal(t, 75.0, kpis.AvgFleetUtilization)
}

func TestMaintenancePrioritiesOrderingAndLimit(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	neverRented := seedVehicle(t, db, node, "Hyundai Tucson", 70, 2, 2, nil)
	longIdle := seedVehicle(t, db, node, "Ford Explorer", 85, 3, 3, timePtr(now.AddDate(0, 0, -45)))
	// Rented recently; not a candidate.
	seedVehicle(t, db, node, "Toyota Corolla", 45, 2, 4, timePtr(now.AddDate(0, 0, -10)))

	candidates, err := svc.MaintenancePriorities(ctx, domain.MaintenanceRequest{})
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	require.Equal(t, neverRented.ID, candidates[0].VehicleID)
	require.Nil(t, candidates[0].DaysIdle)
	require.Nil(t, candidates[0].LastRentalDate)

	require.Equal(t, longIdle.ID, candidates[1].VehicleID)
	require.NotNil(t, candidates[1].DaysIdle)
	require.Equal(t, int64(45), *candidates[1].DaysIdle)

	capped, err := svc.MaintenancePriorities(ctx, domain.MaintenanceRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, capped, 1)
	require.Equal(t, neverRented.ID, capped[0].VehicleID)
}

func TestMaintenanceBoundaryExactlyAtCutoff(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc, db, node := setupAnalyticsService(t, now)
	ctx := context.Background()

	// Exactly at the cutoff instant: not yet idle long enough.
	seedVehicle(t, db, node, "Edge Case", 40, 1, 1, timePtr(now.AddDate(0, 0, -30)))

	candidates, err := svc.MaintenancePriorities(ctx, domain.MaintenanceRequest{})
	require.NoError(t, err)
	require.Empty(t, candidates)
}
