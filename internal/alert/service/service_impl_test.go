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

	"github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	alertrepository "github.com/jwwtc/fleet-intelligence/internal/alert/repository"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
)

func setupAlertService(t *testing.T, fake *clock.FakeClock) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&fleetdomain.Vehicle{},
		&fleetdomain.Customer{},
		&fleetdomain.Store{},
		&domain.OperationalEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  alertrepository.Provide(),
		Clock: fake,
	})
	return svc, db, node
}

func raise(t *testing.T, svc domain.Service, eventType string, entityType domain.EntityType, entityID snowflake.ID, severity domain.Severity) {
	t.Helper()
	created, err := svc.Raise(context.Background(), domain.RaiseAlertRequest{
		EventType:  eventType,
		EntityType: entityType,
		EntityID:   entityID,
		Severity:   severity,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestResolveIsIdempotent(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc, db, node := setupAlertService(t, fake)
	ctx := context.Background()

	vehicleID := node.Generate()
	raise(t, svc, "maintenance_due", domain.EntityTypeVehicle, vehicleID, domain.SeverityMedium)

	var event domain.OperationalEvent
	require.NoError(t, db.First(&event).Error)

	require.NoError(t, svc.Resolve(ctx, event.ID))

	var resolved domain.OperationalEvent
	require.NoError(t, db.First(&resolved, "id = ?", event.ID).Error)
	require.True(t, resolved.Resolved)
	require.NotNil(t, resolved.ResolvedAt)
	firstResolvedAt := *resolved.ResolvedAt

	// The second resolve must not fail and must not move the timestamp.
	fake.Advance(2 * time.Hour)
	require.NoError(t, svc.Resolve(ctx, event.ID))

	var again domain.OperationalEvent
	require.NoError(t, db.First(&again, "id = ?", event.ID).Error)
	require.NotNil(t, again.ResolvedAt)
	require.True(t, firstResolvedAt.Equal(*again.ResolvedAt))
}

func TestResolveUnknownAlert(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc, _, node := setupAlertService(t, fake)

	err := svc.Resolve(context.Background(), node.Generate())
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRaiseDeduplicatesOpenEvents(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc, db, node := setupAlertService(t, fake)
	ctx := context.Background()

	customerID := node.Generate()
	raise(t, svc, "suspicious_activity", domain.EntityTypeCustomer, customerID, domain.SeverityHigh)

	created, err := svc.Raise(ctx, domain.RaiseAlertRequest{
		EventType:  "suspicious_activity",
		EntityType: domain.EntityTypeCustomer,
		EntityID:   customerID,
		Severity:   domain.SeverityHigh,
	})
	require.NoError(t, err)
	require.False(t, created)

	var count int64
	require.NoError(t, db.Model(&domain.OperationalEvent{}).Count(&count).Error)
	require.Equal(t, int64(1), count)

	// Once resolved, the same signal may be raised again.
	var event domain.OperationalEvent
	require.NoError(t, db.First(&event).Error)
	require.NoError(t, svc.Resolve(ctx, event.ID))

	created, err = svc.Raise(ctx, domain.RaiseAlertRequest{
		EventType:  "suspicious_activity",
		EntityType: domain.EntityTypeCustomer,
		EntityID:   customerID,
		Severity:   domain.SeverityHigh,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestEntityNameResolution(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc, db, node := setupAlertService(t, fake)
	ctx := context.Background()

	vehicle := fleetdomain.Vehicle{ID: node.Generate(), ModelName: "Toyota RAV4", PricePerDay: 80, TotalInventory: 2}
	require.NoError(t, db.Create(&vehicle).Error)
	customer := fleetdomain.Customer{ID: node.Generate(), Name: "Alice Nguyen"}
	require.NoError(t, db.Create(&customer).Error)

	require.Equal(t, "Toyota RAV4", svc.ResolveEntityName(ctx, domain.EntityTypeVehicle, vehicle.ID))
	require.Equal(t, "Alice Nguyen", svc.ResolveEntityName(ctx, domain.EntityTypeCustomer, customer.ID))

	// Transactions have no display name of their own.
	require.Equal(t, "Transaction #99", svc.ResolveEntityName(ctx, domain.EntityTypeTransaction, snowflake.ID(99)))

	// Missing rows and unknown types degrade to the generic label.
	require.Equal(t,
		fmt.Sprintf("vehicle #%d", 12345),
		svc.ResolveEntityName(ctx, domain.EntityTypeVehicle, snowflake.ID(12345)))
	require.Equal(t,
		fmt.Sprintf("widget #%d", 42),
		svc.ResolveEntityName(ctx, domain.EntityType("widget"), snowflake.ID(42)))
}

func TestListCriticalFiltersAndOrders(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc, db, node := setupAlertService(t, fake)
	ctx := context.Background()

	lowID := node.Generate()
	raise(t, svc, "maintenance_due", domain.EntityTypeVehicle, lowID, domain.SeverityLow)

	fake.Advance(time.Minute)
	highID := node.Generate()
	raise(t, svc, "maintenance_due", domain.EntityTypeVehicle, highID, domain.SeverityHigh)

	fake.Advance(time.Minute)
	criticalID := node.Generate()
	raise(t, svc, "suspicious_activity", domain.EntityTypeCustomer, criticalID, domain.SeverityCritical)

	fake.Advance(time.Minute)
	resolvedID := node.Generate()
	raise(t, svc, "maintenance_due", domain.EntityTypeVehicle, resolvedID, domain.SeverityCritical)
	var resolvedEvent domain.OperationalEvent
	require.NoError(t, db.First(&resolvedEvent, "entity_id = ?", resolvedID).Error)
	require.NoError(t, svc.Resolve(ctx, resolvedEvent.ID))

	alerts, err := svc.ListCritical(ctx, 5)
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	// Newest first; low severity and resolved events never appear.
	require.Equal(t, criticalID, alerts[0].EntityID)
	require.Equal(t, highID, alerts[1].EntityID)

	capped, err := svc.ListCritical(ctx, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	require.Equal(t, criticalID, capped[0].EntityID)
}

func TestListAllIncludesResolvedWithNames(t *testing.T) {
	fake := clock.NewFakeClock(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	svc, db, node := setupAlertService(t, fake)
	ctx := context.Background()

	vehicle := fleetdomain.Vehicle{ID: node.Generate(), ModelName: "Honda Civic", PricePerDay: 50, TotalInventory: 2}
	require.NoError(t, db.Create(&vehicle).Error)

	raise(t, svc, "maintenance_due", domain.EntityTypeVehicle, vehicle.ID, domain.SeverityMedium)
	var event domain.OperationalEvent
	require.NoError(t, db.First(&event).Error)
	require.NoError(t, svc.Resolve(ctx, event.ID))

	alerts, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	require.True(t, alerts[0].Resolved)
	require.Equal(t, "Honda Civic", alerts[0].EntityName)
}
