package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	alertdomain "github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	alertrepository "github.com/jwwtc/fleet-intelligence/internal/alert/repository"
	alertservice "github.com/jwwtc/fleet-intelligence/internal/alert/service"
	analyticsrepository "github.com/jwwtc/fleet-intelligence/internal/analytics/repository"
	analyticsservice "github.com/jwwtc/fleet-intelligence/internal/analytics/service"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
	fleetrepository "github.com/jwwtc/fleet-intelligence/internal/fleet/repository"
	fleetservice "github.com/jwwtc/fleet-intelligence/internal/fleet/service"
	"github.com/jwwtc/fleet-intelligence/internal/scheduler"
)

func setupTestServer(t *testing.T, now time.Time) (*Server, *gorm.DB, *snowflake.Node) {
	t.Helper()
	gin.SetMode(gin.TestMode)

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
		&fleetdomain.PerformanceMetric{},
		&alertdomain.OperationalEvent{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}

	log := zap.NewNop()
	fake := clock.NewFakeClock(now)
	holder := config.NewStaticAnalyticsConfigHolder(config.DefaultAnalyticsConfig())

	analyticsSvc := analyticsservice.New(analyticsservice.Params{
		DB: db, Log: log, Repo: analyticsrepository.Provide(), Clock: fake, Holder: holder,
	})
	alertSvc := alertservice.New(alertservice.Params{
		DB: db, Log: log, GenID: node, Repo: alertrepository.Provide(), Clock: fake,
	})
	fleetSvc := fleetservice.New(fleetservice.Params{
		DB: db, Log: log, Repo: fleetrepository.Provide(), Clock: fake, Holder: holder,
	})
	sched, err := scheduler.New(scheduler.Params{
		DB: db, Log: log, Clock: fake, Holder: holder,
		AnalyticsSvc: analyticsSvc, AlertSvc: alertSvc,
		FleetRepo: fleetrepository.Provide(),
	})
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())
	srv := NewServer(ServerParams{
		Gin:          engine,
		Cfg:          config.Config{Environment: "test"},
		Log:          log,
		Holder:       holder,
		FleetSvc:     fleetSvc,
		AnalyticsSvc: analyticsSvc,
		AlertSvc:     alertSvc,
		Scheduler:    sched,
	})
	return srv, db, node
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestDashboardEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	srv, db, node := setupTestServer(t, now)

	vehicle := fleetdomain.Vehicle{
		ID: node.Generate(), ModelName: "Toyota Corolla",
		PricePerDay: 45, CurrentInventory: 1, TotalInventory: 4,
	}
	require.NoError(t, db.Create(&vehicle).Error)

	rec := doRequest(t, srv, http.MethodGet, "/api/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DashboardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Degraded)
	require.NotNil(t, resp.KPIs)
	require.Equal(t, 75.0, resp.KPIs.AvgFleetUtilization)
	require.NotNil(t, resp.CriticalAlerts)
}

func TestResolveAlertEndpoint(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	srv, db, node := setupTestServer(t, now)

	event := alertdomain.OperationalEvent{
		ID:         node.Generate(),
		EventType:  "maintenance_due",
		EntityType: alertdomain.EntityTypeVehicle,
		EntityID:   node.Generate(),
		Severity:   alertdomain.SeverityMedium,
		DetectedAt: now,
		Details:    datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&event).Error)

	rec := doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", event.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	// Idempotent: resolving again still succeeds.
	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", event.ID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/api/alerts/not-a-number/resolve")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, fmt.Sprintf("/api/alerts/%d/resolve", node.Generate()))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyticsEndpointServesAllSections(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	srv, db, node := setupTestServer(t, now)

	// A never-rented vehicle feeds the maintenance section.
	vehicle := fleetdomain.Vehicle{
		ID: node.Generate(), ModelName: "Hyundai Tucson",
		PricePerDay: 70, CurrentInventory: 2, TotalInventory: 2,
	}
	require.NoError(t, db.Create(&vehicle).Error)

	rec := doRequest(t, srv, http.MethodGet, "/api/analytics")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AnalyticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Empty(t, resp.Degraded)
	require.Empty(t, resp.SuspiciousCustomers)
	require.Empty(t, resp.RevenueOpportunities)
	require.Len(t, resp.MaintenanceQueue, 1)
	require.Equal(t, vehicle.ID, resp.MaintenanceQueue[0].VehicleID)
}

func TestMetricSeriesEndpointValidatesDays(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	srv, _, _ := setupTestServer(t, now)

	rec := doRequest(t, srv, http.MethodGet, "/api/metrics?days=abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/api/metrics?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
}
