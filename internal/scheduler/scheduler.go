package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	alertdomain "github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	analyticsdomain "github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
	"github.com/jwwtc/fleet-intelligence/internal/observability/metrics"
)

const (
	EventTypeSuspiciousActivity = "suspicious_activity"
	EventTypeMaintenanceDue     = "maintenance_due"
)

var ErrInvalidConfig = errors.New("scheduler: missing required dependency")

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	Holder       *config.AnalyticsConfigHolder
	AnalyticsSvc analyticsdomain.Service
	AlertSvc     alertdomain.Service
	FleetRepo    fleetdomain.Repository
	Metrics      *metrics.Metrics `optional:"true"`
	Config       Config           `optional:"true"`
}

// Scheduler drives the periodic batch cycle: the performance snapshot and
// the detectors that turn analytics output into operational events.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	holder       *config.AnalyticsConfigHolder
	analyticsSvc analyticsdomain.Service
	alertSvc     alertdomain.Service
	fleetRepo    fleetdomain.Repository
	metrics      *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.Holder == nil || p.AnalyticsSvc == nil || p.AlertSvc == nil || p.FleetRepo == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler"),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		holder:       p.Holder,
		analyticsSvc: p.AnalyticsSvc,
		alertSvc:     p.AlertSvc,
		fleetRepo:    p.FleetRepo,
		metrics:      p.Metrics,
	}, nil
}

// RunOnce executes every job. A failing job is logged and joined into the
// returned error without stopping the others.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	err = errors.Join(err, s.runJob(parent, "performance_snapshot", s.SnapshotJob))
	err = errors.Join(err, s.runJob(parent, "fraud_detection", s.FraudDetectionJob))
	err = errors.Join(err, s.runJob(parent, "maintenance_detection", s.MaintenanceDetectionJob))
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	log := s.log.With(
		zap.String("job", name),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	if err != nil {
		log.Warn("job failed", zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	log.Debug("job complete")
	return nil
}

// SnapshotJob upserts today's per-store performance_metrics row: realized
// revenue so far and current fleet utilization. Re-running within the same
// day overwrites the row, so the job is idempotent at day grain.
func (s *Scheduler) SnapshotJob(ctx context.Context) error {
	day := fleetdomain.SnapshotDate(s.clock.Now())
	next := day.AddDate(0, 0, 1)

	revenueRows, err := s.fleetRepo.StoreRevenue(ctx, s.db, day, next)
	if err != nil {
		return err
	}
	revenueByStore := make(map[int64]float64, len(revenueRows))
	for _, row := range revenueRows {
		revenueByStore[int64(row.StoreID)] = row.Revenue
	}

	vehicles, err := s.fleetRepo.ListVehicles(ctx, s.db)
	if err != nil {
		return err
	}
	utilSum := make(map[int64]float64)
	utilCount := make(map[int64]int)
	for _, v := range vehicles {
		ratio, ok := v.Utilization()
		if !ok {
			continue
		}
		utilSum[int64(v.StoreID)] += ratio
		utilCount[int64(v.StoreID)]++
	}

	stores, err := s.fleetRepo.ListStores(ctx, s.db)
	if err != nil {
		return err
	}

	var written int64
	for _, store := range stores {
		var utilization float64
		if n := utilCount[int64(store.ID)]; n > 0 {
			utilization = round1(utilSum[int64(store.ID)] / float64(n) * 100)
		}
		metric := fleetdomain.PerformanceMetric{
			MetricDate:      day,
			StoreID:         store.ID,
			Revenue:         revenueByStore[int64(store.ID)],
			UtilizationRate: utilization,
		}
		if err := s.fleetRepo.UpsertMetric(ctx, s.db, metric); err != nil {
			return err
		}
		written++
	}

	s.metrics.RecordSnapshotRows(ctx, written)
	return nil
}

// FraudDetectionJob raises a suspicious_activity event for every customer
// the anomaly detector flags. Customers with an open event of that type
// are skipped by the alert service.
func (s *Scheduler) FraudDetectionJob(ctx context.Context) error {
	flagged, err := s.analyticsSvc.SuspiciousCustomers(ctx, analyticsdomain.AnomalyRequest{})
	if err != nil {
		return err
	}

	cfg := s.holder.Get()
	var jobErr error
	for _, customer := range flagged {
		severity := alertdomain.SeverityHigh
		if customer.RentalCount > int64(cfg.FraudMinRentals) && customer.AvgTransaction > cfg.FraudAvgAmount {
			severity = alertdomain.SeverityCritical
		}
		_, err := s.alertSvc.Raise(ctx, alertdomain.RaiseAlertRequest{
			EventType:  EventTypeSuspiciousActivity,
			EntityType: alertdomain.EntityTypeCustomer,
			EntityID:   customer.CustomerID,
			Severity:   severity,
			Details: map[string]any{
				"rental_count":    customer.RentalCount,
				"total_spent":     customer.TotalSpent,
				"avg_transaction": customer.AvgTransaction,
			},
		})
		if err != nil {
			jobErr = errors.Join(jobErr, err)
		}
	}
	return jobErr
}

// MaintenanceDetectionJob raises a maintenance_due event for every idle or
// never-rented vehicle.
func (s *Scheduler) MaintenanceDetectionJob(ctx context.Context) error {
	candidates, err := s.analyticsSvc.MaintenancePriorities(ctx, analyticsdomain.MaintenanceRequest{})
	if err != nil {
		return err
	}

	var jobErr error
	for _, candidate := range candidates {
		severity := alertdomain.SeverityMedium
		details := map[string]any{"model_name": candidate.ModelName}
		if candidate.DaysIdle == nil {
			severity = alertdomain.SeverityHigh
			details["never_rented"] = true
		} else {
			details["days_idle"] = *candidate.DaysIdle
		}
		_, err := s.alertSvc.Raise(ctx, alertdomain.RaiseAlertRequest{
			EventType:  EventTypeMaintenanceDue,
			EntityType: alertdomain.EntityTypeVehicle,
			EntityID:   candidate.VehicleID,
			Severity:   severity,
			Details:    details,
		})
		if err != nil {
			jobErr = errors.Join(jobErr, err)
		}
	}
	return jobErr
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
