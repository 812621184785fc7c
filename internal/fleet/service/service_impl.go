package service

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	"github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
	"github.com/jwwtc/fleet-intelligence/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Clock   clock.Clock
	Holder  *config.AnalyticsConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	clock   clock.Clock
	holder  *config.AnalyticsConfigHolder
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("fleet.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		holder:  p.Holder,
		metrics: p.Metrics,
	}
}

func (s *Service) BrowseFleet(ctx context.Context) ([]domain.VehicleListing, error) {
	rows, err := s.repo.ListVehiclesWithCategory(ctx, s.db)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "fleet_browse")
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	s.metrics.RecordAnalyticsRun(ctx, "fleet_browse")

	listings := make([]domain.VehicleListing, 0, len(rows))
	for _, row := range rows {
		listing := domain.VehicleListing{
			VehicleID:        row.VehicleID,
			ModelName:        row.ModelName,
			CategoryName:     row.CategoryName,
			PricePerDay:      row.PricePerDay,
			CurrentInventory: row.CurrentInventory,
		}
		if row.TotalInventory > 0 {
			rate := round1((1 - float64(row.CurrentInventory)/float64(row.TotalInventory)) * 100)
			listing.UtilizationRate = &rate
		}
		listings = append(listings, listing)
	}

	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		switch {
		case a.UtilizationRate == nil && b.UtilizationRate == nil:
			return a.VehicleID < b.VehicleID
		case a.UtilizationRate == nil:
			return false
		case b.UtilizationRate == nil:
			return true
		case *a.UtilizationRate != *b.UtilizationRate:
			return *a.UtilizationRate > *b.UtilizationRate
		default:
			return a.VehicleID < b.VehicleID
		}
	})

	return listings, nil
}

func (s *Service) MetricSeries(ctx context.Context, req domain.MetricSeriesRequest) ([]domain.PerformanceMetric, error) {
	days := req.Days
	if days <= 0 {
		days = s.holder.Get().MetricSeriesDays
	}

	since := domain.SnapshotDate(s.clock.Now().AddDate(0, 0, -days))
	series, err := s.repo.ListMetricsSince(ctx, s.db, since)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "metric_series")
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	s.metrics.RecordAnalyticsRun(ctx, "metric_series")
	return series, nil
}

// round1 rounds to 1 decimal, half away from zero, matching the store's
// ROUND() behavior.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
