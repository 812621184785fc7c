package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	"github.com/jwwtc/fleet-intelligence/internal/observability/metrics"
)

const opportunityMonthDays = 30

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
		log:     p.Log.Named("analytics.service"),
		repo:    p.Repo,
		clock:   p.Clock,
		holder:  p.Holder,
		metrics: p.Metrics,
	}
}

func (s *Service) FleetKPIs(ctx context.Context, req domain.KPIRequest) (domain.FleetKPIs, error) {
	cfg := s.holder.Get()
	days := req.LookbackDays
	if days <= 0 {
		days = cfg.LookbackDays
	}
	from := s.clock.Now().AddDate(0, 0, -days)

	stats, err := s.repo.TransactionWindowStats(ctx, s.db, from)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "kpis")
		return domain.FleetKPIs{}, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	vehicles, err := s.repo.ListVehicles(ctx, s.db)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "kpis")
		return domain.FleetKPIs{}, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	var sum float64
	var counted int
	for _, v := range vehicles {
		ratio, ok := v.Utilization()
		if !ok {
			// Zero total inventory: utilization undefined, excluded.
			continue
		}
		sum += ratio
		counted++
	}
	var avgUtilization float64
	if counted > 0 {
		avgUtilization = round1(sum / float64(counted) * 100)
	}

	s.metrics.RecordAnalyticsRun(ctx, "kpis")
	return domain.FleetKPIs{
		DistinctCustomerCount: stats.DistinctCustomers,
		ActiveRentalCount:     stats.ActiveRentals,
		TotalRevenue:          stats.CompletedRevenue,
		AvgFleetUtilization:   avgUtilization,
	}, nil
}

func (s *Service) SuspiciousCustomers(ctx context.Context, req domain.AnomalyRequest) ([]domain.SuspiciousCustomer, error) {
	cfg := s.holder.Get()
	days := req.LookbackDays
	if days <= 0 {
		days = cfg.LookbackDays
	}
	from := s.clock.Now().AddDate(0, 0, -days)

	rows, err := s.repo.CustomerWindowAggregates(ctx, s.db, from)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "anomaly")
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	flagged := make([]domain.SuspiciousCustomer, 0)
	for _, row := range rows {
		if row.RentalCount <= 0 {
			continue
		}
		avg := row.TotalSpent / float64(row.RentalCount)
		// Either condition alone flags the customer.
		if row.RentalCount <= int64(cfg.FraudMinRentals) && avg <= cfg.FraudAvgAmount {
			continue
		}
		flagged = append(flagged, domain.SuspiciousCustomer{
			CustomerID:     row.CustomerID,
			Name:           row.Name,
			Email:          row.Email,
			Phone:          row.Phone,
			RentalCount:    row.RentalCount,
			TotalSpent:     row.TotalSpent,
			AvgTransaction: round2(avg),
		})
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		a, b := flagged[i], flagged[j]
		if a.AvgTransaction != b.AvgTransaction {
			return a.AvgTransaction > b.AvgTransaction
		}
		if a.RentalCount != b.RentalCount {
			return a.RentalCount > b.RentalCount
		}
		return a.CustomerID < b.CustomerID
	})

	s.metrics.RecordAnalyticsRun(ctx, "anomaly")
	s.log.Debug("anomaly scan complete",
		zap.Int("customers_scanned", len(rows)),
		zap.Int("customers_flagged", len(flagged)),
	)
	return flagged, nil
}

func (s *Service) RevenueOpportunities(ctx context.Context) ([]domain.ModelOpportunity, error) {
	cfg := s.holder.Get()

	rows, err := s.repo.CompletedRentals(ctx, s.db)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "revenue_opportunity")
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	type modelAccum struct {
		pricePerDay float64
		rentalCount int64
		rateSum     float64
		rateCount   int64
	}
	accums := make(map[string]*modelAccum)
	for _, row := range rows {
		acc := accums[row.ModelName]
		if acc == nil {
			acc = &modelAccum{pricePerDay: row.PricePerDay}
			accums[row.ModelName] = acc
		}
		acc.rentalCount++

		if row.ReturnDate == nil {
			continue
		}
		days := wholeDays(row.RentalDate, *row.ReturnDate)
		if days <= 0 {
			// Same-day rental: daily rate undefined, excluded rather than
			// divided by zero.
			continue
		}
		acc.rateSum += row.TotalAmount / float64(days)
		acc.rateCount++
	}

	opportunities := make([]domain.ModelOpportunity, 0)
	for model, acc := range accums {
		if acc.rateCount == 0 {
			continue
		}
		actualRate := acc.rateSum / float64(acc.rateCount)
		if actualRate <= acc.pricePerDay*(1+cfg.OpportunityMargin) {
			continue
		}
		opportunities = append(opportunities, domain.ModelOpportunity{
			ModelName:          model,
			PricePerDay:        acc.pricePerDay,
			RentalCount:        acc.rentalCount,
			ActualDailyRate:    round2(actualRate),
			MonthlyOpportunity: round2((actualRate - acc.pricePerDay) * opportunityMonthDays),
		})
	}

	sort.SliceStable(opportunities, func(i, j int) bool {
		a, b := opportunities[i], opportunities[j]
		if a.MonthlyOpportunity != b.MonthlyOpportunity {
			return a.MonthlyOpportunity > b.MonthlyOpportunity
		}
		return a.ModelName < b.ModelName
	})

	s.metrics.RecordAnalyticsRun(ctx, "revenue_opportunity")
	return opportunities, nil
}

func (s *Service) MaintenancePriorities(ctx context.Context, req domain.MaintenanceRequest) ([]domain.MaintenanceCandidate, error) {
	cfg := s.holder.Get()
	idleDays := req.IdleWindowDays
	if idleDays <= 0 {
		idleDays = cfg.IdleWindowDays
	}
	now := s.clock.Now()
	cutoff := now.AddDate(0, 0, -idleDays)

	vehicles, err := s.repo.ListVehicles(ctx, s.db)
	if err != nil {
		s.metrics.RecordAnalyticsFailure(ctx, "maintenance")
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	candidates := make([]domain.MaintenanceCandidate, 0)
	for _, v := range vehicles {
		if v.LastRentalDate != nil && !v.LastRentalDate.Before(cutoff) {
			continue
		}
		candidate := domain.MaintenanceCandidate{
			VehicleID:      v.ID,
			ModelName:      v.ModelName,
			LastRentalDate: v.LastRentalDate,
		}
		if v.LastRentalDate != nil {
			idle := int64(wholeDays(*v.LastRentalDate, now))
			candidate.DaysIdle = &idle
		}
		candidates = append(candidates, candidate)
	}

	// Never-rented vehicles sort first; the rest oldest rental first.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch {
		case a.LastRentalDate == nil && b.LastRentalDate == nil:
			return a.VehicleID < b.VehicleID
		case a.LastRentalDate == nil:
			return true
		case b.LastRentalDate == nil:
			return false
		case !a.LastRentalDate.Equal(*b.LastRentalDate):
			return a.LastRentalDate.Before(*b.LastRentalDate)
		default:
			return a.VehicleID < b.VehicleID
		}
	})

	if req.Limit > 0 && len(candidates) > req.Limit {
		candidates = candidates[:req.Limit]
	}

	s.metrics.RecordAnalyticsRun(ctx, "maintenance")
	return candidates, nil
}

// wholeDays returns the duration between two instants in whole days,
// truncated toward zero.
func wholeDays(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

// round1 and round2 round half away from zero, matching the store's
// ROUND() semantics.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
