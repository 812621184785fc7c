package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListVehicles(ctx context.Context, db *gorm.DB) ([]domain.Vehicle, error) {
	var vehicles []domain.Vehicle
	err := db.WithContext(ctx).
		Model(&domain.Vehicle{}).
		Order("id asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *repo) ListVehiclesWithCategory(ctx context.Context, db *gorm.DB) ([]domain.VehicleCategoryRow, error) {
	var rows []domain.VehicleCategoryRow
	err := db.WithContext(ctx).Raw(
		`SELECT v.id AS vehicle_id, v.model_name, c.category_name,
		        v.price_per_day, v.current_inventory, v.total_inventory
		 FROM vehicles v
		 JOIN categories c ON c.id = v.category_id
		 ORDER BY v.id`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListStores(ctx context.Context, db *gorm.DB) ([]domain.Store, error) {
	var stores []domain.Store
	err := db.WithContext(ctx).
		Model(&domain.Store{}).
		Order("id asc").
		Find(&stores).Error
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (r *repo) ListMetricsSince(ctx context.Context, db *gorm.DB, since time.Time) ([]domain.PerformanceMetric, error) {
	var metrics []domain.PerformanceMetric
	err := db.WithContext(ctx).
		Model(&domain.PerformanceMetric{}).
		Where("metric_date >= ?", since).
		Order("metric_date desc, store_id asc").
		Find(&metrics).Error
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *repo) StoreRevenue(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.StoreRevenueRow, error) {
	var rows []domain.StoreRevenueRow
	err := db.WithContext(ctx).Raw(
		`SELECT v.store_id, COALESCE(SUM(t.total_amount), 0) AS revenue
		 FROM transactions t
		 JOIN vehicles v ON v.id = t.vehicle_id
		 WHERE t.status = 'completed' AND t.rental_date >= ? AND t.rental_date < ?
		 GROUP BY v.store_id`,
		from, to,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) UpsertMetric(ctx context.Context, db *gorm.DB, metric domain.PerformanceMetric) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "metric_date"}, {Name: "store_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"revenue", "utilization_rate"}),
		}).
		Create(&metric).Error
}
