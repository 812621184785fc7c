package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) TransactionWindowStats(ctx context.Context, db *gorm.DB, from time.Time) (domain.WindowStats, error) {
	var stats domain.WindowStats
	err := db.WithContext(ctx).Raw(
		`SELECT
		    COUNT(DISTINCT customer_id) AS distinct_customers,
		    COUNT(CASE WHEN status = 'active' THEN 1 END) AS active_rentals,
		    COALESCE(SUM(CASE WHEN status = 'completed' THEN total_amount ELSE 0 END), 0) AS completed_revenue
		 FROM transactions
		 WHERE rental_date >= ?`,
		from,
	).Scan(&stats).Error
	if err != nil {
		return domain.WindowStats{}, err
	}
	return stats, nil
}

func (r *repo) CustomerWindowAggregates(ctx context.Context, db *gorm.DB, from time.Time) ([]domain.CustomerWindowRow, error) {
	var rows []domain.CustomerWindowRow
	err := db.WithContext(ctx).Raw(
		`SELECT c.id AS customer_id, c.name, c.email, c.phone,
		        COUNT(t.id) AS rental_count,
		        COALESCE(SUM(t.total_amount), 0) AS total_spent
		 FROM customers c
		 JOIN transactions t ON t.customer_id = c.id
		 WHERE t.rental_date >= ?
		 GROUP BY c.id, c.name, c.email, c.phone`,
		from,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CompletedRentals(ctx context.Context, db *gorm.DB) ([]domain.CompletedRentalRow, error) {
	var rows []domain.CompletedRentalRow
	err := db.WithContext(ctx).Raw(
		`SELECT v.model_name, v.price_per_day,
		        t.total_amount, t.rental_date, t.return_date
		 FROM transactions t
		 JOIN vehicles v ON v.id = t.vehicle_id
		 WHERE t.status = 'completed' AND t.return_date IS NOT NULL`,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListVehicles(ctx context.Context, db *gorm.DB) ([]fleetdomain.Vehicle, error) {
	var vehicles []fleetdomain.Vehicle
	err := db.WithContext(ctx).
		Model(&fleetdomain.Vehicle{}).
		Order("id asc").
		Find(&vehicles).Error
	if err != nil {
		return nil, err
	}
	return vehicles, nil
}
