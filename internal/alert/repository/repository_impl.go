package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/jwwtc/fleet-intelligence/internal/alert/domain"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, event *domain.OperationalEvent) error {
	return db.WithContext(ctx).Create(event).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.OperationalEvent, error) {
	var event domain.OperationalEvent
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&event).Error
	if err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, nil
	}
	return &event, nil
}

func (r *repo) HasOpenEvent(ctx context.Context, db *gorm.DB, eventType string, entityType domain.EntityType, entityID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.OperationalEvent{}).
		Where("event_type = ? AND entity_type = ? AND entity_id = ? AND resolved = ?", eventType, entityType, entityID, false).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListUnresolvedSevere(ctx context.Context, db *gorm.DB, limit int) ([]domain.OperationalEvent, error) {
	var events []domain.OperationalEvent
	stmt := db.WithContext(ctx).
		Model(&domain.OperationalEvent{}).
		Where("resolved = ? AND severity IN ?", false, []domain.Severity{domain.SeverityHigh, domain.SeverityCritical}).
		Order("detected_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	if err := stmt.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]domain.OperationalEvent, error) {
	var events []domain.OperationalEvent
	err := db.WithContext(ctx).
		Model(&domain.OperationalEvent{}).
		Order("detected_at desc, id desc").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repo) MarkResolved(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	// The resolved = false guard keeps the transition one-way under
	// concurrent resolution attempts.
	result := db.WithContext(ctx).
		Model(&domain.OperationalEvent{}).
		Where("id = ? AND resolved = ?", id, false).
		Updates(map[string]any{"resolved": true, "resolved_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) LookupVehicleName(ctx context.Context, db *gorm.DB, id snowflake.ID) (string, bool, error) {
	return lookupName(ctx, db, `SELECT model_name FROM vehicles WHERE id = ?`, id)
}

func (r *repo) LookupCustomerName(ctx context.Context, db *gorm.DB, id snowflake.ID) (string, bool, error) {
	return lookupName(ctx, db, `SELECT name FROM customers WHERE id = ?`, id)
}

func (r *repo) LookupStoreName(ctx context.Context, db *gorm.DB, id snowflake.ID) (string, bool, error) {
	return lookupName(ctx, db, `SELECT store_name FROM stores WHERE id = ?`, id)
}

func lookupName(ctx context.Context, db *gorm.DB, query string, id snowflake.ID) (string, bool, error) {
	var names []string
	if err := db.WithContext(ctx).Raw(query, id).Scan(&names).Error; err != nil {
		return "", false, err
	}
	if len(names) == 0 || names[0] == "" {
		return "", false, nil
	}
	return names[0], true, nil
}
