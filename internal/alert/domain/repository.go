package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, event *OperationalEvent) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*OperationalEvent, error)
	// HasOpenEvent reports whether an unresolved event of the same type
	// already covers the entity.
	HasOpenEvent(ctx context.Context, db *gorm.DB, eventType string, entityType EntityType, entityID snowflake.ID) (bool, error)
	// ListUnresolvedSevere returns unresolved high/critical events,
	// detected_at descending, capped at limit.
	ListUnresolvedSevere(ctx context.Context, db *gorm.DB, limit int) ([]OperationalEvent, error)
	// ListAll returns every event, detected_at descending.
	ListAll(ctx context.Context, db *gorm.DB) ([]OperationalEvent, error)
	// MarkResolved flips resolved to true; returns false when the event
	// was already resolved.
	MarkResolved(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)

	LookupVehicleName(ctx context.Context, db *gorm.DB, id snowflake.ID) (string, bool, error)
	LookupCustomerName(ctx context.Context, db *gorm.DB, id snowflake.ID) (string, bool, error)
	LookupStoreName(ctx context.Context, db *gorm.DB, id snowflake.ID) (string, bool, error)
}
