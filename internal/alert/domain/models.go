package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Severity is the ordered alert urgency classification.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities low < medium < high < critical. Unknown values
// rank below low so malformed rows never surface as critical.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// EntityType tags which table an operational event points into.
type EntityType string

const (
	EntityTypeVehicle     EntityType = "vehicle"
	EntityTypeCustomer    EntityType = "customer"
	EntityTypeStore       EntityType = "store"
	EntityTypeTransaction EntityType = "transaction"
)

// OperationalEvent is a detected operational condition scoped to an
// entity. Events are never deleted; Resolved flips false to true exactly
// once.
type OperationalEvent struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventType  string            `gorm:"not null;index" json:"event_type"`
	EntityType EntityType        `gorm:"not null" json:"entity_type"`
	EntityID   snowflake.ID      `gorm:"not null;index" json:"entity_id"`
	Severity   Severity          `gorm:"not null;index" json:"severity"`
	DetectedAt time.Time         `gorm:"not null;index" json:"detected_at"`
	Details    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"details,omitempty"`
	Resolved   bool              `gorm:"not null;default:false" json:"resolved"`
	ResolvedAt *time.Time        `json:"resolved_at,omitempty"`
}

func (OperationalEvent) TableName() string { return "operational_events" }

// AlertView is an event decorated with its resolved entity display name.
type AlertView struct {
	OperationalEvent
	EntityName string `json:"entity_name"`
}

type RaiseAlertRequest struct {
	EventType  string
	EntityType EntityType
	EntityID   snowflake.ID
	Severity   Severity
	Details    map[string]any
}

type Service interface {
	// ListCritical returns unresolved high/critical alerts, newest first,
	// capped at maxN.
	ListCritical(ctx context.Context, maxN int) ([]AlertView, error)
	// ListAll returns every alert, resolved or not, newest first.
	ListAll(ctx context.Context) ([]AlertView, error)
	// Resolve transitions an alert to resolved. Resolving an already
	// resolved alert is a no-op.
	Resolve(ctx context.Context, id snowflake.ID) error
	// Raise records a new event unless an unresolved event of the same
	// type already covers the entity.
	Raise(ctx context.Context, req RaiseAlertRequest) (bool, error)
	// ResolveEntityName returns the display name for an entity reference,
	// falling back to "{entity_type} #{entity_id}".
	ResolveEntityName(ctx context.Context, entityType EntityType, entityID snowflake.ID) string
}

var (
	ErrNotFound        = errors.New("alert not found")
	ErrDataUnavailable = errors.New("alert data unavailable")
)
