package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/observability/metrics"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	clock   clock.Clock
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("alert.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) ListCritical(ctx context.Context, maxN int) ([]domain.AlertView, error) {
	events, err := s.repo.ListUnresolvedSevere(ctx, s.db, maxN)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	return s.decorate(ctx, events), nil
}

func (s *Service) ListAll(ctx context.Context) ([]domain.AlertView, error) {
	events, err := s.repo.ListAll(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	return s.decorate(ctx, events), nil
}

func (s *Service) Resolve(ctx context.Context, id snowflake.ID) error {
	event, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if event == nil {
		return domain.ErrNotFound
	}

	transitioned, err := s.repo.MarkResolved(ctx, s.db, id, s.clock.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if !transitioned {
		// Already resolved; idempotent no-op.
		return nil
	}

	s.metrics.RecordAlertResolved(ctx)
	s.log.Info("alert resolved",
		zap.String("alert_id", id.String()),
		zap.String("event_type", event.EventType),
	)
	return nil
}

func (s *Service) Raise(ctx context.Context, req domain.RaiseAlertRequest) (bool, error) {
	open, err := s.repo.HasOpenEvent(ctx, s.db, req.EventType, req.EntityType, req.EntityID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}
	if open {
		return false, nil
	}

	details := datatypes.JSONMap{}
	for k, v := range req.Details {
		details[k] = v
	}
	event := domain.OperationalEvent{
		ID:         s.genID.Generate(),
		EventType:  req.EventType,
		EntityType: req.EntityType,
		EntityID:   req.EntityID,
		Severity:   req.Severity,
		DetectedAt: s.clock.Now(),
		Details:    details,
	}
	if err := s.repo.Insert(ctx, s.db, &event); err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrDataUnavailable, err)
	}

	s.metrics.RecordAlertRaised(ctx, req.EventType)
	s.log.Info("alert raised",
		zap.String("alert_id", event.ID.String()),
		zap.String("event_type", req.EventType),
		zap.String("entity_type", string(req.EntityType)),
		zap.String("entity_id", req.EntityID.String()),
		zap.String("severity", string(req.Severity)),
	)
	return true, nil
}

// ResolveEntityName dispatches on the entity type. Every branch that can
// miss degrades to the "{entity_type} #{entity_id}" fallback; listing
// never fails on a name lookup.
func (s *Service) ResolveEntityName(ctx context.Context, entityType domain.EntityType, entityID snowflake.ID) string {
	var (
		name  string
		found bool
		err   error
	)
	switch entityType {
	case domain.EntityTypeVehicle:
		name, found, err = s.repo.LookupVehicleName(ctx, s.db, entityID)
	case domain.EntityTypeCustomer:
		name, found, err = s.repo.LookupCustomerName(ctx, s.db, entityID)
	case domain.EntityTypeStore:
		name, found, err = s.repo.LookupStoreName(ctx, s.db, entityID)
	case domain.EntityTypeTransaction:
		return fmt.Sprintf("Transaction #%d", entityID)
	default:
		s.metrics.RecordEntityNameFallback(ctx, string(entityType))
		s.log.Warn("unrecognized entity type on operational event",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID.String()),
		)
		return fallbackName(entityType, entityID)
	}

	if err != nil {
		s.metrics.RecordEntityNameFallback(ctx, string(entityType))
		s.log.Warn("entity name lookup failed",
			zap.String("entity_type", string(entityType)),
			zap.String("entity_id", entityID.String()),
			zap.Error(err),
		)
		return fallbackName(entityType, entityID)
	}
	if !found {
		s.metrics.RecordEntityNameFallback(ctx, string(entityType))
		return fallbackName(entityType, entityID)
	}
	return name
}

func (s *Service) decorate(ctx context.Context, events []domain.OperationalEvent) []domain.AlertView {
	views := make([]domain.AlertView, 0, len(events))
	for _, event := range events {
		views = append(views, domain.AlertView{
			OperationalEvent: event,
			EntityName:       s.ResolveEntityName(ctx, event.EntityType, event.EntityID),
		})
	}
	return views
}

func fallbackName(entityType domain.EntityType, entityID snowflake.ID) string {
	return fmt.Sprintf("%s #%d", entityType, entityID)
}
