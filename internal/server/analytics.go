package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	"go.uber.org/zap"
)

type AnalyticsResponse struct {
	SuspiciousCustomers  []analyticsdomain.SuspiciousCustomer   `json:"suspicious_customers"`
	RevenueOpportunities []analyticsdomain.ModelOpportunity     `json:"revenue_opportunities"`
	MaintenanceQueue     []analyticsdomain.MaintenanceCandidate `json:"maintenance_queue"`
	Degraded             []string                               `json:"degraded,omitempty"`
}

// GetAnalytics serves all three derived reports in one payload. Each
// section is computed independently so a single failing query degrades
// only its own section.
func (s *Server) GetAnalytics(c *gin.Context) {
	ctx := c.Request.Context()

	resp := AnalyticsResponse{
		SuspiciousCustomers:  []analyticsdomain.SuspiciousCustomer{},
		RevenueOpportunities: []analyticsdomain.ModelOpportunity{},
		MaintenanceQueue:     []analyticsdomain.MaintenanceCandidate{},
	}

	suspicious, err := s.analyticsSvc.SuspiciousCustomers(ctx, analyticsdomain.AnomalyRequest{})
	if err != nil {
		s.log.Warn("suspicious customers unavailable", zap.Error(err))
		resp.Degraded = append(resp.Degraded, "suspicious_customers")
	} else {
		resp.SuspiciousCustomers = suspicious
	}

	opportunities, err := s.analyticsSvc.RevenueOpportunities(ctx)
	if err != nil {
		s.log.Warn("revenue opportunities unavailable", zap.Error(err))
		resp.Degraded = append(resp.Degraded, "revenue_opportunities")
	} else {
		resp.RevenueOpportunities = opportunities
	}

	maintenance, err := s.analyticsSvc.MaintenancePriorities(ctx, analyticsdomain.MaintenanceRequest{
		Limit: s.holder.Get().MaintenanceLimit,
	})
	if err != nil {
		s.log.Warn("maintenance queue unavailable", zap.Error(err))
		resp.Degraded = append(resp.Degraded, "maintenance_queue")
	} else {
		resp.MaintenanceQueue = maintenance
	}

	c.JSON(http.StatusOK, resp)
}

// RunDetection triggers one full analytics pass outside the schedule. It is
// only routed in non-production environments.
func (s *Server) RunDetection(c *gin.Context) {
	if err := s.scheduler.RunOnce(c.Request.Context()); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed"})
}
