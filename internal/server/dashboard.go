package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	alertdomain "github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	analyticsdomain "github.com/jwwtc/fleet-intelligence/internal/analytics/domain"
	"go.uber.org/zap"
)

type DashboardResponse struct {
	KPIs           *analyticsdomain.FleetKPIs `json:"kpis"`
	CriticalAlerts []alertdomain.AlertView    `json:"critical_alerts"`
	// Degraded names the sections whose backing query failed. The rest of
	// the payload is still served.
	Degraded []string `json:"degraded,omitempty"`
}

func (s *Server) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	cfg := s.holder.Get()

	resp := DashboardResponse{
		CriticalAlerts: []alertdomain.AlertView{},
	}

	kpis, err := s.analyticsSvc.FleetKPIs(ctx, analyticsdomain.KPIRequest{})
	if err != nil {
		s.log.Warn("dashboard kpis unavailable", zap.Error(err))
		resp.Degraded = append(resp.Degraded, "kpis")
	} else {
		resp.KPIs = &kpis
	}

	alerts, err := s.alertSvc.ListCritical(ctx, cfg.CriticalAlertLimit)
	if err != nil {
		s.log.Warn("dashboard alerts unavailable", zap.Error(err))
		resp.Degraded = append(resp.Degraded, "critical_alerts")
	} else {
		resp.CriticalAlerts = alerts
	}

	c.JSON(http.StatusOK, resp)
}
