package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
)

func (s *Server) ListFleet(c *gin.Context) {
	listings, err := s.fleetSvc.BrowseFleet(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": listings})
}

func (s *Server) ListMetricSeries(c *gin.Context) {
	req := fleetdomain.MetricSeriesRequest{}
	if raw := c.Query("days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days <= 0 {
			invalidRequestError(c, "days must be a positive integer")
			return
		}
		req.Days = days
	}

	series, err := s.fleetSvc.MetricSeries(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": series})
}
