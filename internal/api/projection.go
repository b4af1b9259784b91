package api

import (
	"net/http"
	"strconv"

	"trustme_backend/internal/model"
	"trustme_backend/internal/service"

	"github.com/gin-gonic/gin"
)

type projectionRoutes struct {
	ps *service.ProjectionService
}

func NewProjectionRoutes(handler *gin.RouterGroup, ps *service.ProjectionService) {
	r := &projectionRoutes{ps: ps}
	handler.GET("/projection", r.GetProjection)
}

func (r *projectionRoutes) GetProjection(c *gin.Context) {
	params := model.ProjectionParams{
		Mode:         model.ProjectionMode(c.DefaultQuery("mode", string(model.ProjectionPerDay))),
		Amount:       queryFloat(c, "amount", 1000),
		DailyPct:     queryFloat(c, "dailyPct", 2),
		PerTradePct:  queryFloat(c, "perTradePct", 1),
		TradesPerDay: queryInt(c, "tradesPerDay", 5),
		Days:         queryInt(c, "days", 30),
	}

	c.JSON(http.StatusOK, r.ps.Project(params))
}

func queryFloat(c *gin.Context, name string, def float64) float64 {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
