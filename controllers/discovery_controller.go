// File: /controllers/discovery_controller.go
package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"communehub-api/models"
	"communehub-api/services"
	"communehub-api/utils"
)

type DiscoveryController struct {
	discoveryService *services.DiscoveryService
}

func NewDiscoveryController(discoveryService *services.DiscoveryService) *DiscoveryController {
	return &DiscoveryController{discoveryService: discoveryService}
}

func (dc *DiscoveryController) Discover(c *gin.Context) {
	query, ok := parseDiscoveryQuery(c)
	if !ok {
		return
	}

	conn, err := dc.discoveryService.Discover(c.Request.Context(), c.GetString("user_id"), query)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (dc *DiscoveryController) Search(c *gin.Context) {
	query, ok := parseDiscoveryQuery(c)
	if !ok {
		return
	}
	query.Query = c.Query("q")

	conn, err := dc.discoveryService.Search(c.Request.Context(), c.GetString("user_id"), query)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (dc *DiscoveryController) Recommend(c *gin.Context) {
	query, ok := parseDiscoveryQuery(c)
	if !ok {
		return
	}

	conn, err := dc.discoveryService.Recommend(c.Request.Context(), c.GetString("user_id"), query)
	if err != nil {
		utils.SendAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func parseDiscoveryQuery(c *gin.Context) (models.DiscoveryQuery, bool) {
	query := models.DiscoveryQuery{
		Cursor:    c.Query("cursor"),
		SortBy:    models.SortBy(c.Query("sort_by")),
		SortOrder: models.SortOrder(c.Query("sort_order")),
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			utils.SendValidationError(c, "limit must be a number")
			return query, false
		}
		query.Limit = limit
	}

	if raw := c.Query("interest_ids"); raw != "" {
		query.InterestIDs = strings.Split(raw, ",")
	}

	if raw := c.Query("max_distance_km"); raw != "" {
		distance, err := strconv.ParseFloat(raw, 64)
		if err != nil || distance <= 0 {
			utils.SendValidationError(c, "max_distance_km must be a positive number")
			return query, false
		}
		query.MaxDistanceKm = distance
	}

	return query, true
}
