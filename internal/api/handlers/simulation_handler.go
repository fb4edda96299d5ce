package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/restocklab/replaysim/internal/domain"
	"github.com/restocklab/replaysim/internal/service"
	"github.com/rs/zerolog/log"
)

type SimulationHandler struct {
	service *service.SimulationService
}

func NewSimulationHandler(service *service.SimulationService) *SimulationHandler {
	return &SimulationHandler{service: service}
}

type runRequest struct {
	TenantID           string   `json:"tenant_id" binding:"required"`
	ItemIDs            []string `json:"item_ids"`
	StartDate          string   `json:"start_date" binding:"required"`
	EndDate            string   `json:"end_date" binding:"required"`
	AutoPlaceOrders    *bool    `json:"auto_place_orders"`
	LeadTimeBufferDays int      `json:"lead_time_buffer_days"`
	MinOrderQuantity   float64  `json:"min_order_quantity"`
	IncludeRecords     bool     `json:"include_records"`
}

// RunSimulation executes a replay synchronously and returns the report.
// The full daily record stream is only included when asked for; it can be
// large and is always retrievable afterwards via the records endpoint.
func (h *SimulationHandler) RunSimulation(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid start_date, expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid end_date, expected YYYY-MM-DD")
		return
	}

	autoPlace := true
	if req.AutoPlaceOrders != nil {
		autoPlace = *req.AutoPlaceOrders
	}

	run := domain.SimulationRun{
		TenantID:           req.TenantID,
		ItemIDs:            req.ItemIDs,
		StartDate:          start,
		EndDate:            end,
		AutoPlaceOrders:    autoPlace,
		LeadTimeBufferDays: req.LeadTimeBufferDays,
		MinOrderQuantity:   req.MinOrderQuantity,
	}

	report, err := h.service.Run(c.Request.Context(), run)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDateRange) || errors.Is(err, domain.ErrUnknownTenant) {
			errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		errorResponse(c, http.StatusInternalServerError, "simulation failed: "+err.Error())
		return
	}

	if !req.IncludeRecords {
		trimmed := *report
		trimmed.Records = nil
		c.JSON(http.StatusOK, trimmed)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *SimulationHandler) GetReport(c *gin.Context) {
	report, err := h.service.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load report: "+err.Error())
		return
	}
	if report == nil {
		errorResponse(c, http.StatusNotFound, "run not found")
		return
	}

	trimmed := *report
	trimmed.Records = nil
	c.JSON(http.StatusOK, trimmed)
}

func (h *SimulationHandler) GetRecords(c *gin.Context) {
	report, err := h.service.GetReport(c.Request.Context(), c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "failed to load report: "+err.Error())
		return
	}
	if report == nil {
		errorResponse(c, http.StatusNotFound, "run not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":  report.RunID,
		"records": report.Records,
	})
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
