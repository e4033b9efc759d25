package router

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OpenNSW/tariff/internal/auth"
	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
	"github.com/OpenNSW/tariff/internal/tariff/service"
	"github.com/OpenNSW/tariff/utils"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthFunc reports whether the backing services are reachable.
type HealthFunc func(ctx context.Context) error

// TariffRouter serves the tariff calculation API.
type TariffRouter struct {
	calculations *service.CalculationService
	catalog      *service.CatalogService
}

func NewTariffRouter(calculations *service.CalculationService, catalog *service.CatalogService) *TariffRouter {
	return &TariffRouter{
		calculations: calculations,
		catalog:      catalog,
	}
}

// RegisterRoutes mounts the /api/v1 routes on r.
func (tr *TariffRouter) RegisterRoutes(r gin.IRouter) {
	v1 := r.Group("/api/v1")

	v1.POST("/tariffs/calculate", tr.HandleCalculateTariff)
	v1.POST("/tariffs/duty", tr.HandleComputeDuty)
	v1.GET("/currency/convert", tr.HandleConvertCurrency)

	v1.GET("/hscodes", tr.HandleGetHTSCodes)
	v1.GET("/hscodes/:code", tr.HandleGetHTSCode)
	v1.GET("/agreements", tr.HandleGetAgreements)

	v1.GET("/calculations", auth.RequireAuth(), tr.HandleGetCalculations)
	v1.GET("/calculations/:id", tr.HandleGetCalculation)
	v1.GET("/calculations/:id/report", tr.HandleGetCalculationReport)
}

// NewEngine builds the gin engine with the tariff routes and a health endpoint.
func NewEngine(tr *TariffRouter, health HealthFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				slog.ErrorContext(c.Request.Context(), "health check failed", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": "tariff-backend"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "tariff-backend"})
	})

	tr.RegisterRoutes(r)
	return r
}

func writeJSONError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Error: code, Message: message})
}

// writeServiceError maps a service error onto an HTTP status.
func writeServiceError(c *gin.Context, err error, action string) {
	var inputErr *engine.InputError
	switch {
	case errors.As(err, &inputErr) && errors.Is(err, engine.ErrProductNotFound):
		writeJSONError(c, http.StatusNotFound, "not_found", inputErr.Message)
	case errors.As(err, &inputErr):
		writeJSONError(c, http.StatusBadRequest, "invalid_request", inputErr.Message)
	case errors.Is(err, engine.ErrNotFound):
		writeJSONError(c, http.StatusNotFound, "not_found", action+": not found")
	default:
		slog.ErrorContext(c.Request.Context(), "request failed", "action", action, "error", err)
		writeJSONError(c, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// statusForResult picks the status of a calculation response.
func statusForResult(result *model.CalculationResult) int {
	switch result.ErrorCode {
	case "":
		return http.StatusOK
	case model.ErrorCodeInvalidInput, model.ErrorCodeInvalidFormat:
		return http.StatusBadRequest
	case model.ErrorCodeProductNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// parseDate parses an optional YYYY-MM-DD value.
func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	date, err := time.Parse(model.DateLayout, value)
	if err != nil {
		return nil, err
	}
	return &date, nil
}

// parsePagination reads the optional offset and limit query parameters.
func parsePagination(c *gin.Context) (offset, limit *int, ok bool) {
	if offset, ok = parseIntQuery(c, "offset"); !ok {
		return nil, nil, false
	}
	if limit, ok = parseIntQuery(c, "limit"); !ok {
		return nil, nil, false
	}
	return offset, limit, true
}

func parseIntQuery(c *gin.Context, name string) (*int, bool) {
	value, err := utils.ParseOptionalInt(name, c.Query(name))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return nil, false
	}
	return value, true
}

// requesterID returns the calling trader, empty for anonymous requests.
func requesterID(c *gin.Context) string {
	authCtx := auth.GetAuthContext(c.Request.Context())
	if authCtx == nil || authCtx.TraderProfile == nil {
		return ""
	}
	return authCtx.TraderID
}
