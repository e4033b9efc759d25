package router

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/OpenNSW/tariff/internal/reports"
	"github.com/OpenNSW/tariff/internal/tariff/model"
	"github.com/OpenNSW/tariff/internal/tariff/service"
)

// HandleGetCalculations handles GET /api/v1/calculations
// Lists the calling trader's calculation history.
// Query params: offset, limit
func (tr *TariffRouter) HandleGetCalculations(c *gin.Context) {
	offset, limit, ok := parsePagination(c)
	if !ok {
		return
	}

	result, err := tr.calculations.ListCalculations(c.Request.Context(), model.CalculationRecordFilter{
		RequestedBy: requesterID(c),
		Offset:      offset,
		Limit:       limit,
	})
	if err != nil {
		writeServiceError(c, err, "list calculations")
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleGetCalculation handles GET /api/v1/calculations/:id
func (tr *TariffRouter) HandleGetCalculation(c *gin.Context) {
	record, ok := tr.visibleCalculation(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, record)
}

// HandleGetCalculationReport handles GET /api/v1/calculations/:id/report
// Streams the archived JSON report of the calculation.
func (tr *TariffRouter) HandleGetCalculationReport(c *gin.Context) {
	record, ok := tr.visibleCalculation(c)
	if !ok {
		return
	}

	reader, contentType, err := tr.calculations.OpenReport(c.Request.Context(), record.ID)
	if err != nil {
		if errors.Is(err, service.ErrReportNotArchived) || errors.Is(err, reports.ErrReportNotFound) {
			writeJSONError(c, http.StatusNotFound, "not_found", "no report archived for this calculation")
			return
		}
		writeServiceError(c, err, "open calculation report")
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
}

// visibleCalculation loads the calculation named by the :id path parameter.
// Calculations stored for a trader are only visible to that trader.
func (tr *TariffRouter) visibleCalculation(c *gin.Context) (*model.CalculationRecord, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "invalid calculation ID format: "+err.Error())
		return nil, false
	}

	record, err := tr.calculations.GetCalculation(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err, "get calculation")
		return nil, false
	}
	if record.RequestedBy != nil && *record.RequestedBy != requesterID(c) {
		writeJSONError(c, http.StatusNotFound, "not_found", "get calculation: not found")
		return nil, false
	}
	return record, true
}

// ReportOpener reads stored report documents by key.
type ReportOpener interface {
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// RegisterReportFiles serves GET <prefix>/:key from opener. It backs the URLs
// handed out by the local filesystem report driver.
func RegisterReportFiles(r gin.IRouter, prefix string, opener ReportOpener) {
	r.GET(prefix+"/:key", func(c *gin.Context) {
		reader, contentType, err := opener.Open(c.Request.Context(), c.Param("key"))
		if err != nil {
			if !errors.Is(err, reports.ErrReportNotFound) {
				slog.WarnContext(c.Request.Context(), "failed to open report", "key", c.Param("key"), "error", err)
			}
			writeJSONError(c, http.StatusNotFound, "not_found", "report not found")
			return
		}
		defer reader.Close()

		c.DataFromReader(http.StatusOK, -1, contentType, reader, nil)
	})
}
