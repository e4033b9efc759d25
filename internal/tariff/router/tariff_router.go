package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/OpenNSW/tariff/internal/auth"
	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// HandleCalculateTariff handles POST /api/v1/tariffs/calculate
// Request body: CalculateTariffDTO
// Response: CalculationResponseDTO, with a 4xx/5xx status when the result carries an error
func (tr *TariffRouter) HandleCalculateTariff(c *gin.Context) {
	var req model.CalculateTariffDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	// Stored trader preferences fill in what the request leaves out.
	authCtx := auth.GetAuthContext(c.Request.Context())
	in := model.CalculationInput{
		HTSCode:            req.HTSCode,
		OriginCountry:      req.OriginCountry,
		DestinationCountry: req.DestinationCountry,
		ProductValue:       req.ProductValue,
		Quantity:           req.Quantity,
		Currency:           req.Currency,
	}
	if strings.TrimSpace(in.Currency) == "" {
		in.Currency = authCtx.Currency("")
	}
	if strings.TrimSpace(in.OriginCountry) == "" {
		in.OriginCountry = authCtx.OriginCountry("")
	}

	var response *model.CalculationResponseDTO
	if req.StartDate != "" || req.EndDate != "" {
		start, err := parseDate(req.StartDate)
		if err != nil || start == nil {
			writeJSONError(c, http.StatusBadRequest, "invalid_request", "startDate must be a YYYY-MM-DD date")
			return
		}
		end, err := parseDate(req.EndDate)
		if err != nil || end == nil {
			writeJSONError(c, http.StatusBadRequest, "invalid_request", "endDate must be a YYYY-MM-DD date")
			return
		}
		response = tr.calculations.CalculateWithDateRange(c.Request.Context(), in, *start, *end, requesterID(c))
	} else {
		date, err := parseDate(req.Date)
		if err != nil {
			writeJSONError(c, http.StatusBadRequest, "invalid_request", "date must be a YYYY-MM-DD date")
			return
		}
		in.Date = date
		response = tr.calculations.Calculate(c.Request.Context(), in, requesterID(c))
	}

	c.JSON(statusForResult(response.CalculationResult), response)
}

// HandleComputeDuty handles POST /api/v1/tariffs/duty
// Request body: ComputeDutyDTO
// Response: ComputeDutyResponseDTO
func (tr *TariffRouter) HandleComputeDuty(c *gin.Context) {
	var req model.ComputeDutyDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "invalid request body: "+err.Error())
		return
	}

	duty, err := tr.calculations.ComputeDuty(req)
	if err != nil {
		writeServiceError(c, err, "compute duty")
		return
	}
	c.JSON(http.StatusOK, duty)
}

// HandleConvertCurrency handles GET /api/v1/currency/convert
// Query params: amount, from, to (required), date (optional)
func (tr *TariffRouter) HandleConvertCurrency(c *gin.Context) {
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "'from' and 'to' query parameters are required")
		return
	}
	amount, err := decimal.NewFromString(c.Query("amount"))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "invalid 'amount' query parameter, must be a decimal number")
		return
	}
	asOf, err := parseDate(c.Query("date"))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "date must be a YYYY-MM-DD date")
		return
	}

	conversion, err := tr.calculations.Convert(c.Request.Context(), amount, from, to, asOf)
	if err != nil {
		writeServiceError(c, err, "convert currency")
		return
	}
	c.JSON(http.StatusOK, conversion)
}

// HandleGetHTSCodes handles GET /api/v1/hscodes
// Optional Query Filters: hsCodeStartsWith, offset, limit
func (tr *TariffRouter) HandleGetHTSCodes(c *gin.Context) {
	var filter model.HTSCodeFilter
	if prefix := c.Query("hsCodeStartsWith"); prefix != "" {
		filter.HTSCodeStartsWith = &prefix
	}
	offset, limit, ok := parsePagination(c)
	if !ok {
		return
	}
	filter.Offset, filter.Limit = offset, limit

	htsCodes, err := tr.catalog.ListHTSCodes(c.Request.Context(), filter)
	if err != nil {
		writeServiceError(c, err, "get HTS codes")
		return
	}
	c.JSON(http.StatusOK, htsCodes)
}

// HandleGetHTSCode handles GET /api/v1/hscodes/:code
// The code may be given with or without separators.
func (tr *TariffRouter) HandleGetHTSCode(c *gin.Context) {
	htsCode, err := tr.catalog.GetHTSCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeServiceError(c, err, "get HTS code")
		return
	}
	c.JSON(http.StatusOK, htsCode)
}

// HandleGetAgreements handles GET /api/v1/agreements
// Optional query params: origin and destination (both, to filter), date
func (tr *TariffRouter) HandleGetAgreements(c *gin.Context) {
	asOf, err := parseDate(c.Query("date"))
	if err != nil {
		writeJSONError(c, http.StatusBadRequest, "invalid_request", "date must be a YYYY-MM-DD date")
		return
	}

	agreements, err := tr.catalog.ListAgreements(c.Request.Context(), c.Query("origin"), c.Query("destination"), asOf)
	if err != nil {
		writeServiceError(c, err, "get trade agreements")
		return
	}
	c.JSON(http.StatusOK, agreements)
}
