package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenNSW/tariff/internal/auth"
	"github.com/OpenNSW/tariff/internal/reports"
	"github.com/OpenNSW/tariff/internal/reports/drivers"
	"github.com/OpenNSW/tariff/internal/tariff/engine"
	"github.com/OpenNSW/tariff/internal/tariff/model"
	"github.com/OpenNSW/tariff/internal/tariff/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// catalogStore is an in-memory rate store with one product and one agreement.
type catalogStore struct{}

func date(s string) *time.Time {
	t, _ := time.Parse(model.DateLayout, s)
	return &t
}

func (catalogStore) FindProduct(ctx context.Context, code model.ProductCode) (*model.HTSCode, error) {
	if code != "12345678" {
		return nil, engine.ErrNotFound
	}
	return &model.HTSCode{Code: "12345678", Description: "Widgets"}, nil
}

func (catalogStore) List(ctx context.Context, filter model.HTSCodeFilter) (*model.HTSCodeListResult, error) {
	return &model.HTSCodeListResult{
		TotalCount: 1,
		HTSCodes:   []model.HTSCode{{Code: "12345678", Description: "Widgets"}},
		Limit:      20,
	}, nil
}

func (catalogStore) FindDefaultRates(ctx context.Context, code model.ProductCode) ([]model.RateSpec, error) {
	return []model.RateSpec{{
		AdValoremRate: decimal.NewNullDecimal(decimal.RequireFromString("0.10")),
		SpecificRate:  decimal.NewNullDecimal(decimal.RequireFromString("5")),
		Validity:      model.Validity{EffectiveDate: date("2020-01-01")},
	}}, nil
}

func (catalogStore) FindPreferentialRates(ctx context.Context, code model.ProductCode, destinationCountry string) ([]model.PreferentialRate, error) {
	return []model.PreferentialRate{}, nil
}

func (catalogStore) FindAgreementsBetween(ctx context.Context, originCountry, destinationCountry string) ([]model.TradeAgreement, error) {
	return []model.TradeAgreement{{Code: "USMCA", Validity: model.Validity{EffectiveDate: date("2020-07-01")}}}, nil
}

func (catalogStore) FindExchangeRate(ctx context.Context, from, to string, asOf *time.Time) (decimal.NullDecimal, error) {
	if from == "USD" && to == "EUR" {
		return decimal.NewNullDecimal(decimal.RequireFromString("0.9")), nil
	}
	return decimal.NullDecimal{}, nil
}

type agreementList struct{ catalogStore }

func (agreementList) List(ctx context.Context) ([]model.TradeAgreement, error) {
	return []model.TradeAgreement{{Code: "USMCA"}, {Code: "GSP"}}, nil
}

// recordStore keeps calculation records in memory.
type recordStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*model.CalculationRecord
}

func newRecordStore() *recordStore {
	return &recordStore{records: make(map[uuid.UUID]*model.CalculationRecord)}
}

func (s *recordStore) Create(ctx context.Context, record *model.CalculationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.ID = uuid.New()
	s.records[record.ID] = record
	return nil
}

func (s *recordStore) SetReportKey(ctx context.Context, id uuid.UUID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return engine.ErrNotFound
	}
	record.ReportKey = &key
	return nil
}

func (s *recordStore) GetByID(ctx context.Context, id uuid.UUID) (*model.CalculationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[id]
	if !ok {
		return nil, engine.ErrNotFound
	}
	return record, nil
}

func (s *recordStore) ListByRequester(ctx context.Context, filter model.CalculationRecordFilter) (*model.CalculationRecordListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := []model.CalculationRecord{}
	for _, record := range s.records {
		if record.RequestedBy != nil && *record.RequestedBy == filter.RequestedBy {
			items = append(items, *record)
		}
	}
	return &model.CalculationRecordListResult{TotalCount: int64(len(items)), Items: items, Limit: 20}, nil
}

type testServer struct {
	handler http.Handler
	records *recordStore
	trader  *auth.TraderProfile
}

// withTrader injects an auth context the way auth.Middleware does.
func withTrader(current func() *auth.TraderProfile) gin.HandlerFunc {
	return func(c *gin.Context) {
		if profile := current(); profile != nil {
			ctx := context.WithValue(c.Request.Context(), auth.AuthContextKey, &auth.AuthContext{TraderProfile: profile})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

func newTestServer(t *testing.T, profile *auth.TraderProfile) *testServer {
	t.Helper()
	stores := catalogStore{}
	calculator := engine.NewCalculator(stores, stores, stores, stores,
		engine.WithClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }),
	)

	driver, err := drivers.NewLocalFSDriver(t.TempDir(), "/reports")
	require.NoError(t, err)
	reportService := reports.NewReportService(driver)
	records := newRecordStore()

	calculations := service.NewCalculationService(calculator, records, reportService, service.Options{PersistCalculations: true, ArchiveReports: true})
	catalog := service.NewCatalogService(stores, agreementList{})

	s := &testServer{records: records, trader: profile}
	r := gin.New()
	r.Use(withTrader(func() *auth.TraderProfile { return s.trader }))
	NewTariffRouter(calculations, catalog).RegisterRoutes(r)
	RegisterReportFiles(r, "/reports", reportService)
	s.handler = r
	return s
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeCalculation(t *testing.T, w *httptest.ResponseRecorder) model.CalculationResponseDTO {
	t.Helper()
	var response model.CalculationResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	require.NotNil(t, response.CalculationResult)
	return response
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

const widgetRequest = `{"htsCode":"1234.56.78","destinationCountry":"us","productValue":"1000","quantity":10}`

func TestHealth(t *testing.T) {
	tr := NewTariffRouter(nil, nil)

	w := httptest.NewRecorder()
	NewEngine(tr, func(ctx context.Context) error { return nil }).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	NewEngine(tr, func(ctx context.Context) error { return errors.New("db down") }).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleCalculateTariff(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/tariffs/calculate", widgetRequest)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decodeCalculation(t, w)
	assert.Equal(t, "12345678", response.HTSCode)
	assert.Equal(t, "Widgets", response.Description)
	assert.Equal(t, "150.00", response.MFNTariffAmount.StringFixed(2))
	assert.Equal(t, model.MFNProgramName, response.BestProgramName)
	assert.NotNil(t, response.CalculationID)
	assert.Equal(t, "/reports/"+response.CalculationID.String()+".json", response.ReportURL)
}

func TestHandleCalculateTariff_Errors(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   model.ErrorCode
	}{
		{"unknown product", `{"htsCode":"9999.99.99","destinationCountry":"US","productValue":"10","quantity":1}`, http.StatusNotFound, model.ErrorCodeProductNotFound},
		{"malformed code", `{"htsCode":"12AB","destinationCountry":"US","productValue":"10","quantity":1}`, http.StatusBadRequest, model.ErrorCodeInvalidFormat},
		{"negative value", `{"htsCode":"12345678","destinationCountry":"US","productValue":"-1","quantity":1}`, http.StatusBadRequest, model.ErrorCodeInvalidInput},
		{"missing destination", `{"htsCode":"12345678","productValue":"10","quantity":1}`, http.StatusBadRequest, model.ErrorCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/tariffs/calculate", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			response := decodeCalculation(t, w)
			assert.Equal(t, tt.wantCode, response.ErrorCode)
			assert.NotEmpty(t, response.Error)
			assert.Nil(t, response.CalculationID)
		})
	}
}

func TestHandleCalculateTariff_BadRequests(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"htsCode":`},
		{"bad date", `{"htsCode":"12345678","destinationCountry":"US","productValue":"10","quantity":1,"date":"06/01/2024"}`},
		{"start without end", `{"htsCode":"12345678","destinationCountry":"US","productValue":"10","quantity":1,"startDate":"2024-01-01"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/api/v1/tariffs/calculate", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "invalid_request", decodeError(t, w).Error)
		})
	}
}

func TestHandleCalculateTariff_DateRange(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/tariffs/calculate",
		`{"htsCode":"12345678","destinationCountry":"US","productValue":"1000","quantity":10,"startDate":"2023-01-01","endDate":"2023-12-31"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decodeCalculation(t, w)
	require.NotNil(t, response.DateRange)
	assert.Equal(t, "2023-01-01", response.DateRange.Start.Format(model.DateLayout))
}

func TestHandleCalculateTariff_UsesTraderPreferences(t *testing.T) {
	currency := "EUR"
	s := newTestServer(t, &auth.TraderProfile{TraderID: "trader-1", PreferredCurrency: &currency})

	w := s.do(http.MethodPost, "/api/v1/tariffs/calculate", widgetRequest)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	response := decodeCalculation(t, w)
	assert.Equal(t, "EUR", response.Currency)
	assert.Equal(t, "135.00", response.MFNTariffAmount.StringFixed(2))

	require.NotNil(t, response.CalculationID)
	record, err := s.records.GetByID(context.Background(), *response.CalculationID)
	require.NoError(t, err)
	require.NotNil(t, record.RequestedBy)
	assert.Equal(t, "trader-1", *record.RequestedBy)
}

func TestHandleComputeDuty(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/v1/tariffs/duty", `{"adValoremRate":"0.05","specificRate":"2.50","productValue":"1000","quantity":10}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var duty model.ComputeDutyResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &duty))
	assert.Equal(t, "75.00", duty.TariffAmount.StringFixed(2))

	w = s.do(http.MethodPost, "/api/v1/tariffs/duty", `{"adValoremRate":"0.05","productValue":"1000","quantity":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleConvertCurrency(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/v1/currency/convert?amount=100&from=usd&to=eur", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var conversion model.ConversionResponseDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversion))
	assert.True(t, conversion.Converted)
	assert.Equal(t, "90.00", conversion.ConvertedAmount.StringFixed(2))

	w = s.do(http.MethodGet, "/api/v1/currency/convert?amount=100&from=USD&to=GBP", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &conversion))
	assert.False(t, conversion.Converted)
	require.Len(t, conversion.Warnings, 1)

	for _, target := range []string{
		"/api/v1/currency/convert?amount=100&from=USD",
		"/api/v1/currency/convert?amount=abc&from=USD&to=EUR",
		"/api/v1/currency/convert?amount=100&from=USD&to=EUR&date=yesterday",
		"/api/v1/currency/convert?amount=-1&from=USD&to=EUR",
	} {
		assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, target, "").Code, target)
	}
}

func TestHandleGetHTSCodes(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/v1/hscodes?hsCodeStartsWith=1234&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list model.HTSCodeListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.TotalCount)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/hscodes?limit=ten", "").Code)
}

func TestHandleGetHTSCode(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		code       string
		wantStatus int
	}{
		{"1234.56.78", http.StatusOK},
		{"12345678", http.StatusOK},
		{"87654321", http.StatusNotFound},
		{"12AB", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, s.do(http.MethodGet, "/api/v1/hscodes/"+tt.code, "").Code)
		})
	}
}

func TestHandleGetAgreements(t *testing.T) {
	s := newTestServer(t, nil)

	var agreements []model.TradeAgreement
	w := s.do(http.MethodGet, "/api/v1/agreements", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agreements))
	assert.Len(t, agreements, 2)

	w = s.do(http.MethodGet, "/api/v1/agreements?origin=MX&destination=US", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agreements))
	require.Len(t, agreements, 1)
	assert.Equal(t, "USMCA", agreements[0].Code)

	w = s.do(http.MethodGet, "/api/v1/agreements?origin=MX&destination=US&date=2019-01-01", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &agreements))
	assert.Empty(t, agreements)
}

func TestHandleGetCalculations_RequiresAuth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodGet, "/api/v1/calculations", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCalculationHistory(t *testing.T) {
	s := newTestServer(t, &auth.TraderProfile{TraderID: "trader-1"})
	created := decodeCalculation(t, s.do(http.MethodPost, "/api/v1/tariffs/calculate", widgetRequest))
	require.NotNil(t, created.CalculationID)
	id := created.CalculationID.String()

	w := s.do(http.MethodGet, "/api/v1/calculations", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list model.CalculationRecordListResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, id, list.Items[0].ID.String())

	w = s.do(http.MethodGet, "/api/v1/calculations/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	var record model.CalculationRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &record))
	assert.Equal(t, "150.00", record.MFNTariffAmount.StringFixed(2))

	w = s.do(http.MethodGet, "/api/v1/calculations/"+id+"/report", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	var report reports.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, id, report.CalculationID.String())
	assert.Equal(t, "trader-1", report.RequestedBy)

	w = s.do(http.MethodGet, created.ReportURL, "")
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/calculations/not-a-uuid", "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/api/v1/calculations/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/reports/missing.json", "").Code)
}

func TestCalculationHistory_HiddenFromOtherTraders(t *testing.T) {
	s := newTestServer(t, &auth.TraderProfile{TraderID: "trader-1"})
	created := decodeCalculation(t, s.do(http.MethodPost, "/api/v1/tariffs/calculate", widgetRequest))
	require.NotNil(t, created.CalculationID)
	target := "/api/v1/calculations/" + created.CalculationID.String()

	s.trader = &auth.TraderProfile{TraderID: "trader-2"}
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, target, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, target+"/report", "").Code)

	s.trader = nil
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, target, "").Code)
}

func TestHandleGetCalculationReport_NotArchived(t *testing.T) {
	s := newTestServer(t, nil)
	record := &model.CalculationRecord{HTSCode: "12345678"}
	require.NoError(t, s.records.Create(context.Background(), record))

	w := s.do(http.MethodGet, "/api/v1/calculations/"+record.ID.String()+"/report", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", decodeError(t, w).Error)
}
