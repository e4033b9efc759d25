package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/OpenNSW/tariff/internal/reports/drivers"
	"github.com/OpenNSW/tariff/internal/tariff/model"
)

// ErrReportNotFound is returned when no report is stored under a key
var ErrReportNotFound = errors.New("report not found")

// ReportService archives calculation results as JSON documents
type ReportService struct {
	Driver StorageDriver
	now    func() time.Time
}

func NewReportService(driver StorageDriver) *ReportService {
	return &ReportService{Driver: driver, now: time.Now}
}

// KeyFor returns the storage key of a calculation's report
func KeyFor(calculationID uuid.UUID) string {
	return calculationID.String() + ".json"
}

// Archive stores the result of a calculation and returns where it was saved
func (s *ReportService) Archive(ctx context.Context, calculationID uuid.UUID, requestedBy string, result *model.CalculationResult) (*ReportMetadata, error) {
	if result == nil {
		return nil, fmt.Errorf("calculation result cannot be nil")
	}

	body, err := json.MarshalIndent(Report{
		CalculationID: calculationID,
		RequestedBy:   requestedBy,
		GeneratedAt:   s.now().UTC(),
		Result:        *result,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}

	key := KeyFor(calculationID)
	if err := s.Driver.Save(ctx, key, bytes.NewReader(body), reportContentType); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned report", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	slog.InfoContext(ctx, "calculation report archived", "calculation_id", calculationID, "key", key)
	return &ReportMetadata{
		Key:         key,
		URL:         url,
		Size:        int64(len(body)),
		ContentType: reportContentType,
	}, nil
}

// Open streams an archived report back
func (s *ReportService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	reader, contentType, err := s.Driver.Get(ctx, key)
	if err != nil {
		if errors.Is(err, drivers.ErrObjectNotFound) {
			return nil, "", ErrReportNotFound
		}
		return nil, "", err
	}
	return reader, contentType, nil
}

// Load decodes an archived report
func (s *ReportService) Load(ctx context.Context, key string) (*Report, error) {
	reader, _, err := s.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	var report Report
	if err := json.NewDecoder(reader).Decode(&report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", key, err)
	}
	return &report, nil
}
