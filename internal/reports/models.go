package reports

import (
	"time"

	"github.com/google/uuid"

	"github.com/OpenNSW/tariff/internal/tariff/model"
)

const reportContentType = "application/json"

// Report is the archived document of one calculation
type Report struct {
	CalculationID uuid.UUID               `json:"calculationId"`
	RequestedBy   string                  `json:"requestedBy,omitempty"`
	GeneratedAt   time.Time               `json:"generatedAt"`
	Result        model.CalculationResult `json:"result"`
}

// ReportMetadata describes where a report was archived
type ReportMetadata struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType"`
}
