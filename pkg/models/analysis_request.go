package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisStatus is the lifecycle state of an analysis request.
// succeeded and failed are terminal.
type AnalysisStatus string

const (
	AnalysisPending    AnalysisStatus = "pending"
	AnalysisInProgress AnalysisStatus = "in_progress"
	AnalysisSucceeded  AnalysisStatus = "succeeded"
	AnalysisFailed     AnalysisStatus = "failed"
)

// IsTerminal reports whether the status allows no further transitions.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisSucceeded || s == AnalysisFailed
}

// AnalysisRequest tracks one submission through the pipeline. The request
// exclusively owns its SourceUnit and StructuralHints for the pipeline's
// lifetime; only the pipeline driver mutates it.
type AnalysisRequest struct {
	ID             uuid.UUID      `json:"id"`
	Status         AnalysisStatus `json:"status"`
	Language       Language       `json:"language"`
	OriginFilename string         `json:"origin_filename,omitempty"`
	SizeBytes      int            `json:"size_bytes"`
	ActorID        string         `json:"actor_id"`

	ProviderUsed  string `json:"provider_used,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`

	// Result holds the structured output once Status is succeeded.
	Result *AnalysisResult `json:"result,omitempty"`

	RequestedAt time.Time  `json:"requested_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
