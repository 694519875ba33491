package api

import "time"

// SessionStatus is the server-owned lifecycle of an AR analysis session.
// The client never computes a transition, it only displays what the backend
// reports.
type SessionStatus string

const (
	StatusDraft                SessionStatus = "Draft"
	StatusIntakeUploaded       SessionStatus = "IntakeUploaded"
	StatusValidationInProgress SessionStatus = "ValidationInProgress"
	StatusValidationCompleted  SessionStatus = "ValidationCompleted"
	StatusValidationFailed     SessionStatus = "ValidationFailed"
	StatusPmUploaded           SessionStatus = "PmUploaded"
	StatusProcessing           SessionStatus = "Processing"
	StatusConflictResolution   SessionStatus = "ConflictResolution"
	StatusEnrichmentPending    SessionStatus = "EnrichmentPending"
	StatusEnrichmentCompleted  SessionStatus = "EnrichmentCompleted"
	StatusCompleted            SessionStatus = "Completed"
	StatusFailed               SessionStatus = "Failed"
)

// Terminal reports whether the session has reached a final state.
func (s SessionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type ArAnalysisSession struct {
	ID                  string        `json:"id"`
	SessionName         string        `json:"sessionName"`
	PracticeName        string        `json:"practiceName"`
	UploadedBy          string        `json:"uploadedBy"`
	UploadedAt          time.Time     `json:"uploadedAt"`
	SourceType          string        `json:"sourceType"`
	SessionStatus       SessionStatus `json:"sessionStatus"`
	IntakeFileName      string        `json:"intakeFileName,omitempty"`
	PmSourceReportFiles []string      `json:"pmSourceReportFiles,omitempty"`
}

type ColumnError struct {
	ColumnName string `json:"columnName"`
	Message    string `json:"message"`
}

type RowError struct {
	RowIndex     int    `json:"rowIndex"`
	ColumnName   string `json:"columnName"`
	Message      string `json:"message"`
	InvalidValue string `json:"invalidValue"`
}

// ArIntakeValidationResult is produced synchronously by the intake upload.
// Success gates wizard progression past step 1.
type ArIntakeValidationResult struct {
	Success              bool          `json:"success"`
	ColumnValidatedCount int           `json:"columnValidatedCount"`
	ColumnErrors         []ColumnError `json:"columnErrors"`
	RowValidatedCount    int           `json:"rowValidatedCount"`
	RowErrors            []RowError    `json:"rowErrors"`
}

// CreateSessionResult is the payload of the multipart session-create call.
type CreateSessionResult struct {
	SessionID        string                   `json:"sessionId"`
	ValidationResult ArIntakeValidationResult `json:"validationResult"`
}

type StepStatus string

const (
	StepPending    StepStatus = "Pending"
	StepInProgress StepStatus = "InProgress"
	StepCompleted  StepStatus = "Completed"
)

type ProcessingStep struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Count  *int       `json:"count,omitempty"`
}

// ArAnalysisProcessingStatus is the poll target during processing.
type ArAnalysisProcessingStatus struct {
	Steps         []ProcessingStep `json:"steps"`
	SessionStatus SessionStatus    `json:"sessionStatus"`
	CurrentStage  string           `json:"currentStage"`
	Message       string           `json:"message"`
}

type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type PriorityUnderpayment struct {
	Priority    string  `json:"priority"`
	ClaimCount  int     `json:"claimCount"`
	Underpaid   float64 `json:"underpaid"`
	Recoverable float64 `json:"recoverable"`
}

type RecoveryProjection struct {
	Bucket          string  `json:"bucket"`
	ProjectedAmount float64 `json:"projectedAmount"`
	Probability     float64 `json:"probability"`
}

type ContingencyFeeBand struct {
	AgeBand   string  `json:"ageBand"`
	FeeRate   float64 `json:"feeRate"`
	FeeAmount float64 `json:"feeAmount"`
}

// ArAnalysisReport is read-only; fetched once per view and cacheable locally.
type ArAnalysisReport struct {
	SessionID              string                 `json:"sessionId"`
	Summary                string                 `json:"summary"`
	TotalClaimsAnalyzed    int                    `json:"totalClaimsAnalyzed"`
	TotalUnderpayment      float64                `json:"totalUnderpayment"`
	RiskAdjustedRecovery   float64                `json:"riskAdjustedRecovery"`
	CategoryCounts         []CategoryCount        `json:"categoryCounts"`
	UnderpaymentByPriority []PriorityUnderpayment `json:"underpaymentByPriority"`
	RecoveryProjection     []RecoveryProjection   `json:"recoveryProjection"`
	ContingencyFeeByAge    []ContingencyFeeBand   `json:"contingencyFeeByAge"`
	GeneratedAt            time.Time              `json:"generatedAt"`
}
