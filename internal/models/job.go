package models

import (
	"time"
)

// Job statuses reported to pollers. A job starts RUNNING and transitions
// exactly once to SUCCESS or ERROR.
const (
	StatusRunning = "RUNNING"
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Filter selects the slice of the organization a vacancy report covers.
// Both fields are required at submission.
type Filter struct {
	IC       string `json:"ic" validate:"required"`
	EmpGroup string `json:"empGroup" validate:"required"`
}

// Job represents one in-flight or completed vacancy computation held by the
// registry. Progress counts vacancy-determination sub-items; Total is the
// number of positions fetched in stage 1.
type Job struct {
	ID             string            `json:"id"`
	Status         string            `json:"status"`
	Message        string            `json:"message"`
	Progress       int               `json:"progress"`
	Total          int               `json:"total"`
	TotalVacancies int               `json:"total_vacancies"`
	Results        []EnrichedVacancy `json:"results"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// PositionRecord is a position row from the HR source. Transient: only
// positions surviving the vacancy check reach a job's results, as
// EnrichedVacancy records.
type PositionRecord struct {
	Code               string
	ExternalName       string
	EffectiveStartDate string
	ParentCode         string
	BusinessUnit       string
}

// EnrichedVacancy is a vacant position plus its count of active reportee
// positions. ReporteeCount is zero when the reportee lookup failed.
type EnrichedVacancy struct {
	PositionCode       string `json:"positionCode"`
	ExternalName       string `json:"externalName"`
	EffectiveStartDate string `json:"effectiveStartDate"`
	ReporteeCount      int    `json:"reporteeCount"`
}
