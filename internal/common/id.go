package common

import (
	"github.com/google/uuid"
)

// NewJobID generates a unique job ID with the "job_" prefix
// Format: job_<uuid>
func NewJobID() string {
	return "job_" + uuid.New().String()
}

// NewEngagementID generates a unique engagement ID with the "eng_" prefix
// Format: eng_<uuid>
func NewEngagementID() string {
	return "eng_" + uuid.New().String()
}

// NewReportID generates a unique report ID with the "rpt_" prefix
// Format: rpt_<uuid>
func NewReportID() string {
	return "rpt_" + uuid.New().String()
}
