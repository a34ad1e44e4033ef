package types

import "time"

// ApplicationStatus is the lifecycle state of a tracked application
type ApplicationStatus string

const (
	StatusDiscovered  ApplicationStatus = "discovered"
	StatusResumeReady ApplicationStatus = "resume_ready"
	StatusApplied     ApplicationStatus = "applied"
	StatusResponse    ApplicationStatus = "response"
	StatusInterview   ApplicationStatus = "interview"
	StatusOffer       ApplicationStatus = "offer"
	StatusRejected    ApplicationStatus = "rejected"
	StatusWithdrawn   ApplicationStatus = "withdrawn"
)

// ApplicationStatuses lists every status in lifecycle order.
var ApplicationStatuses = []ApplicationStatus{
	StatusDiscovered, StatusResumeReady, StatusApplied, StatusResponse,
	StatusInterview, StatusOffer, StatusRejected, StatusWithdrawn,
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	for _, known := range ApplicationStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Closed reports whether the application no longer needs follow-up.
func (s ApplicationStatus) Closed() bool {
	return s == StatusOffer || s == StatusRejected || s == StatusWithdrawn
}

// Application is one tracked job application
type Application struct {
	ID              int64             `json:"id"`
	Company         string            `json:"company"`
	Title           string            `json:"title"`
	Location        string            `json:"location"`
	URL             string            `json:"url"`
	Source          string            `json:"source"`
	Status          ApplicationStatus `json:"status"`
	ResumePath      string            `json:"resume_path"`
	CoverLetterPath string            `json:"cover_letter_path"`
	ATSScore        float64           `json:"ats_score"`
	KeywordsMatched []string          `json:"keywords_matched"`
	KeywordsMissing []string          `json:"keywords_missing"`
	Notes           string            `json:"notes"`
	DateDiscovered  *time.Time        `json:"date_discovered,omitempty"`
	DateApplied     *time.Time        `json:"date_applied,omitempty"`
	DateResponse    *time.Time        `json:"date_response,omitempty"`
	DateInterview   *time.Time        `json:"date_interview,omitempty"`
	FollowUpDate    *time.Time        `json:"follow_up_date,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// ApplicationStats summarizes the tracker contents
type ApplicationStats struct {
	Total       int                       `json:"total"`
	ByStatus    map[ApplicationStatus]int `json:"by_status"`
	AvgATSScore float64                   `json:"avg_ats_score"`
}
