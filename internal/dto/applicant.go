package dto

import "time"

// AddApplicantRequest adds a single applicant for the current period.
type AddApplicantRequest struct {
	StudentID string `json:"student_id" validate:"required,student_id"`
}

// ApplicantView is a roster entry.
type ApplicantView struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ApplicantRoster is the current period's list.
type ApplicantRoster struct {
	Period     string          `json:"period"`
	Count      int             `json:"count"`
	Applicants []ApplicantView `json:"applicants"`
}

// RosterUploadResult reports the outcome of a spreadsheet upload.
type RosterUploadResult struct {
	Period   string   `json:"period"`
	Found    int      `json:"found"`
	Created  int      `json:"created"`
	Replaced bool     `json:"replaced"`
	Errors   []string `json:"errors,omitempty"`
}
