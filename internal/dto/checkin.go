package dto

import (
	"time"

	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

// CheckInRequest is submitted by the kiosk. Exactly one of CardID, StudentID or Input is used;
// Input is raw keyboard/reader text classified by length.
type CheckInRequest struct {
	CardID    string `json:"card_id" validate:"omitempty,card_id"`
	StudentID string `json:"student_id" validate:"omitempty,student_id"`
	Input     string `json:"input"`
	PIN       string `json:"pin" validate:"omitempty,pin"`
	PhotoPath string `json:"photo_path"`
}

// CheckInResult is the admission signal shown on the kiosk.
type CheckInResult struct {
	CheckInID        string         `json:"check_in_id"`
	StudentID        string         `json:"student_id"`
	StudentInfo      studentid.Info `json:"student_info"`
	Period           string         `json:"period"`
	Date             string         `json:"date"`
	IsApplicant      bool           `json:"is_applicant"`
	IsDuplicate      bool           `json:"is_duplicate"`
	CheckCount       int            `json:"check_count"`
	FirstCheckInTime time.Time      `json:"first_check_in_time"`
	CheckedAt        time.Time      `json:"checked_at"`
	Message          string         `json:"message"`
}

// CheckInLogEntry is one row of the daily log with derived fields.
type CheckInLogEntry struct {
	ID          string         `json:"id"`
	StudentID   string         `json:"student_id"`
	StudentInfo studentid.Info `json:"student_info"`
	IsApplicant bool           `json:"is_applicant"`
	IsDuplicate bool           `json:"is_duplicate"`
	CheckCount  int            `json:"check_count"`
	CheckedAt   time.Time      `json:"checked_at"`
	PhotoURL    string         `json:"photo_url,omitempty"`
}

// CheckInLog is the response for a date query.
type CheckInLog struct {
	Date     string            `json:"date"`
	Count    int               `json:"count"`
	CheckIns []CheckInLogEntry `json:"check_ins"`
}

// CheckInSummary aggregates a day's log.
type CheckInSummary struct {
	Date             string `json:"date"`
	Total            int    `json:"total"`
	Applicants       int    `json:"applicants"`
	NonApplicants    int    `json:"non_applicants"`
	Duplicates       int    `json:"duplicates"`
	DistinctStudents int    `json:"distinct_students"`
}
