package dto

import (
	"time"

	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

// StudentView is the admin-facing student representation.
type StudentView struct {
	ID          string         `json:"id"`
	StudentID   string         `json:"student_id"`
	CardID      *string        `json:"card_id,omitempty"`
	HasCard     bool           `json:"has_card"`
	HasPIN      bool           `json:"has_pin"`
	StudentInfo studentid.Info `json:"student_info"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateStudentRequest adds a student from the dashboard.
type CreateStudentRequest struct {
	CardID    string `json:"card_id" validate:"omitempty,card_id"`
	StudentID string `json:"student_id" validate:"required,student_id"`
	PIN       string `json:"pin" validate:"required,pin"`
}

// UpdateStudentRequest changes the PIN and/or card of a student.
type UpdateStudentRequest struct {
	NewPIN    string `json:"new_pin" validate:"omitempty,pin"`
	NewCardID string `json:"new_card_id" validate:"omitempty,card_id"`
}

// RegisterRequest is the kiosk self-registration payload. An empty CardID registers a cardless student.
type RegisterRequest struct {
	CardID    string `json:"card_id" validate:"omitempty,card_id"`
	StudentID string `json:"student_id" validate:"required,student_id"`
	PIN       string `json:"pin" validate:"required,pin"`
}

// RegisterResult reports whether a card was attached to an existing student.
type RegisterResult struct {
	Student StudentView `json:"student"`
	Merged  bool        `json:"merged"`
}

// LookupStudentRequest asks whether a student id is registered.
type LookupStudentRequest struct {
	StudentID string `json:"student_id" validate:"required,student_id"`
}

// LookupStudentResult answers LookupStudentRequest.
type LookupStudentResult struct {
	StudentID string `json:"student_id"`
	Exists    bool   `json:"exists"`
	HasPIN    bool   `json:"has_pin"`
}

// ChangePINRequest replaces a PIN by tapping the card.
type ChangePINRequest struct {
	CardID string `json:"card_id" validate:"required,card_id"`
	NewPIN string `json:"new_pin" validate:"required,pin"`
}
