package models

import "time"

// Applicant approves a student for meals during a period (YYYY-MM).
type Applicant struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Period    string    `db:"period" json:"period"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
