package models

import "time"

// Student is a kiosk identity. CardID is nil for students registered without a physical card.
type Student struct {
	ID        string    `db:"id" json:"id"`
	CardID    *string   `db:"card_id" json:"card_id,omitempty"`
	StudentID string    `db:"student_id" json:"student_id"`
	PINHash   *string   `db:"pin_hash" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// HasCard reports whether a physical card is linked.
func (s Student) HasCard() bool {
	return s.CardID != nil && *s.CardID != ""
}

// HasPIN reports whether the student set a PIN.
func (s Student) HasPIN() bool {
	return s.PINHash != nil && *s.PINHash != ""
}

// StudentFilter narrows the admin student listing.
type StudentFilter struct {
	Search   string
	HasCard  *bool
	Page     int
	PageSize int
}
