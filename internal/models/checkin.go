package models

import "time"

// CheckIn is an append-only kiosk event. Duplicate status is derived, never stored.
type CheckIn struct {
	ID          string    `db:"id" json:"id"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Date        string    `db:"check_date" json:"date"`
	IsApplicant bool      `db:"is_applicant" json:"is_applicant"`
	PhotoPath   *string   `db:"photo_path" json:"-"`
	CheckedAt   time.Time `db:"checked_at" json:"checked_at"`
}

// CheckInDuplicates walks a time-ordered slice and returns, per row, whether it is an
// applicant admission preceded by an earlier applicant admission of the same student,
// and the 1-based ordinal of the row among that student's rows.
func CheckInDuplicates(rows []CheckIn) (duplicate []bool, ordinal []int) {
	duplicate = make([]bool, len(rows))
	ordinal = make([]int, len(rows))
	admitted := make(map[string]bool)
	counts := make(map[string]int)
	for i, row := range rows {
		counts[row.StudentID]++
		ordinal[i] = counts[row.StudentID]
		duplicate[i] = row.IsApplicant && admitted[row.StudentID]
		if row.IsApplicant {
			admitted[row.StudentID] = true
		}
	}
	return duplicate, ordinal
}
