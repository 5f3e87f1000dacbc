// Package studentid holds the identifier rules shared by the kiosk and the admin dashboard.
//
// A student id is five decimal digits: the first digit is the grade, digits two and
// three the class, digits four and five the number within the class ("20701" is
// grade 2, class 7, number 1). Card ids are the ten-digit values read from NFC cards
// and PINs are four digits.
package studentid

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	studentIDPattern = regexp.MustCompile(`^\d{5}$`)
	cardIDPattern    = regexp.MustCompile(`^\d{10}$`)
	pinPattern       = regexp.MustCompile(`^\d{4}$`)
)

var (
	ErrFormat   = errors.New("student id must be exactly 5 digits")
	ErrZeroPart = errors.New("grade, class and number must be non-zero")
)

// Info is the decoded form of a student id.
type Info struct {
	Grade     int    `json:"grade"`
	Class     int    `json:"class"`
	Number    int    `json:"number"`
	Formatted string `json:"formatted"`
}

// Parse decodes a student id.
func Parse(id string) (Info, error) {
	if !studentIDPattern.MatchString(id) {
		return Info{}, ErrFormat
	}
	grade, _ := strconv.Atoi(id[0:1])
	class, _ := strconv.Atoi(id[1:3])
	number, _ := strconv.Atoi(id[3:5])
	if grade == 0 || class == 0 || number == 0 {
		return Info{}, ErrZeroPart
	}
	return Info{
		Grade:     grade,
		Class:     class,
		Number:    number,
		Formatted: fmt.Sprintf("Grade %d Class %d No. %d", grade, class, number),
	}, nil
}

// MustParse is Parse for ids already validated upstream; invalid ids yield a zero Info.
func MustParse(id string) Info {
	info, err := Parse(id)
	if err != nil {
		return Info{}
	}
	return info
}

// LooksLikeStudentID reports whether raw is shaped like a student id without applying the parse rule.
func LooksLikeStudentID(raw string) bool {
	return studentIDPattern.MatchString(raw)
}

func IsValidStudentID(id string) bool {
	_, err := Parse(id)
	return err == nil
}

func IsValidCardID(id string) bool {
	return cardIDPattern.MatchString(id)
}

func IsValidPIN(pin string) bool {
	return pinPattern.MatchString(pin)
}

// InputKind classifies raw kiosk input.
type InputKind int

const (
	InputInvalid InputKind = iota
	InputCard
	InputStudentID
)

// Classify decides how the kiosk should treat a typed or scanned value.
func Classify(raw string) InputKind {
	switch {
	case cardIDPattern.MatchString(raw):
		return InputCard
	case studentIDPattern.MatchString(raw):
		return InputStudentID
	default:
		return InputInvalid
	}
}
