package model

import "time"

// PINFLLength is the number of digits in a personal identification number.
const PINFLLength = 14

// Person is a personnel record.
type Person struct {
	ID         int64     `json:"id"`
	PINFL      string    `json:"pinfl"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	MiddleName string    `json:"middle_name,omitempty"`
	RankID     ID        `json:"rank_id,omitempty"`
	UnitID     ID        `json:"unit_id,omitempty"`
	PositionID ID        `json:"position_id,omitempty"`
	RankName   string    `json:"rank_name,omitempty"`
	UnitName   string    `json:"unit_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FullName joins the person's names for display.
func (p *Person) FullName() string {
	name := p.LastName + " " + p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	return name
}

// ValidPINFL reports whether s is exactly PINFLLength ASCII digits.
func ValidPINFL(s string) bool {
	if len(s) != PINFLLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
