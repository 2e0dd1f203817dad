package models

import "time"

// Sex enumerates the registered sex of a student.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Valid returns true when the value is a supported sex.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Group is the age-derived cohort a student belongs to.
type Group string

const (
	GroupA     Group = "A"
	GroupB     Group = "B"
	GroupC     Group = "C"
	GroupD     Group = "D"
	GroupOther Group = "other"
)

// Valid returns true when the group is a known cohort label.
func (g Group) Valid() bool {
	switch g {
	case GroupA, GroupB, GroupC, GroupD, GroupOther:
		return true
	default:
		return false
	}
}

// GroupForAge maps an age to its cohort. Total over all integers; anything
// outside the four bands lands in the catch-all group.
func GroupForAge(age int) Group {
	switch {
	case age >= 4 && age <= 6:
		return GroupA
	case age >= 7 && age <= 10:
		return GroupB
	case age >= 11 && age <= 14:
		return GroupC
	case age >= 15 && age <= 18:
		return GroupD
	default:
		return GroupOther
	}
}

// Student represents a registered learner. Group is derived from age at
// registration time and never recomputed afterwards.
type Student struct {
	ID               string    `db:"id" json:"id"`
	FullName         string    `db:"full_name" json:"full_name"`
	SpiritualName    string    `db:"spiritual_name" json:"spiritual_name"`
	Sex              Sex       `db:"sex" json:"sex"`
	Age              int       `db:"age" json:"age"`
	Class            string    `db:"class" json:"class"`
	FamilyName       string    `db:"family_name" json:"family_name"`
	Phone            string    `db:"phone" json:"phone"`
	Address          string    `db:"address" json:"address"`
	Photo            string    `db:"photo" json:"photo,omitempty"`
	Group            Group     `db:"student_group" json:"group"`
	RegistrationDate time.Time `db:"registration_date" json:"registration_date"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed parameters for listing students.
type StudentFilter struct {
	Group  Group
	Search string
}

// GroupCount is one row of the by-group breakdown.
type GroupCount struct {
	Group Group `db:"student_group" json:"group"`
	Count int   `db:"count" json:"count"`
}
