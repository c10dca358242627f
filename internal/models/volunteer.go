package models

import (
	"regexp"
	"time"
)

// Status enumerates the eligibility states a volunteer can be in. The
// first four can only be produced by the status engine; the remainder are
// also valid manual overrides set by staff.
type Status string

const (
	StatusInStudy         Status = "in_study"
	StatusStudyAssigned   Status = "study_assigned"
	StatusAgeMismatch     Status = "age_mismatch"
	StatusStandby         Status = "standby"
	StatusWaitingApproval Status = "waiting_approval"
	StatusEligible        Status = "eligible"
	StatusRejected        Status = "rejected"
)

// statusLabels maps statuses to their display labels.
var statusLabels = map[Status]string{
	StatusInStudy:         "In study",
	StatusStudyAssigned:   "Study assigned",
	StatusAgeMismatch:     "Not eligible by age",
	StatusStandby:         "On cooldown",
	StatusWaitingApproval: "Waiting for approval",
	StatusEligible:        "Eligible",
	StatusRejected:        "Rejected",
}

// Label returns the human readable form of the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether the status is a known enum value.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// CURPPattern validates the Mexican national ID carried by volunteers.
var CURPPattern = regexp.MustCompile(`^[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]\d$`)

// Volunteer represents a person registered for paid study enrollment.
// Code is assigned once at creation and never changes.
type Volunteer struct {
	ID               string     `db:"id" json:"id"`
	Code             string     `db:"code" json:"code"`
	FirstName        string     `db:"first_name" json:"first_name"`
	MiddleName       *string    `db:"middle_name" json:"middle_name,omitempty"`
	LastNamePaternal string     `db:"last_name_paternal" json:"last_name_paternal"`
	LastNameMaternal *string    `db:"last_name_maternal" json:"last_name_maternal,omitempty"`
	BirthDate        *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	Sex              *string    `db:"sex" json:"sex,omitempty"`
	CURP             *string    `db:"curp" json:"curp,omitempty"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	ManualStatus     Status     `db:"manual_status" json:"manual_status"`
	StatusReason     *string    `db:"status_reason" json:"status_reason,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// VolunteerDetail augments a volunteer with its derived attributes and
// participation history. Status, age and full name are never persisted;
// they are recomputed on every read.
type VolunteerDetail struct {
	Volunteer
	FullName       string                `json:"full_name"`
	Age            int                   `json:"age"`
	Status         Status                `json:"status"`
	StatusLabel    string                `json:"status_label"`
	ActiveStudy    *string               `json:"active_study,omitempty"`
	Participations []ParticipationDetail `json:"participations"`
}

// VolunteerFilter encapsulates allowed search parameters for listing volunteers.
type VolunteerFilter struct {
	Search    string
	Sex       string
	Status    Status
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
