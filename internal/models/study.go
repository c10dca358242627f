package models

import "time"

// Study represents a trial with a single admission/payment window shared
// by all its participants. IsActive is forced to false on every save once
// the payment date is set and has passed.
type Study struct {
	ID            string     `db:"id" json:"id"`
	Name          string     `db:"name" json:"name"`
	Description   string     `db:"description" json:"description"`
	AdmissionDate *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	PaymentDate   *time.Time `db:"payment_date" json:"payment_date,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// StudyFilter captures filtering criteria for listing studies.
type StudyFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
