package models

import "time"

// Participation is one enrollment episode joining a volunteer to a study.
// It is owned by the volunteer (cascade-deleted with it) and only
// references the study, which cannot be deleted while participations
// point at it.
type Participation struct {
	ID            string     `db:"id" json:"id"`
	VolunteerID   string     `db:"volunteer_id" json:"volunteer_id"`
	StudyID       string     `db:"study_id" json:"study_id"`
	AdmissionDate *time.Time `db:"admission_date" json:"admission_date,omitempty"`
	PaymentDate   *time.Time `db:"payment_date" json:"payment_date,omitempty"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ParticipationDetail enriches a participation with its study's name and
// window. The status engine reads the study dates from here: the study's
// admission date decides assigned-vs-in-study and its payment date feeds
// the washout rule.
type ParticipationDetail struct {
	Participation
	StudyName          string     `db:"study_name" json:"study_name"`
	StudyAdmissionDate *time.Time `db:"study_admission_date" json:"study_admission_date,omitempty"`
	StudyPaymentDate   *time.Time `db:"study_payment_date" json:"study_payment_date,omitempty"`
	StudyIsActive      bool       `db:"study_is_active" json:"study_is_active"`
}
