// Package eligibility derives a volunteer's current status from their
// participation history and administrative overrides. Status is never
// stored; every read recomputes it from current data so it cannot drift.
package eligibility

import (
	"strings"
	"time"

	"github.com/crc-dev/volreg-api/internal/models"
)

const (
	// DefaultMaxAge is the protocol screening limit in years.
	DefaultMaxAge = 55
	// DefaultWashout is the mandatory wait after a paid study.
	DefaultWashout = 90 * 24 * time.Hour
)

// Engine evaluates the status cascade with configurable regulatory
// parameters.
type Engine struct {
	maxAge  int
	washout time.Duration
}

// New constructs an Engine. Non-positive parameters fall back to the
// protocol defaults.
func New(maxAge int, washout time.Duration) *Engine {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if washout <= 0 {
		washout = DefaultWashout
	}
	return &Engine{maxAge: maxAge, washout: washout}
}

// Compute derives the volunteer's status at the evaluation date. The
// rules form a strict priority cascade, first match wins:
//
//  1. an open participation in an active study means the volunteer is
//     in that study, or merely assigned to it when its admission date
//     is still in the future;
//  2. volunteers older than the screening limit are out regardless of
//     any manual override an administrator forgot to update;
//  3. the washout window after the most recent payment blocks
//     re-enrollment;
//  4. otherwise the stored manual override applies, defaulting to
//     waiting_approval.
//
// A volunteer without a birth date counts as age 0 and can never fail
// the age rule. The function is total: any input yields a status.
func (e *Engine) Compute(v models.Volunteer, parts []models.ParticipationDetail, at time.Time) models.Status {
	at = dateOnly(at)

	for _, p := range parts {
		if !p.IsActive || !p.StudyIsActive {
			continue
		}
		if adm := effectiveAdmission(p); adm != nil && dateOnly(*adm).After(at) {
			return models.StatusStudyAssigned
		}
		return models.StatusInStudy
	}

	if Age(v.BirthDate, at) > e.maxAge {
		return models.StatusAgeMismatch
	}

	if end, ok := e.CooldownEnd(parts); ok && at.Before(end) {
		return models.StatusStandby
	}

	if v.ManualStatus.Valid() {
		return v.ManualStatus
	}
	return models.StatusWaitingApproval
}

// CooldownEnd returns the first date the volunteer may enroll again,
// derived from the greatest payment date across their participations.
// ok is false when no participation has ever been paid.
func (e *Engine) CooldownEnd(parts []models.ParticipationDetail) (time.Time, bool) {
	var latest *time.Time
	for i := range parts {
		paid := effectivePayment(parts[i])
		if paid == nil {
			continue
		}
		if latest == nil || paid.After(*latest) {
			latest = paid
		}
	}
	if latest == nil {
		return time.Time{}, false
	}
	return dateOnly(*latest).Add(e.washout), true
}

// LastPayment returns the most recent payment date and the name of the
// study it came from, for use in rejection messages.
func (e *Engine) LastPayment(parts []models.ParticipationDetail) (time.Time, string, bool) {
	var (
		latest *time.Time
		study  string
	)
	for i := range parts {
		paid := effectivePayment(parts[i])
		if paid == nil {
			continue
		}
		if latest == nil || paid.After(*latest) {
			latest = paid
			study = parts[i].StudyName
		}
	}
	if latest == nil {
		return time.Time{}, "", false
	}
	return dateOnly(*latest), study, true
}

// Age computes full years between the birth date and the evaluation
// date. A missing birth date yields 0.
func Age(birthDate *time.Time, at time.Time) int {
	if birthDate == nil {
		return 0
	}
	b := dateOnly(*birthDate)
	at = dateOnly(at)
	years := at.Year() - b.Year()
	anniversary := time.Date(at.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	if at.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// FullName concatenates the volunteer's name parts, skipping absent ones.
func FullName(v models.Volunteer) string {
	parts := []string{v.FirstName}
	if v.MiddleName != nil && *v.MiddleName != "" {
		parts = append(parts, *v.MiddleName)
	}
	parts = append(parts, v.LastNamePaternal)
	if v.LastNameMaternal != nil && *v.LastNameMaternal != "" {
		parts = append(parts, *v.LastNameMaternal)
	}
	return strings.Join(parts, " ")
}

// The study window is authoritative; participation-level dates remain
// from imported history and act as fallback.
func effectiveAdmission(p models.ParticipationDetail) *time.Time {
	if p.StudyAdmissionDate != nil {
		return p.StudyAdmissionDate
	}
	return p.AdmissionDate
}

func effectivePayment(p models.ParticipationDetail) *time.Time {
	if p.PaymentDate != nil {
		return p.PaymentDate
	}
	return p.StudyPaymentDate
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
