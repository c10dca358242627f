package models

import "time"

// DashboardSummary aggregates registry counters for the landing page.
type DashboardSummary struct {
	TotalVolunteers int            `json:"total_volunteers"`
	ByStatus        map[Status]int `json:"by_status"`
	ActiveStudies   int            `json:"active_studies"`
	OpenEnrollments int            `json:"open_enrollments"`
	GeneratedAt     time.Time      `json:"generated_at"`
}
