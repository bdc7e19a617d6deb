package dto

import "time"

// StatusCount pairs an enrollment status with its record count.
type StatusCount struct {
	Status string `db:"status" json:"status"`
	Count  int    `db:"count" json:"count"`
}

// ProgramCount pairs a program with its enrollment count.
type ProgramCount struct {
	ProgramID string `db:"program_id" json:"programId"`
	Title     string `db:"title" json:"title,omitempty"`
	Count     int    `db:"count" json:"count"`
}

// ReferralCount pairs a recognised referral code with its usage count.
// Only valid, non-empty codes are counted.
type ReferralCount struct {
	ReferralCode string `db:"referral_code" json:"referralCode"`
	Count        int    `db:"count" json:"count"`
}

// DailyCount buckets enrollments by calendar day.
type DailyCount struct {
	Day   time.Time `db:"day" json:"day"`
	Count int       `db:"count" json:"count"`
}

// DashboardResponse aggregates the admin dashboard payload. It is recomputed
// in full from the current record set on every uncached request.
type DashboardResponse struct {
	TotalEnrollments int             `json:"totalEnrollments"`
	ByStatus         []StatusCount   `json:"byStatus"`
	ByProgram        []ProgramCount  `json:"byProgram"`
	ByReferralCode   []ReferralCount `json:"byReferralCode"`
	Daily            []DailyCount    `json:"daily"`
	WindowDays       int             `json:"windowDays"`
	GeneratedAt      time.Time       `json:"generatedAt"`
}
