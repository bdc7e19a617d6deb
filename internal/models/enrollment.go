package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment application.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusConfirmed EnrollmentStatus = "confirmed"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// Valid reports whether the status belongs to the closed set.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusConfirmed, EnrollmentStatusCompleted, EnrollmentStatusCancelled:
		return true
	}
	return false
}

// PaymentStatus tracks the payment side of an enrollment.
type PaymentStatus string

// Possible payment statuses.
const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Valid reports whether the payment status belongs to the closed set.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

// Enrollment captures a student's submitted application to a training program.
// Email is stored lowercase and referral codes uppercase; at most one record
// exists per (email, program_id) pair.
type Enrollment struct {
	ID                string           `db:"id" json:"id"`
	ProgramID         string           `db:"program_id" json:"programId"`
	FirstName         string           `db:"first_name" json:"firstName"`
	LastName          string           `db:"last_name" json:"lastName"`
	Email             string           `db:"email" json:"email"`
	Phone             string           `db:"phone" json:"phone"`
	Whatsapp          string           `db:"whatsapp" json:"whatsapp,omitempty"`
	Linkedin          string           `db:"linkedin" json:"linkedin,omitempty"`
	City              string           `db:"city" json:"city"`
	State             string           `db:"state" json:"state"`
	Education         string           `db:"education" json:"education"`
	Experience        string           `db:"experience" json:"experience"`
	Motivation        string           `db:"motivation" json:"motivation,omitempty"`
	ReferralCode      string           `db:"referral_code" json:"referralCode,omitempty"`
	ReferralCodeValid bool             `db:"referral_code_valid" json:"referralCodeValid"`
	DiscountApplied   int              `db:"discount_applied" json:"discountApplied"`
	AgreeTerms        bool             `db:"agree_terms" json:"agreeTerms"`
	AgreeMarketing    bool             `db:"agree_marketing" json:"agreeMarketing"`
	Status            EnrollmentStatus `db:"status" json:"status"`
	PaymentStatus     PaymentStatus    `db:"payment_status" json:"paymentStatus"`
	EnrollmentDate    time.Time        `db:"enrollment_date" json:"enrollmentDate"`
	CreatedAt         time.Time        `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updatedAt"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	Email     string
	ProgramID string
	Status    EnrollmentStatus
	Page      int
	Limit     int
}

// EnrollmentPatch carries the mutable subset of an enrollment. Nil fields are
// left untouched.
type EnrollmentPatch struct {
	Status        *EnrollmentStatus `json:"status,omitempty"`
	PaymentStatus *PaymentStatus    `json:"paymentStatus,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EnrollmentPatch) Empty() bool {
	return p.Status == nil && p.PaymentStatus == nil
}
