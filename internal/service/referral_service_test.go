package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferralValidator(t *testing.T) {
	v := NewReferralValidator([]string{"STUDENT50", "engiNow10", " campus10 "}, 10)

	tests := []struct {
		name     string
		code     string
		valid    bool
		discount int
	}{
		{name: "exact match", code: "STUDENT50", valid: true, discount: 10},
		{name: "lowercase input", code: "student50", valid: true, discount: 10},
		{name: "surrounding whitespace", code: "  ENGINOW10  ", valid: true, discount: 10},
		{name: "allow-list entry normalised too", code: "CAMPUS10", valid: true, discount: 10},
		{name: "unknown code", code: "BOGUS", valid: false},
		{name: "empty code", code: "", valid: false},
		{name: "whitespace only", code: "   ", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := v.Validate(tt.code)
			assert.Equal(t, tt.valid, result.Valid)
			assert.Equal(t, tt.discount, result.DiscountPercent)
		})
	}
}

func TestReferralValidatorDefaultDiscount(t *testing.T) {
	v := NewReferralValidator([]string{"REFER10"}, 0)
	result := v.Validate("refer10")
	assert.True(t, result.Valid)
	assert.Equal(t, 10, result.DiscountPercent)
}

func TestReferralNormalize(t *testing.T) {
	v := NewReferralValidator(nil, 10)
	assert.Equal(t, "STUDENT50", v.Normalize(" student50 "))
	assert.Equal(t, "", v.Normalize("   "))
}
