package service

import "strings"

// ReferralResult reports whether a code earned a discount.
type ReferralResult struct {
	Valid           bool `json:"valid"`
	DiscountPercent int  `json:"discount_percent"`
}

// ReferralValidator checks submitted codes against the configured promotion
// allow-list. Pure and side-effect free; the allow-list is injected so a
// database-backed list can replace it without touching call sites.
type ReferralValidator struct {
	codes           map[string]struct{}
	discountPercent int
}

// NewReferralValidator builds a validator from the configured code set.
func NewReferralValidator(codes []string, discountPercent int) *ReferralValidator {
	if discountPercent <= 0 {
		discountPercent = 10
	}
	set := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		normalized := normalizeReferralCode(code)
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return &ReferralValidator{codes: set, discountPercent: discountPercent}
}

// Validate normalises the code and checks membership. An empty code is not
// an error: the submission simply earns no discount.
func (v *ReferralValidator) Validate(code string) ReferralResult {
	normalized := normalizeReferralCode(code)
	if normalized == "" {
		return ReferralResult{}
	}
	if _, ok := v.codes[normalized]; !ok {
		return ReferralResult{}
	}
	return ReferralResult{Valid: true, DiscountPercent: v.discountPercent}
}

// Normalize exposes the canonical (trimmed, uppercased) form of a code for
// storage.
func (v *ReferralValidator) Normalize(code string) string {
	return normalizeReferralCode(code)
}

func normalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
