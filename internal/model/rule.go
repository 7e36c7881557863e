package model

import (
	"fmt"
	"time"
)

// RuleType is the closed set of rule variants.
type RuleType string

// Rule variants.
const (
	RuleReferencePattern   RuleType = "reference_pattern"
	RuleAmountRange        RuleType = "amount_range"
	RulePartnerKeyword     RuleType = "partner_keyword"
	RuleDescriptionKeyword RuleType = "description_keyword"
	RuleCombined           RuleType = "combined"
)

// Rule is a user-configurable matcher that boosts reconciliation confidence
// and can stamp metadata onto a transaction. Which criteria fields are
// meaningful depends on Type; Combined ANDs every configured criterion.
type Rule struct {
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastMatchedAt       *time.Time
	StampPartnerID      *int64
	StampAccountID      *int64
	CompanyID           *int64
	Name                string
	Type                RuleType
	ReferencePattern    string
	DescriptionKeywords string
	PartnerKeywords     string
	Note                string
	JournalIDs          []string
	AmountMin           *float64
	AmountMax           *float64
	ID                  int64
	Sequence            int
	ConfidenceBoost     float64
	MatchCount          int
	Active              bool
}

// AppliesTo reports whether the rule is in scope for a journal and company.
// An empty journal list applies to all journals; a nil company is global.
func (r *Rule) AppliesTo(journalID string, companyID int64) bool {
	if r.CompanyID != nil && *r.CompanyID != companyID {
		return false
	}
	if len(r.JournalIDs) == 0 {
		return true
	}
	for _, id := range r.JournalIDs {
		if id == journalID {
			return true
		}
	}
	return false
}

// Validate ensures the rule carries usable criteria for its variant.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name is required")
	}
	if r.ConfidenceBoost < 0 || r.ConfidenceBoost > 1 {
		return fmt.Errorf("confidence boost must be between 0 and 1")
	}
	if r.AmountMin != nil && r.AmountMax != nil && *r.AmountMin > *r.AmountMax {
		return fmt.Errorf("amount min must be less than or equal to amount max")
	}

	switch r.Type {
	case RuleReferencePattern:
		if r.ReferencePattern == "" {
			return fmt.Errorf("reference pattern is required")
		}
	case RuleAmountRange:
		if r.AmountMin == nil && r.AmountMax == nil {
			return fmt.Errorf("at least one amount bound is required")
		}
	case RulePartnerKeyword:
		if r.PartnerKeywords == "" {
			return fmt.Errorf("partner keywords are required")
		}
	case RuleDescriptionKeyword:
		if r.DescriptionKeywords == "" {
			return fmt.Errorf("description keywords are required")
		}
	case RuleCombined:
		// A combined rule with no criteria never matches; allowed but useless.
	default:
		return fmt.Errorf("unknown rule type: %s", r.Type)
	}

	return nil
}
