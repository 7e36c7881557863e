// Package rules evaluates user-configurable reconciliation rules against
// imported transactions. Rules never produce matches on their own; they
// boost the confidence the matching strategies established and can stamp
// partner/account metadata onto a transaction.
package rules

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rnicolet/bankmatch/internal/common"
	"github.com/rnicolet/bankmatch/internal/model"
	"github.com/rnicolet/bankmatch/internal/service"
)

// Engine applies active rules to transactions. Evaluation itself is
// side-effect-free; usage counters are recorded through the repository in a
// separate step so re-evaluation stays idempotent.
type Engine struct {
	repo service.RuleRepository
}

// NewEngine creates a rule engine backed by the given repository.
func NewEngine(repo service.RuleRepository) *Engine {
	return &Engine{repo: repo}
}

// Matches reports whether one rule matches one transaction. An invalid
// reference regex makes the rule non-matching; it is logged, never raised.
func Matches(rule *model.Rule, txn *model.Transaction) bool {
	switch rule.Type {
	case model.RuleReferencePattern:
		return matchReferencePattern(rule, txn)
	case model.RuleAmountRange:
		return matchAmountRange(rule, txn)
	case model.RulePartnerKeyword:
		return matchKeywords(rule.PartnerKeywords, txn.PartnerName)
	case model.RuleDescriptionKeyword:
		return matchKeywords(rule.DescriptionKeywords, txn.Description)
	case model.RuleCombined:
		return matchCombined(rule, txn)
	default:
		return false
	}
}

func matchReferencePattern(rule *model.Rule, txn *model.Transaction) bool {
	ok, err := common.SearchRegexFold(rule.ReferencePattern, txn.Reference)
	if err != nil {
		common.LogWarn("rule has invalid reference pattern, treated as non-matching", common.Fields{
			"rule":    rule.ID,
			"pattern": rule.ReferencePattern,
			"error":   err.Error(),
		})
		return false
	}
	return ok
}

func matchAmountRange(rule *model.Rule, txn *model.Transaction) bool {
	amount, _ := txn.AbsAmount().Float64()
	if rule.AmountMin != nil && amount < *rule.AmountMin {
		return false
	}
	if rule.AmountMax != nil && amount > *rule.AmountMax {
		return false
	}
	return rule.AmountMin != nil || rule.AmountMax != nil
}

// matchKeywords tests a comma-separated keyword list as case-insensitive
// substrings of the target. Any keyword matching is enough.
func matchKeywords(keywords, target string) bool {
	if keywords == "" || target == "" {
		return false
	}
	lowered := strings.ToLower(target)
	for _, kw := range strings.Split(keywords, ",") {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// matchCombined ANDs every configured sub-criterion. A combined rule with no
// criteria configured never matches.
func matchCombined(rule *model.Rule, txn *model.Transaction) bool {
	configured := false

	if rule.ReferencePattern != "" {
		configured = true
		if !matchReferencePattern(rule, txn) {
			return false
		}
	}
	if rule.AmountMin != nil || rule.AmountMax != nil {
		configured = true
		if !matchAmountRange(rule, txn) {
			return false
		}
	}
	if rule.PartnerKeywords != "" {
		configured = true
		if !matchKeywords(rule.PartnerKeywords, txn.PartnerName) {
			return false
		}
	}
	if rule.DescriptionKeywords != "" {
		configured = true
		if !matchKeywords(rule.DescriptionKeywords, txn.Description) {
			return false
		}
	}

	return configured
}

// Application is the outcome of applying the rule set to one transaction.
type Application struct {
	// MatchedRuleIDs lists which rules matched, in evaluation order.
	MatchedRuleIDs []int64
	// Boost is the summed confidence boost of all matching rules, before
	// clamping the transaction's aggregate confidence.
	Boost float64
	// StampPartnerID and StampAccountID carry metadata from the first
	// matching rule that configures each.
	StampPartnerID *int64
	StampAccountID *int64
}

// Apply evaluates all active rules in scope for the transaction's journal
// and company, ordered by sequence then id, and returns the summed boost and
// any stamped metadata. The transaction is not modified.
func (e *Engine) Apply(ctx context.Context, txn *model.Transaction, journalID string, companyID int64) (Application, error) {
	var app Application

	ruleSet, err := e.repo.GetActiveRules(ctx, companyID)
	if err != nil {
		return app, err
	}

	sort.SliceStable(ruleSet, func(i, j int) bool {
		if ruleSet[i].Sequence != ruleSet[j].Sequence {
			return ruleSet[i].Sequence < ruleSet[j].Sequence
		}
		return ruleSet[i].ID < ruleSet[j].ID
	})

	for i := range ruleSet {
		rule := &ruleSet[i]
		if !rule.AppliesTo(journalID, companyID) {
			continue
		}
		if !Matches(rule, txn) {
			continue
		}

		app.MatchedRuleIDs = append(app.MatchedRuleIDs, rule.ID)
		app.Boost += rule.ConfidenceBoost
		if app.StampPartnerID == nil && rule.StampPartnerID != nil {
			app.StampPartnerID = rule.StampPartnerID
		}
		if app.StampAccountID == nil && rule.StampAccountID != nil {
			app.StampAccountID = rule.StampAccountID
		}
	}

	return app, nil
}

// BoostConfidence adds a boost to an existing confidence, clamped to 1.0.
func BoostConfidence(confidence, boost float64) float64 {
	boosted := confidence + boost
	if boosted > 1.0 {
		return 1.0
	}
	return boosted
}

// RecordMatches persists usage counters for every rule that matched. Kept
// separate from Apply so evaluation can be re-run without side effects.
func (e *Engine) RecordMatches(ctx context.Context, ruleIDs []int64, at time.Time) error {
	for _, id := range ruleIDs {
		if err := e.repo.RecordMatch(ctx, id, at); err != nil {
			return err
		}
	}
	return nil
}
