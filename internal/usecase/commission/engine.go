package commission

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// SelectRule returns the rule that applies to bank, category and amount, or nil.
// Logic:
//  1. Keep rules whose bank and category match case-insensitively and whose inclusive
//     [MinAmount, MaxAmount] range contains amount
//  2. Sort by Priority (Higher = First), then by ID (Lower = First)
//  3. Take the first one
func SelectRule(rules []*domain.BankCommission, bank, category string, amount decimal.Decimal) *domain.BankCommission {
	matches := make([]*domain.BankCommission, 0, len(rules))
	for _, rule := range rules {
		if rule.Matches(bank, category, amount) {
			matches = append(matches, rule)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority > matches[j].Priority
		}
		return matches[i].ID < matches[j].ID
	})

	return matches[0]
}

// Apply evaluates the rule formula for amount, rounded to 2 decimal places.
// A rule with an unrecognized commission type yields zero and an error wrapping domain.ErrInvalidRule.
func Apply(rule *domain.BankCommission, amount decimal.Decimal) (decimal.Decimal, error) {
	var result decimal.Decimal

	switch rule.CommissionType {
	case domain.CommissionTypePercent:
		result = amount.Mul(rule.PercentValue).Div(hundred)
	case domain.CommissionTypeFixed:
		result = rule.FixedValue
	case domain.CommissionTypeCombined:
		result = amount.Mul(rule.PercentValue).Div(hundred).Add(rule.FixedValue)
	default:
		return decimal.Zero, fmt.Errorf("%w: rule %d has commission type %q", domain.ErrInvalidRule, rule.ID, string(rule.CommissionType))
	}

	return result.Round(2), nil
}

// Calculate picks the applicable rule and evaluates it. No matching rule yields zero and a nil rule.
func Calculate(rules []*domain.BankCommission, bank, category string, amount decimal.Decimal) (decimal.Decimal, *domain.BankCommission, error) {
	rule := SelectRule(rules, bank, category, amount)
	if rule == nil {
		return decimal.Zero, nil, nil
	}

	result, err := Apply(rule, amount)
	return result, rule, err
}
