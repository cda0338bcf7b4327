package commission

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func scenarioCRules() []*domain.BankCommission {
	return []*domain.BankCommission{
		{
			ID:             1,
			BankName:       "Тинькофф",
			Category:       "Перевод",
			CommissionType: domain.CommissionTypePercent,
			PercentValue:   dec("1.5"),
			MinAmount:      decPtr("0"),
			MaxAmount:      decPtr("10000"),
			Priority:       1,
		},
		{
			ID:             2,
			BankName:       "Тинькофф",
			Category:       "Перевод",
			CommissionType: domain.CommissionTypeFixed,
			FixedValue:     dec("50"),
			Priority:       2,
		},
	}
}

func TestCalculate_ScenarioC_PriorityWins(t *testing.T) {
	result, rule, err := Calculate(scenarioCRules(), "Тинькофф", "Перевод", dec("500"))

	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, int64(2), rule.ID)
	assert.True(t, dec("50").Equal(result))
}

func TestCalculate_ScenarioD_NoMatch(t *testing.T) {
	result, rule, err := Calculate(scenarioCRules(), "Сбербанк", "Перевод", dec("500"))

	require.NoError(t, err)
	assert.Nil(t, rule)
	assert.True(t, result.IsZero())

	result, _, err = Calculate(nil, "Тинькофф", "Перевод", dec("500"))
	require.NoError(t, err)
	assert.True(t, result.IsZero())
}

func TestCalculate_CaseInsensitiveNames(t *testing.T) {
	result, rule, err := Calculate(scenarioCRules(), " тинькофф", "ПЕРЕВОД ", dec("500"))

	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.True(t, dec("50").Equal(result))
}

func TestCalculate_InclusiveBounds(t *testing.T) {
	rules := []*domain.BankCommission{{
		ID: 1, BankName: "B", Category: "C", CommissionType: domain.CommissionTypePercent,
		PercentValue: dec("1"), MinAmount: decPtr("100"), MaxAmount: decPtr("200"),
	}}

	tests := []struct {
		amount  string
		matched bool
	}{
		{"99.99", false},
		{"100", true},
		{"150", true},
		{"200", true},
		{"200.01", false},
	}

	for _, tt := range tests {
		_, rule, err := Calculate(rules, "B", "C", dec(tt.amount))
		require.NoError(t, err)
		assert.Equal(t, tt.matched, rule != nil, "amount %s", tt.amount)
	}
}

// Linearity holds for the unrounded percent; results are rounded to cents afterwards.
func TestCalculate_PercentIsLinearBeforeRounding(t *testing.T) {
	rules := []*domain.BankCommission{{
		ID: 1, BankName: "B", Category: "C", CommissionType: domain.CommissionTypePercent, PercentValue: dec("2"),
	}}

	base, _, err := Calculate(rules, "B", "C", dec("1000"))
	require.NoError(t, err)
	assert.True(t, dec("20").Equal(base))

	for _, k := range []int64{2, 3, 10} {
		scaled, _, err := Calculate(rules, "B", "C", dec("1000").Mul(decimal.NewFromInt(k)))
		require.NoError(t, err)
		assert.True(t, base.Mul(decimal.NewFromInt(k)).Equal(scaled), "k=%d", k)
	}

	fractional := []*domain.BankCommission{{
		ID: 2, BankName: "B", Category: "C", CommissionType: domain.CommissionTypePercent, PercentValue: dec("1.5"),
	}}
	one, _, err := Calculate(fractional, "B", "C", dec("1"))
	require.NoError(t, err)
	two, _, err := Calculate(fractional, "B", "C", dec("2"))
	require.NoError(t, err)
	assert.Equal(t, "0.02", one.StringFixed(2))
	assert.Equal(t, "0.03", two.StringFixed(2))
}

func TestCalculate_FixedIsConstant(t *testing.T) {
	rules := []*domain.BankCommission{{
		ID: 1, BankName: "B", Category: "C", CommissionType: domain.CommissionTypeFixed,
		FixedValue: dec("35"), MinAmount: decPtr("10"), MaxAmount: decPtr("100000"),
	}}

	for _, amount := range []string{"10", "999", "100000"} {
		result, _, err := Calculate(rules, "B", "C", dec(amount))
		require.NoError(t, err)
		assert.True(t, dec("35").Equal(result), "amount %s", amount)
	}
}

func TestCalculate_Combined(t *testing.T) {
	rules := []*domain.BankCommission{{
		ID: 1, BankName: "B", Category: "C", CommissionType: domain.CommissionTypeCombined,
		PercentValue: dec("1.5"), FixedValue: dec("30"),
	}}

	result, _, err := Calculate(rules, "B", "C", dec("2000"))
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(result))
}

func TestCalculate_RoundsToCents(t *testing.T) {
	rules := []*domain.BankCommission{{
		ID: 1, BankName: "B", Category: "C", CommissionType: domain.CommissionTypePercent, PercentValue: dec("1.5"),
	}}

	result, _, err := Calculate(rules, "B", "C", dec("333.33"))
	require.NoError(t, err)
	// 4.99995 rounds half away from zero
	assert.Equal(t, "5", result.String())

	result, _, err = Calculate(rules, "B", "C", dec("123.45"))
	require.NoError(t, err)
	assert.True(t, dec("1.85").Equal(result))
}

func TestSelectRule_TieBreakLowestID(t *testing.T) {
	rules := []*domain.BankCommission{
		{ID: 9, BankName: "B", Category: "C", CommissionType: domain.CommissionTypeFixed, FixedValue: dec("9"), Priority: 5},
		{ID: 3, BankName: "B", Category: "C", CommissionType: domain.CommissionTypeFixed, FixedValue: dec("3"), Priority: 5},
		{ID: 1, BankName: "B", Category: "C", CommissionType: domain.CommissionTypeFixed, FixedValue: dec("1"), Priority: 4},
	}

	rule := SelectRule(rules, "B", "C", dec("10"))
	require.NotNil(t, rule)
	assert.Equal(t, int64(3), rule.ID)

	// input order is left untouched
	assert.Equal(t, int64(9), rules[0].ID)
}

func TestApply_UnknownType(t *testing.T) {
	rule := &domain.BankCommission{ID: 4, CommissionType: "tiered", PercentValue: dec("10"), FixedValue: dec("10")}

	result, err := Apply(rule, dec("1000"))
	assert.ErrorIs(t, err, domain.ErrInvalidRule)
	assert.True(t, result.IsZero())
}
