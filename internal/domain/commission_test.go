package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func strPtr(s string) *string {
	return &s
}

func TestBankCommission_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    BankCommission
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid percent rule",
			rule: BankCommission{
				BankName:       "Тинькофф",
				Category:       "Перевод",
				CommissionType: CommissionTypePercent,
				PercentValue:   decimal.RequireFromString("1.5"),
				MinAmount:      decPtr("0"),
				MaxAmount:      decPtr("10000"),
				Priority:       1,
			},
			wantErr: false,
		},
		{
			name: "valid fixed rule with currency",
			rule: BankCommission{
				BankName:       "Сбер",
				Category:       "Снятие",
				CommissionType: CommissionTypeFixed,
				FixedValue:     decimal.NewFromInt(50),
				FixedCurrency:  "rub",
			},
			wantErr: false,
		},
		{
			name: "unknown commission type",
			rule: BankCommission{
				BankName:       "Сбер",
				Category:       "Снятие",
				CommissionType: "tiered",
			},
			wantErr: true,
			errMsg:  "CommissionType",
		},
		{
			name: "missing bank",
			rule: BankCommission{
				Category:       "Снятие",
				CommissionType: CommissionTypeFixed,
			},
			wantErr: true,
			errMsg:  "BankName",
		},
		{
			name: "negative percent",
			rule: BankCommission{
				BankName:       "Сбер",
				Category:       "Снятие",
				CommissionType: CommissionTypePercent,
				PercentValue:   decimal.NewFromInt(-1),
			},
			wantErr: true,
			errMsg:  "percent value cannot be negative",
		},
		{
			name: "inverted bounds",
			rule: BankCommission{
				BankName:       "Сбер",
				Category:       "Снятие",
				CommissionType: CommissionTypeFixed,
				MinAmount:      decPtr("100"),
				MaxAmount:      decPtr("10"),
			},
			wantErr: true,
			errMsg:  "min amount cannot exceed max amount",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBankCommission_Validate_NormalizesCurrency(t *testing.T) {
	rule := BankCommission{
		BankName:       " Сбер ",
		Category:       "Снятие",
		CommissionType: CommissionTypeFixed,
		FixedCurrency:  "usd",
	}

	assert.NoError(t, rule.Validate())
	assert.Equal(t, "Сбер", rule.BankName)
	assert.Equal(t, "USD", rule.FixedCurrency)
}

func TestBankCommission_Matches(t *testing.T) {
	rule := BankCommission{
		BankName:  "Тинькофф",
		Category:  "Перевод",
		MinAmount: decPtr("100"),
		MaxAmount: decPtr("1000"),
	}

	assert.True(t, rule.Matches("тинькофф", "ПЕРЕВОД", decimal.NewFromInt(500)))
	assert.True(t, rule.Matches("Тинькофф", "Перевод", decimal.NewFromInt(100)), "min bound is inclusive")
	assert.True(t, rule.Matches("Тинькофф", "Перевод", decimal.NewFromInt(1000)), "max bound is inclusive")
	assert.False(t, rule.Matches("Тинькофф", "Перевод", decimal.RequireFromString("1000.01")))
	assert.False(t, rule.Matches("Тинькофф", "Перевод", decimal.NewFromInt(99)))
	assert.False(t, rule.Matches("Сбер", "Перевод", decimal.NewFromInt(500)))

	unbounded := BankCommission{BankName: "Сбер", Category: "Снятие"}
	assert.True(t, unbounded.Matches("Сбер", "Снятие", decimal.NewFromInt(-1_000_000)))
}

func TestCommissionTip_AppliesTo(t *testing.T) {
	agnostic := CommissionTip{Title: "Any", Content: "x"}
	bankOnly := CommissionTip{Title: "Bank", Content: "x", BankName: strPtr("Тинькофф")}
	scoped := CommissionTip{Title: "Scoped", Content: "x", BankName: strPtr("Тинькофф"), Category: strPtr("Перевод")}

	assert.True(t, agnostic.AppliesTo("Сбер", "Снятие"))
	assert.True(t, bankOnly.AppliesTo("тинькофф", "Снятие"))
	assert.False(t, bankOnly.AppliesTo("Сбер", "Снятие"))
	assert.True(t, scoped.AppliesTo("Тинькофф", "перевод"))
	assert.False(t, scoped.AppliesTo("Тинькофф", "Снятие"))
}

func TestCommissionTip_Validate(t *testing.T) {
	tip := CommissionTip{Title: "  Compare banks ", Content: "Fees differ."}
	assert.NoError(t, tip.Validate())
	assert.Equal(t, "Compare banks", tip.Title)

	empty := CommissionTip{Title: "No content"}
	assert.Error(t, empty.Validate())
}
