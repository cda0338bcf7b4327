package domain

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CommissionType selects how a rule turns an amount into a commission
type CommissionType string

const (
	CommissionTypePercent  CommissionType = "percent"
	CommissionTypeFixed    CommissionType = "fixed"
	CommissionTypeCombined CommissionType = "combined"
)

// GeneralTipCategory is the category of tips shown for every transaction
const GeneralTipCategory = "general"

var validate = validator.New(validator.WithRequiredStructEnabled())

// BankCommission represents a commission rule for a bank and category
type BankCommission struct {
	ID             int64
	BankName       string         `validate:"required,max=100"`
	Category       string         `validate:"required,max=100"`
	CommissionType CommissionType `validate:"required,oneof=percent fixed combined"`
	PercentValue   decimal.Decimal
	FixedValue     decimal.Decimal
	FixedCurrency  string           `validate:"omitempty,len=3"`
	MinAmount      *decimal.Decimal // nil = unbounded below
	MaxAmount      *decimal.Decimal // nil = unbounded above
	Description    string
	Advice         string
	Priority       int // Higher wins among overlapping rules
}

// Validate ensures the rule adheres to domain rules.
// Rules already stored with an unknown type are still accepted by the engine (as zero commission);
// this check only guards new writes.
func (c *BankCommission) Validate() error {
	c.BankName = strings.TrimSpace(c.BankName)
	c.Category = strings.TrimSpace(c.Category)
	c.FixedCurrency = strings.ToUpper(strings.TrimSpace(c.FixedCurrency))

	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.PercentValue.LessThan(decimal.Zero) {
		return errors.New("percent value cannot be negative")
	}
	if c.FixedValue.LessThan(decimal.Zero) {
		return errors.New("fixed value cannot be negative")
	}
	if c.MinAmount != nil && c.MaxAmount != nil && c.MinAmount.GreaterThan(*c.MaxAmount) {
		return errors.New("min amount cannot exceed max amount")
	}

	return nil
}

// Matches reports whether the rule applies to bank, category and amount.
// Names compare case-insensitively; both amount bounds are inclusive.
func (c *BankCommission) Matches(bank, category string, amount decimal.Decimal) bool {
	if !strings.EqualFold(strings.TrimSpace(c.BankName), strings.TrimSpace(bank)) {
		return false
	}
	if !strings.EqualFold(strings.TrimSpace(c.Category), strings.TrimSpace(category)) {
		return false
	}
	if c.MinAmount != nil && amount.LessThan(*c.MinAmount) {
		return false
	}
	if c.MaxAmount != nil && amount.GreaterThan(*c.MaxAmount) {
		return false
	}
	return true
}

// CommissionTip is a free-text piece of advice shown next to a commission estimate
type CommissionTip struct {
	ID       int64
	Title    string  `validate:"required,max=200"`
	Content  string  `validate:"required"`
	Category *string // nil = every category
	BankName *string // nil = every bank
	Priority int
}

// Validate ensures the tip adheres to domain rules
func (t *CommissionTip) Validate() error {
	t.Title = strings.TrimSpace(t.Title)
	t.Content = strings.TrimSpace(t.Content)
	return validate.Struct(t)
}

// AppliesTo reports whether the tip is scoped to bank and category (or is agnostic of them)
func (t *CommissionTip) AppliesTo(bank, category string) bool {
	if t.BankName != nil && !strings.EqualFold(strings.TrimSpace(*t.BankName), strings.TrimSpace(bank)) {
		return false
	}
	if t.Category != nil && !strings.EqualFold(strings.TrimSpace(*t.Category), strings.TrimSpace(category)) {
		return false
	}
	return true
}

// TipFilter narrows a tip listing. Empty strings mean "no restriction".
type TipFilter struct {
	BankName string
	Category string
}
