package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RecordType represents the kind of event a financial record describes
type RecordType string

const (
	RecordTypeIncome     RecordType = "Income"
	RecordTypeExpense    RecordType = "Expense"
	RecordTypeDeposit    RecordType = "Deposit"
	RecordTypeCommission RecordType = "Commission"
	RecordTypeInvestment RecordType = "Investment"
)

// RecordTypes lists every record type in declaration order
var RecordTypes = []RecordType{
	RecordTypeIncome,
	RecordTypeExpense,
	RecordTypeDeposit,
	RecordTypeCommission,
	RecordTypeInvestment,
}

// Valid reports whether t is one of the known record types
func (t RecordType) Valid() bool {
	for _, known := range RecordTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseRecordType converts a persisted tag into a RecordType.
// Matching is case-insensitive so "income" and "Income" resolve to the same type.
func ParseRecordType(s string) (RecordType, error) {
	for _, known := range RecordTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: unknown record type %q", ErrInvalidRecord, s)
}

// FundStatus is the custody state of a record's money.
// Every status can move to every other status; there is no terminal state.
type FundStatus string

const (
	FundStatusWorking   FundStatus = "Working"
	FundStatusReserved  FundStatus = "Reserved"
	FundStatusBlocked   FundStatus = "Blocked"
	FundStatusInTransit FundStatus = "InTransit"
)

// FundStatuses lists every fund status in declaration order
var FundStatuses = []FundStatus{
	FundStatusWorking,
	FundStatusReserved,
	FundStatusBlocked,
	FundStatusInTransit,
}

// Valid reports whether s is one of the four fund statuses
func (s FundStatus) Valid() bool {
	for _, known := range FundStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// String returns the persisted tag of the status
func (s FundStatus) String() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler
func (s FundStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, string(s))
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *FundStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseFundStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseFundStatus converts a persisted tag into a FundStatus.
// The stored tags are the exact constant values; matching ignores case and surrounding space.
func ParseFundStatus(s string) (FundStatus, error) {
	for _, known := range FundStatuses {
		if strings.EqualFold(strings.TrimSpace(s), string(known)) {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CommissionCategory is the sentinel category used for commission charge records
const CommissionCategory = "Комиссии"

// FinancialRecord represents a single ledger entry
type FinancialRecord struct {
	ID               int64
	Type             RecordType // Fixed at creation
	Category         string
	Amount           decimal.Decimal // Signed; no sign constraint is enforced
	Currency         string          // Upper-cased 3-letter code
	Source           string
	Description      string
	TransactionDate  time.Time
	CreatedAt        time.Time
	FundStatus       FundStatus
	UserID           *int64
	ProjectID        *int64
	ContactID        *int64
	Commission       *decimal.Decimal
	CommissionPaidBy *string
	IsConfirmed      bool
	TransactionHash  *string
	Version          int64 // Bumped by every write; guards conditional updates

	// Audit is loaded by the store and ordered oldest first. Callers must not modify it.
	Audit []AuditEntry
}

// Normalize trims free-text fields and upper-cases the currency code
func (r *FinancialRecord) Normalize() {
	r.Category = strings.TrimSpace(r.Category)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Source = strings.TrimSpace(r.Source)
}

// Validate ensures the record adheres to domain rules
func (r *FinancialRecord) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("%w: invalid record type %q", ErrInvalidRecord, string(r.Type))
	}
	if !r.FundStatus.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, string(r.FundStatus))
	}
	if r.Category == "" {
		return fmt.Errorf("%w: record category cannot be empty", ErrInvalidRecord)
	}
	if len(r.Currency) != 3 {
		return fmt.Errorf("%w: invalid currency code %q: must have 3 letters", ErrInvalidRecord, r.Currency)
	}
	return nil
}

// LastTransition returns the most recent fund status audit entry, if any
func (r *FinancialRecord) LastTransition() (AuditEntry, bool) {
	for i := len(r.Audit) - 1; i >= 0; i-- {
		if r.Audit[i].Field == AuditFieldFundStatus {
			return r.Audit[i], true
		}
	}
	return AuditEntry{}, false
}

// CategoryKey is the normalized form used for category filtering and grouping
func CategoryKey(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// RecordFilter narrows a record query. Zero values mean "no restriction".
type RecordFilter struct {
	Type       *RecordType
	Category   string
	From       *time.Time // Inclusive
	To         *time.Time // Inclusive
	ContactID  *int64
	ProjectID  *int64
	UserID     *int64
	Currency   string
	FundStatus *FundStatus
	Limit      int // 0 means unlimited
}
