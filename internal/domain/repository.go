package domain

import (
	"context"
)

// RecordRepository defines the interface for financial record persistence operations.
// Every method joins the transaction carried by ctx when there is one.
type RecordRepository interface {
	// Create inserts the record and its initial audit entries, assigning ID, CreatedAt and Version
	Create(ctx context.Context, record *FinancialRecord) error

	// GetByID retrieves a record with its audit trail.
	// Returns ErrRecordNotFound if the record does not exist.
	GetByID(ctx context.Context, id int64) (*FinancialRecord, error)

	// Query lists records matching filter, newest transaction date first.
	// Audit trails are not loaded.
	Query(ctx context.Context, filter RecordFilter) ([]*FinancialRecord, error)

	// Count returns the number of records matching filter (Limit is ignored)
	Count(ctx context.Context, filter RecordFilter) (int64, error)

	// Update overwrites every mutable field if record.Version still matches the stored version.
	// Returns ErrRecordNotFound or ErrConflict; on success record.Version is bumped.
	Update(ctx context.Context, record *FinancialRecord) error

	// UpdateFundStatus writes only the fund status. When expectedVersion is non-nil the write is
	// conditional on it. Returns the new version.
	UpdateFundStatus(ctx context.Context, id int64, status FundStatus, expectedVersion *int64) (int64, error)

	// Delete removes the record and its audit trail. Returns ErrRecordNotFound if absent.
	Delete(ctx context.Context, id int64) error

	// AppendAudit adds one entry to a record's audit trail
	AppendAudit(ctx context.Context, entry *AuditEntry) error

	// Categories returns every distinct stored category spelling
	Categories(ctx context.Context) ([]string, error)
}

// CommissionRuleRepository defines the interface for commission rule persistence operations
type CommissionRuleRepository interface {
	Create(ctx context.Context, rule *BankCommission) error
	GetByID(ctx context.Context, id int64) (*BankCommission, error)
	Update(ctx context.Context, rule *BankCommission) error
	Delete(ctx context.Context, id int64) error

	// ListByBank returns every rule for bank (case-insensitive). An empty bank lists all rules.
	ListByBank(ctx context.Context, bank string) ([]*BankCommission, error)
}

// CommissionTipRepository defines the interface for commission tip persistence operations
type CommissionTipRepository interface {
	Create(ctx context.Context, tip *CommissionTip) error
	GetByID(ctx context.Context, id int64) (*CommissionTip, error)
	Update(ctx context.Context, tip *CommissionTip) error
	Delete(ctx context.Context, id int64) error

	// List returns tips in insertion order. A non-empty filter field keeps tips scoped to that
	// value or agnostic of it.
	List(ctx context.Context, filter TipFilter) ([]*CommissionTip, error)

	// ListByCategory returns tips whose category equals category exactly (case-insensitive)
	ListByCategory(ctx context.Context, category string) ([]*CommissionTip, error)
}

// EntityDirectory answers questions about entities owned by other parts of the system
type EntityDirectory interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	ContactExists(ctx context.Context, id int64) (bool, error)
	ProjectExists(ctx context.Context, id int64) (bool, error)

	// UserName, ProjectName and ContactHandle return ok=false when the entity is gone
	UserName(ctx context.Context, id int64) (string, bool, error)
	ProjectName(ctx context.Context, id int64) (string, bool, error)
	ContactHandle(ctx context.Context, id int64) (string, bool, error)
}

// Transactor runs fn inside a single store transaction.
// The transaction is committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
