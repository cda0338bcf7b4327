// Package mocks holds testify mocks of the domain interfaces shared by the usecase tests.
package mocks

import (
	"context"

	"github.com/simaogato/fundledger/internal/domain"
	"github.com/stretchr/testify/mock"
)

// RecordRepository is a mock implementation of domain.RecordRepository
type RecordRepository struct {
	mock.Mock
}

func (m *RecordRepository) Create(ctx context.Context, record *domain.FinancialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *RecordRepository) GetByID(ctx context.Context, id int64) (*domain.FinancialRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FinancialRecord), args.Error(1)
}

func (m *RecordRepository) Query(ctx context.Context, filter domain.RecordFilter) ([]*domain.FinancialRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.FinancialRecord), args.Error(1)
}

func (m *RecordRepository) Count(ctx context.Context, filter domain.RecordFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RecordRepository) Update(ctx context.Context, record *domain.FinancialRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *RecordRepository) UpdateFundStatus(ctx context.Context, id int64, status domain.FundStatus, expectedVersion *int64) (int64, error) {
	args := m.Called(ctx, id, status, expectedVersion)
	return args.Get(0).(int64), args.Error(1)
}

func (m *RecordRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RecordRepository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *RecordRepository) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// EntityDirectory is a mock implementation of domain.EntityDirectory
type EntityDirectory struct {
	mock.Mock
}

func (m *EntityDirectory) UserExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *EntityDirectory) ContactExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *EntityDirectory) ProjectExists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *EntityDirectory) UserName(ctx context.Context, id int64) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *EntityDirectory) ProjectName(ctx context.Context, id int64) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *EntityDirectory) ContactHandle(ctx context.Context, id int64) (string, bool, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Bool(1), args.Error(2)
}

// CommissionRuleRepository is a mock implementation of domain.CommissionRuleRepository
type CommissionRuleRepository struct {
	mock.Mock
}

func (m *CommissionRuleRepository) Create(ctx context.Context, rule *domain.BankCommission) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *CommissionRuleRepository) GetByID(ctx context.Context, id int64) (*domain.BankCommission, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BankCommission), args.Error(1)
}

func (m *CommissionRuleRepository) Update(ctx context.Context, rule *domain.BankCommission) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *CommissionRuleRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CommissionRuleRepository) ListByBank(ctx context.Context, bank string) ([]*domain.BankCommission, error) {
	args := m.Called(ctx, bank)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.BankCommission), args.Error(1)
}

// CommissionTipRepository is a mock implementation of domain.CommissionTipRepository
type CommissionTipRepository struct {
	mock.Mock
}

func (m *CommissionTipRepository) Create(ctx context.Context, tip *domain.CommissionTip) error {
	args := m.Called(ctx, tip)
	return args.Error(0)
}

func (m *CommissionTipRepository) GetByID(ctx context.Context, id int64) (*domain.CommissionTip, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionTip), args.Error(1)
}

func (m *CommissionTipRepository) Update(ctx context.Context, tip *domain.CommissionTip) error {
	args := m.Called(ctx, tip)
	return args.Error(0)
}

func (m *CommissionTipRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CommissionTipRepository) List(ctx context.Context, filter domain.TipFilter) ([]*domain.CommissionTip, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CommissionTip), args.Error(1)
}

func (m *CommissionTipRepository) ListByCategory(ctx context.Context, category string) ([]*domain.CommissionTip, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.CommissionTip), args.Error(1)
}

// EventPublisher is a mock implementation of domain.EventPublisher
type EventPublisher struct {
	mock.Mock
}

func (m *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// Transactor runs fn directly and records whether it committed or rolled back
type Transactor struct {
	Commits   int
	Rollbacks int
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		t.Rollbacks++
		return err
	}
	t.Commits++
	return nil
}
