package balance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
	"github.com/simaogato/fundledger/internal/domain/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// memoryRecords answers Query by filtering an in-memory slice the way the store does
type memoryRecords struct {
	mocks.RecordRepository
	records []*domain.FinancialRecord
}

func (m *memoryRecords) Query(_ context.Context, f domain.RecordFilter) ([]*domain.FinancialRecord, error) {
	var out []*domain.FinancialRecord
	for _, r := range m.records {
		if f.Type != nil && r.Type != *f.Type {
			continue
		}
		if f.Category != "" && domain.CategoryKey(r.Category) != domain.CategoryKey(f.Category) {
			continue
		}
		if f.Currency != "" && r.Currency != f.Currency {
			continue
		}
		if f.From != nil && r.TransactionDate.Before(*f.From) {
			continue
		}
		if f.To != nil && r.TransactionDate.After(*f.To) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRecords) Categories(context.Context) ([]string, error) {
	var out []string
	for _, r := range m.records {
		out = append(out, r.Category)
	}
	return out, nil
}

func (m *memoryRecords) add(recordType domain.RecordType, status domain.FundStatus, category, amount, currency string, date time.Time) *domain.FinancialRecord {
	r := &domain.FinancialRecord{
		ID:              int64(len(m.records) + 1),
		Type:            recordType,
		Category:        category,
		Amount:          decimal.RequireFromString(amount),
		Currency:        currency,
		FundStatus:      status,
		TransactionDate: date,
	}
	m.records = append(m.records, r)
	return r
}

func newTestService(records domain.RecordRepository) *Service {
	s := NewService(records)
	s.Now = func() time.Time { return now }
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestGetBalanceByStatus_Scenarios(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	// Scenario A
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "1000", "RUB", now)

	balances, err := s.GetBalanceByStatus(ctx, "RUB")
	require.NoError(t, err)
	assert.True(t, dec("1000").Equal(balances[domain.FundStatusWorking]))
	assert.Len(t, balances, 4)
	assert.True(t, balances[domain.FundStatusBlocked].IsZero())

	// Scenario B
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "Аренда", "400", "RUB", now)

	balances, err = s.GetBalanceByStatus(ctx, "RUB")
	require.NoError(t, err)
	assert.True(t, dec("600").Equal(balances[domain.FundStatusWorking]))

	total, err := s.GetTotalBalance(ctx, "")
	require.NoError(t, err)
	assert.True(t, dec("600").Equal(total))
}

func TestGetBalanceByStatus_IgnoresOtherTypes(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeDeposit, domain.FundStatusReserved, "Вклад", "5000", "RUB", now)
	repo.add(domain.RecordTypeInvestment, domain.FundStatusReserved, "Акции", "700", "RUB", now)
	repo.add(domain.RecordTypeCommission, domain.FundStatusReserved, domain.CommissionCategory, "15", "RUB", now)

	balances, err := s.GetBalanceByStatus(ctx, "RUB")
	require.NoError(t, err)
	for status, balance := range balances {
		assert.True(t, balance.IsZero(), "status %s", status)
	}
}

func TestReconciliation(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "1000.10", "RUB", now)
	repo.add(domain.RecordTypeIncome, domain.FundStatusReserved, "Продажи", "250", "RUB", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusBlocked, "Штраф", "80.05", "RUB", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusInTransit, "Перевод", "300", "RUB", now)
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Sales", "99.99", "USD", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusReserved, "Fees", "-5", "USD", now)
	repo.add(domain.RecordTypeDeposit, domain.FundStatusWorking, "Вклад", "10000", "RUB", now)

	for _, currency := range []string{"", "RUB", "USD", "EUR"} {
		balances, err := s.GetBalanceByStatus(ctx, currency)
		require.NoError(t, err)
		total, err := s.GetTotalBalance(ctx, currency)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, b := range balances {
			sum = sum.Add(b)
		}
		assert.True(t, total.Equal(sum), "currency %q: total %s, sum %s", currency, total, sum)
	}
}

func TestGetFinanceStatistics(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "1000", "RUB", now.AddDate(0, 0, -1))
	repo.add(domain.RecordTypeIncome, domain.FundStatusReserved, "продажи ", "500", "RUB", now.AddDate(0, 0, -2))
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Консалтинг", "2000", "RUB", now.AddDate(0, 0, -20))
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "Аренда", "400", "RUB", now.AddDate(0, 0, -3))
	repo.add(domain.RecordTypeExpense, domain.FundStatusReserved, "Налоги", "100", "RUB", now.AddDate(0, 0, -4))
	// outside the trailing month but inside the trend
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "300", "RUB", now.AddDate(0, -3, 0))

	stats, err := s.GetFinanceStatistics(ctx, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, -1, 0), stats.PeriodStart)
	assert.Equal(t, now, stats.PeriodEnd)
	assert.True(t, dec("3500").Equal(stats.TotalIncome))
	assert.True(t, dec("500").Equal(stats.TotalExpenses))
	assert.True(t, dec("3000").Equal(stats.Balance))
	assert.True(t, dec("2600").Equal(stats.WorkingCapital))
	assert.True(t, dec("400").Equal(stats.ReservedFunds))
	assert.True(t, stats.BalanceByStatus[domain.FundStatusInTransit].IsZero())

	require.Len(t, stats.IncomeByCategory, 2)
	assert.Equal(t, "Консалтинг", stats.IncomeByCategory[0].Category)
	assert.Equal(t, "Продажи", stats.IncomeByCategory[1].Category)
	assert.True(t, dec("1500").Equal(stats.IncomeByCategory[1].Total))
	assert.Equal(t, 2, stats.IncomeByCategory[1].Count)

	require.Len(t, stats.ExpensesByCategory, 2)
	assert.Equal(t, "Аренда", stats.ExpensesByCategory[0].Category)

	// June 2024 only
	assert.True(t, dec("1500").Equal(stats.CurrentMonthIncome))
	assert.True(t, dec("500").Equal(stats.CurrentMonthExpenses))

	require.Len(t, stats.MonthlyIncomeTrend, 6)
	assert.Equal(t, "2024-01", stats.MonthlyIncomeTrend[0].Period)
	assert.Equal(t, "2024-06", stats.MonthlyIncomeTrend[5].Period)
	assert.True(t, dec("300").Equal(stats.MonthlyIncomeTrend[2].Income))
	assert.True(t, dec("2000").Equal(stats.MonthlyIncomeTrend[4].Income))
	assert.True(t, dec("1500").Equal(stats.MonthlyIncomeTrend[5].Income))
}

func TestGetFinanceStatistics_ExplicitWindow(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "100", "RUB", time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC))
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "900", "RUB", now)

	start := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)
	stats, err := s.GetFinanceStatistics(ctx, &start, &end)
	require.NoError(t, err)

	assert.True(t, dec("100").Equal(stats.TotalIncome))
	// current month is independent of the window
	assert.True(t, dec("900").Equal(stats.CurrentMonthIncome))
}

func TestGetCommissionStatistics(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	projectA, projectB := int64(2), int64(1)

	r := repo.add(domain.RecordTypeCommission, domain.FundStatusWorking, domain.CommissionCategory, "30", "RUB", now)
	r.Description = "Комиссия за перевод"
	r.ProjectID = &projectA
	r = repo.add(domain.RecordTypeCommission, domain.FundStatusWorking, domain.CommissionCategory, "10", "RUB", now)
	r.Description = "ATM withdrawal fee"
	r.ProjectID = &projectB
	r = repo.add(domain.RecordTypeCommission, domain.FundStatusWorking, domain.CommissionCategory, "20", "RUB", now)
	r.Description = "Currency exchange"
	r.ProjectID = &projectA
	r = repo.add(domain.RecordTypeCommission, domain.FundStatusWorking, domain.CommissionCategory, "5", "RUB", now)
	r.Description = "monthly service"
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "Аренда", "999", "RUB", now)

	stats, err := s.GetCommissionStatistics(ctx, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Count)
	assert.True(t, dec("65").Equal(stats.Total))
	assert.True(t, dec("16.25").Equal(stats.Average))
	assert.True(t, dec("30").Equal(stats.Largest))
	assert.True(t, dec("30").Equal(stats.ByKind[CommissionKindTransfer]))
	assert.True(t, dec("10").Equal(stats.ByKind[CommissionKindWithdrawal]))
	assert.True(t, dec("20").Equal(stats.ByKind[CommissionKindExchange]))
	assert.True(t, dec("5").Equal(stats.ByKind[CommissionKindOther]))
	assert.True(t, dec("5").Equal(stats.WithoutProject))

	require.Len(t, stats.ByProject, 2)
	assert.Equal(t, int64(1), stats.ByProject[0].ProjectID)
	assert.True(t, dec("50").Equal(stats.ByProject[1].Total))
}

func TestGetCommissionStatistics_Empty(t *testing.T) {
	s := newTestService(&memoryRecords{})

	stats, err := s.GetCommissionStatistics(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
	assert.True(t, stats.Average.IsZero())
	assert.Empty(t, stats.ByProject)
}

func TestClassifyCommission(t *testing.T) {
	tests := []struct {
		description string
		want        CommissionKind
	}{
		{"Bank transfer fee", CommissionKindTransfer},
		{"ПЕРЕВОД на карту", CommissionKindTransfer},
		{"Снятие наличных", CommissionKindWithdrawal},
		{"crypto withdrawal", CommissionKindWithdrawal},
		{"Обмен USDT", CommissionKindExchange},
		{"FX exchange spread", CommissionKindExchange},
		{"Обслуживание счёта", CommissionKindOther},
		{"", CommissionKindOther},
		{"transfer after exchange", CommissionKindTransfer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyCommission(tt.description), tt.description)
	}
}

func TestGetIncomeAndExpensesByCategory(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "B", "10", "RUB", now)
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "A", "10", "RUB", now)
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "C", "30", "RUB", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "A", "7", "RUB", now)

	income, err := s.GetIncomeByCategory(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, income, 3)
	assert.Equal(t, "C", income[0].Category)
	// equal totals keep first-seen order
	assert.Equal(t, "B", income[1].Category)
	assert.Equal(t, "A", income[2].Category)

	expenses, err := s.GetExpensesByCategory(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.True(t, dec("7").Equal(expenses[0].Total))
}

func TestGetAllCategories(t *testing.T) {
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "1", "RUB", now)
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "ПРОДАЖИ", "1", "RUB", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, " Аренда", "1", "RUB", now)

	categories, err := s.GetAllCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Аренда", "Продажи"}, categories)
}

func TestGetDailyTrend(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "10", "RUB", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "Еда", "4", "RUB", now.AddDate(0, 0, -2))
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "99", "RUB", now.AddDate(0, 0, -10))

	points, err := s.GetDailyTrend(ctx, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "2024-06-13", points[0].Period)
	assert.True(t, dec("4").Equal(points[0].Expenses))
	assert.Equal(t, "2024-06-15", points[2].Period)
	assert.True(t, dec("10").Equal(points[2].Income))

	points, err = s.GetDailyTrend(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, points, 30)
}

func TestGetMonthlyTrend_Bounds(t *testing.T) {
	s := newTestService(&memoryRecords{})

	points, err := s.GetMonthlyTrend(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, points, 36)
	assert.Equal(t, "2024-06", points[35].Period)
}

func TestGetAverageTransactionAmount(t *testing.T) {
	ctx := context.Background()
	repo := &memoryRecords{}
	s := newTestService(repo)

	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "Еда", "10", "RUB", now)
	repo.add(domain.RecordTypeExpense, domain.FundStatusWorking, "Еда", "20", "RUB", now)
	repo.add(domain.RecordTypeIncome, domain.FundStatusWorking, "Продажи", "1000", "RUB", now)

	avg, err := s.GetAverageTransactionAmount(ctx, domain.RecordTypeExpense, nil, nil)
	require.NoError(t, err)
	assert.True(t, dec("15").Equal(avg))

	avg, err = s.GetAverageTransactionAmount(ctx, domain.RecordTypeDeposit, nil, nil)
	require.NoError(t, err)
	assert.True(t, avg.IsZero())

	_, err = s.GetAverageTransactionAmount(ctx, "Gift", nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
}

func TestStoreFailure(t *testing.T) {
	ctx := context.Background()
	records := new(mocks.RecordRepository)
	records.On("Query", ctx, mock.Anything).Return(nil, errors.New("connection reset"))
	records.On("Categories", ctx).Return(nil, errors.New("connection reset"))
	s := newTestService(records)

	_, err := s.GetBalanceByStatus(ctx, "RUB")
	assert.ErrorIs(t, err, domain.ErrStoreFailure)

	_, err = s.GetFinanceStatistics(ctx, nil, nil)
	assert.ErrorIs(t, err, domain.ErrStoreFailure)

	_, err = s.GetAllCategories(ctx)
	assert.ErrorIs(t, err, domain.ErrStoreFailure)
}
