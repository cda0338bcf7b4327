package balance

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
)

const (
	trendMonths      = 6
	defaultDailyDays = 30
	maxTrendMonths   = 36
	maxTrendDays     = 366
	monthKeyLayout   = "2006-01"
	dayKeyLayout     = "2006-01-02"
)

// CommissionKind is the sub-type of a commission derived from its description
type CommissionKind string

const (
	CommissionKindTransfer   CommissionKind = "transfer"
	CommissionKindWithdrawal CommissionKind = "withdrawal"
	CommissionKindExchange   CommissionKind = "exchange"
	CommissionKindOther      CommissionKind = "other"
)

// commissionKeywords is matched in order against the lower-cased description
var commissionKeywords = []struct {
	kind  CommissionKind
	stems []string
}{
	{CommissionKindTransfer, []string{"transfer", "перевод"}},
	{CommissionKindWithdrawal, []string{"withdrawal", "withdraw", "снятие", "вывод"}},
	{CommissionKindExchange, []string{"exchange", "обмен", "конвертац"}},
}

// CategoryTotal is the sum and count of records sharing a category
type CategoryTotal struct {
	Category string
	Total    decimal.Decimal
	Count    int
}

// TrendPoint holds income and expenses of one period
type TrendPoint struct {
	Period   string // "2006-01" for months, "2006-01-02" for days
	Income   decimal.Decimal
	Expenses decimal.Decimal
}

// FinanceStatistics summarizes the ledger over a date window
type FinanceStatistics struct {
	PeriodStart          time.Time
	PeriodEnd            time.Time
	TotalIncome          decimal.Decimal
	TotalExpenses        decimal.Decimal
	Balance              decimal.Decimal
	WorkingCapital       decimal.Decimal
	ReservedFunds        decimal.Decimal
	BalanceByStatus      map[domain.FundStatus]decimal.Decimal
	IncomeByCategory     []CategoryTotal
	ExpensesByCategory   []CategoryTotal
	CurrentMonthIncome   decimal.Decimal
	CurrentMonthExpenses decimal.Decimal
	MonthlyIncomeTrend   []TrendPoint // oldest first, current month last
}

// ProjectTotal is the commission total charged to one project
type ProjectTotal struct {
	ProjectID int64
	Total     decimal.Decimal
}

// CommissionStatistics summarizes commission records over a date window
type CommissionStatistics struct {
	Count          int
	Total          decimal.Decimal
	Average        decimal.Decimal
	Largest        decimal.Decimal
	ByKind         map[CommissionKind]decimal.Decimal
	ByProject      []ProjectTotal // ordered by project id
	WithoutProject decimal.Decimal
}

// Service computes balances and statistics from the ledger.
// Reads run without a transaction; results are best-effort snapshots.
type Service struct {
	Records domain.RecordRepository
	Now     func() time.Time
}

// NewService creates a new balance Service instance
func NewService(records domain.RecordRepository) *Service {
	return &Service{
		Records: records,
		Now:     time.Now,
	}
}

// GetBalanceByStatus returns income minus expense within each fund status.
// Deposit, Commission and Investment records do not take part. Every status is present in the
// result, with zero when it holds no records. An empty currency includes every currency.
func (s *Service) GetBalanceByStatus(ctx context.Context, currency string) (map[domain.FundStatus]decimal.Decimal, error) {
	records, err := s.query(ctx, domain.RecordFilter{Currency: currency})
	if err != nil {
		return nil, err
	}
	return balanceByStatus(records), nil
}

// GetTotalBalance returns income minus expense across every fund status
func (s *Service) GetTotalBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	records, err := s.query(ctx, domain.RecordFilter{Currency: currency})
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(signedAmount(r))
	}
	return total, nil
}

// GetFinanceStatistics computes the finance summary for [start, end].
// A nil start defaults to one month before now and a nil end to now. The current-month figures
// and the monthly trend are always computed against now, independent of the window.
func (s *Service) GetFinanceStatistics(ctx context.Context, start, end *time.Time) (*FinanceStatistics, error) {
	now := s.Now().UTC()
	from, to := s.window(start, end)

	records, err := s.query(ctx, domain.RecordFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	stats := &FinanceStatistics{
		PeriodStart:     from,
		PeriodEnd:       to,
		TotalIncome:     decimal.Zero,
		TotalExpenses:   decimal.Zero,
		BalanceByStatus: balanceByStatus(records),
	}

	for _, r := range records {
		switch r.Type {
		case domain.RecordTypeIncome:
			stats.TotalIncome = stats.TotalIncome.Add(r.Amount)
		case domain.RecordTypeExpense:
			stats.TotalExpenses = stats.TotalExpenses.Add(r.Amount)
		}
	}
	stats.Balance = stats.TotalIncome.Sub(stats.TotalExpenses)
	stats.WorkingCapital = stats.BalanceByStatus[domain.FundStatusWorking]
	stats.ReservedFunds = stats.BalanceByStatus[domain.FundStatusReserved]
	stats.IncomeByCategory = groupByCategory(records, domain.RecordTypeIncome)
	stats.ExpensesByCategory = groupByCategory(records, domain.RecordTypeExpense)

	monthStart := startOfMonth(now)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Nanosecond)
	current, err := s.query(ctx, domain.RecordFilter{From: &monthStart, To: &monthEnd})
	if err != nil {
		return nil, err
	}
	stats.CurrentMonthIncome = sumType(current, domain.RecordTypeIncome)
	stats.CurrentMonthExpenses = sumType(current, domain.RecordTypeExpense)

	if stats.MonthlyIncomeTrend, err = s.GetMonthlyTrend(ctx, trendMonths); err != nil {
		return nil, err
	}

	return stats, nil
}

// GetCommissionStatistics summarizes records filed under the commission category
func (s *Service) GetCommissionStatistics(ctx context.Context, start, end *time.Time) (*CommissionStatistics, error) {
	from, to := s.window(start, end)

	records, err := s.query(ctx, domain.RecordFilter{Category: domain.CommissionCategory, From: &from, To: &to})
	if err != nil {
		return nil, err
	}

	stats := &CommissionStatistics{
		Total:          decimal.Zero,
		Average:        decimal.Zero,
		Largest:        decimal.Zero,
		WithoutProject: decimal.Zero,
		ByKind: map[CommissionKind]decimal.Decimal{
			CommissionKindTransfer:   decimal.Zero,
			CommissionKindWithdrawal: decimal.Zero,
			CommissionKindExchange:   decimal.Zero,
			CommissionKindOther:      decimal.Zero,
		},
	}

	byProject := make(map[int64]decimal.Decimal)
	for i, r := range records {
		stats.Count++
		stats.Total = stats.Total.Add(r.Amount)
		if i == 0 || r.Amount.GreaterThan(stats.Largest) {
			stats.Largest = r.Amount
		}

		kind := ClassifyCommission(r.Description)
		stats.ByKind[kind] = stats.ByKind[kind].Add(r.Amount)

		if r.ProjectID == nil {
			stats.WithoutProject = stats.WithoutProject.Add(r.Amount)
			continue
		}
		byProject[*r.ProjectID] = byProject[*r.ProjectID].Add(r.Amount)
	}

	if stats.Count > 0 {
		stats.Average = stats.Total.Div(decimal.NewFromInt(int64(stats.Count)))
	}

	stats.ByProject = make([]ProjectTotal, 0, len(byProject))
	for id, total := range byProject {
		stats.ByProject = append(stats.ByProject, ProjectTotal{ProjectID: id, Total: total})
	}
	sort.Slice(stats.ByProject, func(i, j int) bool {
		return stats.ByProject[i].ProjectID < stats.ByProject[j].ProjectID
	})

	return stats, nil
}

// ClassifyCommission derives the commission kind from a free-text description
func ClassifyCommission(description string) CommissionKind {
	text := strings.ToLower(description)
	for _, k := range commissionKeywords {
		for _, stem := range k.stems {
			if strings.Contains(text, stem) {
				return k.kind
			}
		}
	}
	return CommissionKindOther
}

// GetIncomeByCategory groups income in [start, end] by category, largest total first
func (s *Service) GetIncomeByCategory(ctx context.Context, start, end *time.Time) ([]CategoryTotal, error) {
	return s.byCategory(ctx, domain.RecordTypeIncome, start, end)
}

// GetExpensesByCategory groups expenses in [start, end] by category, largest total first
func (s *Service) GetExpensesByCategory(ctx context.Context, start, end *time.Time) ([]CategoryTotal, error) {
	return s.byCategory(ctx, domain.RecordTypeExpense, start, end)
}

// GetAllCategories returns every category in use, one spelling per case-normalized name, sorted
func (s *Service) GetAllCategories(ctx context.Context) ([]string, error) {
	stored, err := s.Records.Categories(ctx)
	if err != nil {
		return nil, domain.NewStoreError("categories", 0, err)
	}

	seen := make(map[string]bool, len(stored))
	categories := make([]string, 0, len(stored))
	for _, c := range stored {
		key := domain.CategoryKey(c)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		categories = append(categories, strings.TrimSpace(c))
	}
	sort.Strings(categories)
	return categories, nil
}

// GetMonthlyTrend returns income and expenses of the last months calendar months, oldest first.
// The current month is the last point. months defaults to 6.
func (s *Service) GetMonthlyTrend(ctx context.Context, months int) ([]TrendPoint, error) {
	if months <= 0 {
		months = trendMonths
	}
	if months > maxTrendMonths {
		months = maxTrendMonths
	}

	current := startOfMonth(s.Now().UTC())
	from := current.AddDate(0, -(months - 1), 0)
	to := current.AddDate(0, 1, 0).Add(-time.Nanosecond)

	points := make([]TrendPoint, months)
	index := make(map[string]int, months)
	for i := range points {
		key := from.AddDate(0, i, 0).Format(monthKeyLayout)
		points[i] = TrendPoint{Period: key, Income: decimal.Zero, Expenses: decimal.Zero}
		index[key] = i
	}

	records, err := s.query(ctx, domain.RecordFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	accumulate(points, index, records, monthKeyLayout)

	return points, nil
}

// GetDailyTrend returns income and expenses of the last days days, oldest first, today last.
// days defaults to 30.
func (s *Service) GetDailyTrend(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = defaultDailyDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	now := s.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -(days - 1))
	to := today.AddDate(0, 0, 1).Add(-time.Nanosecond)

	points := make([]TrendPoint, days)
	index := make(map[string]int, days)
	for i := range points {
		key := from.AddDate(0, 0, i).Format(dayKeyLayout)
		points[i] = TrendPoint{Period: key, Income: decimal.Zero, Expenses: decimal.Zero}
		index[key] = i
	}

	records, err := s.query(ctx, domain.RecordFilter{From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	accumulate(points, index, records, dayKeyLayout)

	return points, nil
}

// GetAverageTransactionAmount returns the mean amount of records of one type in [start, end].
// Zero when there are no such records.
func (s *Service) GetAverageTransactionAmount(ctx context.Context, recordType domain.RecordType, start, end *time.Time) (decimal.Decimal, error) {
	if !recordType.Valid() {
		return decimal.Zero, fmt.Errorf("%w: invalid record type %q", domain.ErrInvalidRecord, string(recordType))
	}

	from, to := s.window(start, end)
	records, err := s.query(ctx, domain.RecordFilter{Type: &recordType, From: &from, To: &to})
	if err != nil {
		return decimal.Zero, err
	}
	if len(records) == 0 {
		return decimal.Zero, nil
	}

	total := decimal.Zero
	for _, r := range records {
		total = total.Add(r.Amount)
	}
	return total.Div(decimal.NewFromInt(int64(len(records)))), nil
}

func (s *Service) byCategory(ctx context.Context, recordType domain.RecordType, start, end *time.Time) ([]CategoryTotal, error) {
	from, to := s.window(start, end)
	records, err := s.query(ctx, domain.RecordFilter{Type: &recordType, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	return groupByCategory(records, recordType), nil
}

// window resolves optional bounds to the trailing month ending now
func (s *Service) window(start, end *time.Time) (time.Time, time.Time) {
	to := s.Now().UTC()
	if end != nil {
		to = end.UTC()
	}
	from := to.AddDate(0, -1, 0)
	if start != nil {
		from = start.UTC()
	}
	return from, to
}

func (s *Service) query(ctx context.Context, filter domain.RecordFilter) ([]*domain.FinancialRecord, error) {
	records, err := s.Records.Query(ctx, filter)
	if err != nil {
		return nil, domain.NewStoreError("aggregate", 0, err)
	}
	return records, nil
}

func balanceByStatus(records []*domain.FinancialRecord) map[domain.FundStatus]decimal.Decimal {
	balances := make(map[domain.FundStatus]decimal.Decimal, len(domain.FundStatuses))
	for _, status := range domain.FundStatuses {
		balances[status] = decimal.Zero
	}
	for _, r := range records {
		if _, ok := balances[r.FundStatus]; !ok {
			continue
		}
		balances[r.FundStatus] = balances[r.FundStatus].Add(signedAmount(r))
	}
	return balances
}

// signedAmount is +amount for income, -amount for expense and zero for every other type
func signedAmount(r *domain.FinancialRecord) decimal.Decimal {
	switch r.Type {
	case domain.RecordTypeIncome:
		return r.Amount
	case domain.RecordTypeExpense:
		return r.Amount.Neg()
	default:
		return decimal.Zero
	}
}

func sumType(records []*domain.FinancialRecord, recordType domain.RecordType) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if r.Type == recordType {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// groupByCategory groups case-insensitively and labels each group with its first-seen spelling
func groupByCategory(records []*domain.FinancialRecord, recordType domain.RecordType) []CategoryTotal {
	var groups []CategoryTotal
	index := make(map[string]int)

	for _, r := range records {
		if r.Type != recordType {
			continue
		}
		key := domain.CategoryKey(r.Category)
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, CategoryTotal{Category: strings.TrimSpace(r.Category), Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(r.Amount)
		groups[i].Count++
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Total.GreaterThan(groups[j].Total)
	})
	if groups == nil {
		groups = []CategoryTotal{}
	}
	return groups
}

func accumulate(points []TrendPoint, index map[string]int, records []*domain.FinancialRecord, layout string) {
	for _, r := range records {
		i, ok := index[r.TransactionDate.UTC().Format(layout)]
		if !ok {
			continue
		}
		switch r.Type {
		case domain.RecordTypeIncome:
			points[i].Income = points[i].Income.Add(r.Amount)
		case domain.RecordTypeExpense:
			points[i].Expenses = points[i].Expenses.Add(r.Amount)
		}
	}
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
