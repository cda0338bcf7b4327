package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
)

const ruleColumns = `id, bank_name, category, commission_type, percent_value, fixed_value, fixed_currency,
	min_amount, max_amount, description, advice, priority`

// commissionRuleRepository implements domain.CommissionRuleRepository
type commissionRuleRepository struct {
	db *DB
}

// NewCommissionRuleRepository creates a new commission rule repository
func NewCommissionRuleRepository(db *DB) domain.CommissionRuleRepository {
	return &commissionRuleRepository{db: db}
}

// Create creates a new commission rule
func (r *commissionRuleRepository) Create(ctx context.Context, rule *domain.BankCommission) error {
	query := `
		INSERT INTO bank_commissions (bank_name, bank_key, category, commission_type, percent_value,
			fixed_value, fixed_currency, min_amount, max_amount, description, advice, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.queryRow(ctx, query,
		rule.BankName,
		nameKey(rule.BankName),
		rule.Category,
		string(rule.CommissionType),
		rule.PercentValue.String(),
		rule.FixedValue.String(),
		rule.FixedCurrency,
		nullableDecimal(rule.MinAmount),
		nullableDecimal(rule.MaxAmount),
		rule.Description,
		rule.Advice,
		rule.Priority,
	).Scan(&rule.ID)
	if err != nil {
		return fmt.Errorf("failed to create commission rule: %w", err)
	}

	return nil
}

// GetByID retrieves a commission rule by its ID
func (r *commissionRuleRepository) GetByID(ctx context.Context, id int64) (*domain.BankCommission, error) {
	rule, err := scanRule(r.db.queryRow(ctx, `SELECT `+ruleColumns+` FROM bank_commissions WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("commission rule %d: %w", id, domain.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("failed to get commission rule by ID: %w", err)
	}
	return rule, nil
}

// Update overwrites a commission rule
func (r *commissionRuleRepository) Update(ctx context.Context, rule *domain.BankCommission) error {
	query := `
		UPDATE bank_commissions
		SET bank_name = ?, bank_key = ?, category = ?, commission_type = ?, percent_value = ?,
			fixed_value = ?, fixed_currency = ?, min_amount = ?, max_amount = ?, description = ?,
			advice = ?, priority = ?
		WHERE id = ?
	`

	result, err := r.db.exec(ctx, query,
		rule.BankName,
		nameKey(rule.BankName),
		rule.Category,
		string(rule.CommissionType),
		rule.PercentValue.String(),
		rule.FixedValue.String(),
		rule.FixedCurrency,
		nullableDecimal(rule.MinAmount),
		nullableDecimal(rule.MaxAmount),
		rule.Description,
		rule.Advice,
		rule.Priority,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update commission rule: %w", err)
	}

	return requireAffected(result, fmt.Errorf("commission rule %d: %w", rule.ID, domain.ErrRuleNotFound))
}

// Delete removes a commission rule
func (r *commissionRuleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.exec(ctx, `DELETE FROM bank_commissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete commission rule: %w", err)
	}

	return requireAffected(result, fmt.Errorf("commission rule %d: %w", id, domain.ErrRuleNotFound))
}

// ListByBank returns every rule for bank ordered by id, or all rules when bank is empty
func (r *commissionRuleRepository) ListByBank(ctx context.Context, bank string) ([]*domain.BankCommission, error) {
	query := `SELECT ` + ruleColumns + ` FROM bank_commissions`
	var args []any
	if strings.TrimSpace(bank) != "" {
		query += ` WHERE bank_key = ?`
		args = append(args, nameKey(bank))
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commission rules: %w", err)
	}
	defer rows.Close()

	rules := make([]*domain.BankCommission, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commission rules: %w", err)
	}

	return rules, nil
}

func scanRule(row rowScanner) (*domain.BankCommission, error) {
	var rule domain.BankCommission
	var commissionType, percentStr, fixedStr string
	var minAmount, maxAmount sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.BankName,
		&rule.Category,
		&commissionType,
		&percentStr,
		&fixedStr,
		&rule.FixedCurrency,
		&minAmount,
		&maxAmount,
		&rule.Description,
		&rule.Advice,
		&rule.Priority,
	)
	if err != nil {
		return nil, err
	}

	// Unknown types are kept as stored; the engine treats them as zero commission.
	rule.CommissionType = domain.CommissionType(commissionType)

	if rule.PercentValue, err = decimal.NewFromString(percentStr); err != nil {
		return nil, fmt.Errorf("failed to parse percent_value: %w", err)
	}
	if rule.FixedValue, err = decimal.NewFromString(fixedStr); err != nil {
		return nil, fmt.Errorf("failed to parse fixed_value: %w", err)
	}
	if rule.MinAmount, err = parseNullDecimal(minAmount); err != nil {
		return nil, fmt.Errorf("failed to parse min_amount: %w", err)
	}
	if rule.MaxAmount, err = parseNullDecimal(maxAmount); err != nil {
		return nil, fmt.Errorf("failed to parse max_amount: %w", err)
	}

	return &rule, nil
}

func parseNullDecimal(v sql.NullString) (*decimal.Decimal, error) {
	if !v.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(v.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// nameKey is the normalized form used for case-insensitive name lookups
func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
