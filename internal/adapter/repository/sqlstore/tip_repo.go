package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/simaogato/fundledger/internal/domain"
)

// commissionTipRepository implements domain.CommissionTipRepository
type commissionTipRepository struct {
	db *DB
}

// NewCommissionTipRepository creates a new commission tip repository
func NewCommissionTipRepository(db *DB) domain.CommissionTipRepository {
	return &commissionTipRepository{db: db}
}

// Create creates a new commission tip
func (r *commissionTipRepository) Create(ctx context.Context, tip *domain.CommissionTip) error {
	query := `
		INSERT INTO commission_tips (title, content, category, category_key, bank_name, bank_key, priority)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.queryRow(ctx, query,
		tip.Title,
		tip.Content,
		nullableString(tip.Category),
		nullableKey(tip.Category),
		nullableString(tip.BankName),
		nullableKey(tip.BankName),
		tip.Priority,
	).Scan(&tip.ID)
	if err != nil {
		return fmt.Errorf("failed to create commission tip: %w", err)
	}

	return nil
}

// GetByID retrieves a commission tip by its ID
func (r *commissionTipRepository) GetByID(ctx context.Context, id int64) (*domain.CommissionTip, error) {
	query := `SELECT id, title, content, category, bank_name, priority FROM commission_tips WHERE id = ?`

	tip, err := scanTip(r.db.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("commission tip %d: %w", id, domain.ErrRuleNotFound)
		}
		return nil, fmt.Errorf("failed to get commission tip by ID: %w", err)
	}
	return tip, nil
}

// Update overwrites a commission tip
func (r *commissionTipRepository) Update(ctx context.Context, tip *domain.CommissionTip) error {
	query := `
		UPDATE commission_tips
		SET title = ?, content = ?, category = ?, category_key = ?, bank_name = ?, bank_key = ?, priority = ?
		WHERE id = ?
	`

	result, err := r.db.exec(ctx, query,
		tip.Title,
		tip.Content,
		nullableString(tip.Category),
		nullableKey(tip.Category),
		nullableString(tip.BankName),
		nullableKey(tip.BankName),
		tip.Priority,
		tip.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update commission tip: %w", err)
	}

	return requireAffected(result, fmt.Errorf("commission tip %d: %w", tip.ID, domain.ErrRuleNotFound))
}

// Delete removes a commission tip
func (r *commissionTipRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.exec(ctx, `DELETE FROM commission_tips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete commission tip: %w", err)
	}

	return requireAffected(result, fmt.Errorf("commission tip %d: %w", id, domain.ErrRuleNotFound))
}

// List returns tips scoped to the filter values (or agnostic of them) in insertion order
func (r *commissionTipRepository) List(ctx context.Context, filter domain.TipFilter) ([]*domain.CommissionTip, error) {
	var clauses []string
	var args []any

	if strings.TrimSpace(filter.BankName) != "" {
		clauses = append(clauses, "(bank_key IS NULL OR bank_key = ?)")
		args = append(args, nameKey(filter.BankName))
	}
	if strings.TrimSpace(filter.Category) != "" {
		clauses = append(clauses, "(category_key IS NULL OR category_key = ?)")
		args = append(args, nameKey(filter.Category))
	}

	query := `SELECT id, title, content, category, bank_name, priority FROM commission_tips`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id ASC"

	return r.list(ctx, query, args...)
}

// ListByCategory returns tips whose category equals category
func (r *commissionTipRepository) ListByCategory(ctx context.Context, category string) ([]*domain.CommissionTip, error) {
	query := `
		SELECT id, title, content, category, bank_name, priority
		FROM commission_tips
		WHERE category_key = ?
		ORDER BY id ASC
	`
	return r.list(ctx, query, nameKey(category))
}

func (r *commissionTipRepository) list(ctx context.Context, query string, args ...any) ([]*domain.CommissionTip, error) {
	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commission tips: %w", err)
	}
	defer rows.Close()

	tips := make([]*domain.CommissionTip, 0)
	for rows.Next() {
		tip, err := scanTip(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commission tip: %w", err)
		}
		tips = append(tips, tip)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating commission tips: %w", err)
	}

	return tips, nil
}

func scanTip(row rowScanner) (*domain.CommissionTip, error) {
	var tip domain.CommissionTip
	var category, bankName sql.NullString

	if err := row.Scan(&tip.ID, &tip.Title, &tip.Content, &category, &bankName, &tip.Priority); err != nil {
		return nil, err
	}
	tip.Category = stringPtr(category)
	tip.BankName = stringPtr(bankName)

	return &tip, nil
}

func nullableKey(p *string) any {
	if p == nil {
		return nil
	}
	return nameKey(*p)
}
