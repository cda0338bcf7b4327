package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
)

const recordColumns = `id, type, category, amount, currency, source, description, transaction_date,
	created_at, fund_status, user_id, project_id, contact_id, commission, commission_paid_by,
	is_confirmed, transaction_hash, version`

// recordRepository implements domain.RecordRepository
type recordRepository struct {
	db *DB
}

// NewRecordRepository creates a new financial record repository
func NewRecordRepository(db *DB) domain.RecordRepository {
	return &recordRepository{db: db}
}

// Create inserts the record and the audit entries already attached to it
func (r *recordRepository) Create(ctx context.Context, record *domain.FinancialRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.TransactionDate.IsZero() {
		record.TransactionDate = record.CreatedAt
	}

	query := `
		INSERT INTO financial_records (type, category, category_key, amount, currency, source, description,
			transaction_date, created_at, fund_status, user_id, project_id, contact_id, commission,
			commission_paid_by, is_confirmed, transaction_hash, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		RETURNING id
	`

	err := r.db.queryRow(ctx, query,
		string(record.Type),
		record.Category,
		domain.CategoryKey(record.Category),
		record.Amount.String(),
		record.Currency,
		record.Source,
		record.Description,
		r.db.timeArg(record.TransactionDate),
		r.db.timeArg(record.CreatedAt),
		string(record.FundStatus),
		nullableInt(record.UserID),
		nullableInt(record.ProjectID),
		nullableInt(record.ContactID),
		nullableDecimal(record.Commission),
		nullableString(record.CommissionPaidBy),
		record.IsConfirmed,
		nullableString(record.TransactionHash),
	).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert financial record: %w", err)
	}
	record.Version = 1

	for i := range record.Audit {
		record.Audit[i].RecordID = record.ID
		if err := r.AppendAudit(ctx, &record.Audit[i]); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a record and its audit trail
func (r *recordRepository) GetByID(ctx context.Context, id int64) (*domain.FinancialRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM financial_records WHERE id = ?`

	record, err := scanRecord(r.db.queryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("financial record %d: %w", id, domain.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to get financial record by ID: %w", err)
	}

	audit, err := r.listAudit(ctx, id)
	if err != nil {
		return nil, err
	}
	record.Audit = audit

	return record, nil
}

// Query lists records matching filter, newest transaction date first
func (r *recordRepository) Query(ctx context.Context, filter domain.RecordFilter) ([]*domain.FinancialRecord, error) {
	where, args := r.buildWhere(filter)
	query := `SELECT ` + recordColumns + ` FROM financial_records` + where +
		` ORDER BY transaction_date DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query financial records: %w", err)
	}
	defer rows.Close()

	records := make([]*domain.FinancialRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan financial record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating financial records: %w", err)
	}

	return records, nil
}

// Count returns the number of records matching filter
func (r *recordRepository) Count(ctx context.Context, filter domain.RecordFilter) (int64, error) {
	where, args := r.buildWhere(filter)

	var count int64
	if err := r.db.queryRow(ctx, `SELECT COUNT(*) FROM financial_records`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count financial records: %w", err)
	}

	return count, nil
}

// Update overwrites every mutable field when the stored version matches record.Version.
// Type and CreatedAt are never written.
func (r *recordRepository) Update(ctx context.Context, record *domain.FinancialRecord) error {
	query := `
		UPDATE financial_records
		SET category = ?, category_key = ?, amount = ?, currency = ?, source = ?, description = ?,
			transaction_date = ?, fund_status = ?, user_id = ?, project_id = ?, contact_id = ?,
			commission = ?, commission_paid_by = ?, is_confirmed = ?, transaction_hash = ?,
			version = version + 1
		WHERE id = ? AND version = ?
	`

	result, err := r.db.exec(ctx, query,
		record.Category,
		domain.CategoryKey(record.Category),
		record.Amount.String(),
		record.Currency,
		record.Source,
		record.Description,
		r.db.timeArg(record.TransactionDate),
		string(record.FundStatus),
		nullableInt(record.UserID),
		nullableInt(record.ProjectID),
		nullableInt(record.ContactID),
		nullableDecimal(record.Commission),
		nullableString(record.CommissionPaidBy),
		record.IsConfirmed,
		nullableString(record.TransactionHash),
		record.ID,
		record.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update financial record: %w", err)
	}

	if err := r.checkAffected(ctx, result, record.ID); err != nil {
		return err
	}
	record.Version++

	return nil
}

// UpdateFundStatus writes only the fund status, optionally conditional on a version
func (r *recordRepository) UpdateFundStatus(ctx context.Context, id int64, status domain.FundStatus, expectedVersion *int64) (int64, error) {
	query := `UPDATE financial_records SET fund_status = ?, version = version + 1 WHERE id = ?`
	args := []any{string(status), id}
	if expectedVersion != nil {
		query += ` AND version = ?`
		args = append(args, *expectedVersion)
	}
	query += ` RETURNING version`

	var version int64
	err := r.db.queryRow(ctx, query, args...).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, r.missOrConflict(ctx, id)
		}
		return 0, fmt.Errorf("failed to update fund status: %w", err)
	}

	return version, nil
}

// Delete removes the record and its audit trail
func (r *recordRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.exec(ctx, `DELETE FROM financial_record_audit WHERE record_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete audit trail: %w", err)
	}

	result, err := r.db.exec(ctx, `DELETE FROM financial_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete financial record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("financial record %d: %w", id, domain.ErrRecordNotFound)
	}

	return nil
}

// AppendAudit adds one entry to a record's audit trail
func (r *recordRepository) AppendAudit(ctx context.Context, entry *domain.AuditEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO financial_record_audit (record_id, at, actor, field, old_value, new_value, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.queryRow(ctx, query,
		entry.RecordID,
		r.db.timeArg(entry.Timestamp),
		entry.Actor,
		entry.Field,
		entry.OldValue,
		entry.NewValue,
		entry.Reason,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// Categories returns every distinct stored category spelling
func (r *recordRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.db.query(ctx, `SELECT DISTINCT category FROM financial_records ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *recordRepository) listAudit(ctx context.Context, recordID int64) ([]domain.AuditEntry, error) {
	query := `
		SELECT id, record_id, at, actor, field, old_value, new_value, reason
		FROM financial_record_audit
		WHERE record_id = ?
		ORDER BY id ASC
	`

	rows, err := r.db.query(ctx, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit trail: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var entry domain.AuditEntry
		var at dbTime
		if err := rows.Scan(&entry.ID, &entry.RecordID, &at, &entry.Actor, &entry.Field,
			&entry.OldValue, &entry.NewValue, &entry.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Timestamp = at.Time
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit trail: %w", err)
	}

	return entries, nil
}

func (r *recordRepository) buildWhere(filter domain.RecordFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.Type != nil {
		clauses = append(clauses, "type = ?")
		args = append(args, string(*filter.Type))
	}
	if strings.TrimSpace(filter.Category) != "" {
		clauses = append(clauses, "category_key = ?")
		args = append(args, domain.CategoryKey(filter.Category))
	}
	if filter.From != nil {
		clauses = append(clauses, "transaction_date >= ?")
		args = append(args, r.db.timeArg(*filter.From))
	}
	if filter.To != nil {
		clauses = append(clauses, "transaction_date <= ?")
		args = append(args, r.db.timeArg(*filter.To))
	}
	if filter.ContactID != nil {
		clauses = append(clauses, "contact_id = ?")
		args = append(args, *filter.ContactID)
	}
	if filter.ProjectID != nil {
		clauses = append(clauses, "project_id = ?")
		args = append(args, *filter.ProjectID)
	}
	if filter.UserID != nil {
		clauses = append(clauses, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Currency != "" {
		clauses = append(clauses, "currency = ?")
		args = append(args, strings.ToUpper(strings.TrimSpace(filter.Currency)))
	}
	if filter.FundStatus != nil {
		clauses = append(clauses, "fund_status = ?")
		args = append(args, string(*filter.FundStatus))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// checkAffected turns a zero-row conditional write into ErrRecordNotFound or ErrConflict
func (r *recordRepository) checkAffected(ctx context.Context, result sql.Result, id int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return r.missOrConflict(ctx, id)
	}
	return nil
}

func (r *recordRepository) missOrConflict(ctx context.Context, id int64) error {
	var exists int
	err := r.db.queryRow(ctx, `SELECT 1 FROM financial_records WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("financial record %d: %w", id, domain.ErrRecordNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check financial record: %w", err)
	}
	return fmt.Errorf("financial record %d: %w", id, domain.ErrConflict)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.FinancialRecord, error) {
	var record domain.FinancialRecord
	var recordType, fundStatus, amountStr string
	var transactionDate, createdAt dbTime
	var userID, projectID, contactID sql.NullInt64
	var commission, commissionPaidBy, transactionHash sql.NullString

	err := row.Scan(
		&record.ID,
		&recordType,
		&record.Category,
		&amountStr,
		&record.Currency,
		&record.Source,
		&record.Description,
		&transactionDate,
		&createdAt,
		&fundStatus,
		&userID,
		&projectID,
		&contactID,
		&commission,
		&commissionPaidBy,
		&record.IsConfirmed,
		&transactionHash,
		&record.Version,
	)
	if err != nil {
		return nil, err
	}

	record.Type, err = domain.ParseRecordType(recordType)
	if err != nil {
		return nil, err
	}
	record.FundStatus, err = domain.ParseFundStatus(fundStatus)
	if err != nil {
		return nil, err
	}

	// Parse amount (DECIMAL)
	record.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount: %w", err)
	}

	if commission.Valid {
		value, err := decimal.NewFromString(commission.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse commission: %w", err)
		}
		record.Commission = &value
	}

	record.TransactionDate = transactionDate.Time
	record.CreatedAt = createdAt.Time
	record.UserID = int64Ptr(userID)
	record.ProjectID = int64Ptr(projectID)
	record.ContactID = int64Ptr(contactID)
	record.CommissionPaidBy = stringPtr(commissionPaidBy)
	record.TransactionHash = stringPtr(transactionHash)

	return &record, nil
}

func nullableDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
