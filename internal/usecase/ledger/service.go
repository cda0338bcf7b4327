package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/simaogato/fundledger/internal/domain"
)

const (
	// DefaultReportLimit caps list queries when the caller gives no limit
	DefaultReportLimit = 100
	// MaxReportLimit is the hard cap on rows returned by a list query
	MaxReportLimit = 200
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CreateRecordInput represents the input for creating a financial record
type CreateRecordInput struct {
	Type             domain.RecordType `validate:"required"`
	Category         string            `validate:"required,max=100"`
	Amount           decimal.Decimal
	Currency         string `validate:"required,len=3,alpha"`
	Source           string `validate:"max=100"`
	Description      string
	TransactionDate  *time.Time        // nil = now
	FundStatus       domain.FundStatus // empty = Working
	UserID           *int64
	ProjectID        *int64
	ContactID        *int64
	Commission       *decimal.Decimal
	CommissionPaidBy *string
	IsConfirmed      *bool // nil = true
	TransactionHash  *string
	ActorID          *int64 // recorded in the creation audit entry
}

// CommissionRecordInput represents the input for recording a bank commission charge
type CommissionRecordInput struct {
	Amount          decimal.Decimal
	Currency        string
	Bank            string
	Description     string
	PaidBy          *string
	TransactionDate *time.Time
	UserID          *int64
	ProjectID       *int64
	ContactID       *int64
	ActorID         *int64
}

// Service handles financial record operations
type Service struct {
	Records     domain.RecordRepository
	Directory   domain.EntityDirectory
	Tx          domain.Transactor
	Events      domain.EventPublisher
	Logger      zerolog.Logger
	ReportLimit int
}

// NewService creates a new ledger Service instance.
// reportLimit is the default row cap of list queries; it is clamped to MaxReportLimit.
func NewService(
	records domain.RecordRepository,
	directory domain.EntityDirectory,
	tx domain.Transactor,
	events domain.EventPublisher,
	logger zerolog.Logger,
	reportLimit int,
) *Service {
	if events == nil {
		events = domain.DiscardEvents{}
	}
	if reportLimit <= 0 {
		reportLimit = DefaultReportLimit
	}
	if reportLimit > MaxReportLimit {
		reportLimit = MaxReportLimit
	}
	return &Service{
		Records:     records,
		Directory:   directory,
		Tx:          tx,
		Events:      events,
		Logger:      logger.With().Str("component", "ledger").Logger(),
		ReportLimit: reportLimit,
	}
}

// CreateFinancialRecord validates references and stores a new record.
// Logic:
//  1. Normalize and validate the input
//  2. Inside one transaction, check every set user/contact/project reference and insert the record
//     together with its "created" audit entry
//  3. Publish record.created after commit
//
// A dangling reference returns (nil, *domain.ReferenceError); store failures return a *domain.StoreError.
func (s *Service) CreateFinancialRecord(ctx context.Context, input CreateRecordInput) (*domain.FinancialRecord, error) {
	record, err := s.buildRecord(input)
	if err != nil {
		return nil, err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, record); err != nil {
			return err
		}
		return s.Records.Create(ctx, record)
	})
	if err != nil {
		var refErr *domain.ReferenceError
		if errors.As(err, &refErr) {
			s.Logger.Warn().Str("entity", refErr.Entity).Int64("entity_id", refErr.ID).Msg("record not created: dangling reference")
			return nil, err
		}
		s.Logger.Error().Err(err).Str("op", "create").Msg("failed to create financial record")
		return nil, domain.NewStoreError("create", 0, err)
	}

	s.publish(ctx, domain.EventRecordCreated, record.ID, map[string]string{
		"type":        string(record.Type),
		"amount":      record.Amount.String(),
		"currency":    record.Currency,
		"fund_status": string(record.FundStatus),
	})

	return record, nil
}

// CreateCommissionRecord stores a commission charge under the commission category
func (s *Service) CreateCommissionRecord(ctx context.Context, input CommissionRecordInput) (*domain.FinancialRecord, error) {
	amount := input.Amount
	return s.CreateFinancialRecord(ctx, CreateRecordInput{
		Type:             domain.RecordTypeCommission,
		Category:         domain.CommissionCategory,
		Amount:           amount,
		Currency:         input.Currency,
		Source:           input.Bank,
		Description:      input.Description,
		TransactionDate:  input.TransactionDate,
		UserID:           input.UserID,
		ProjectID:        input.ProjectID,
		ContactID:        input.ContactID,
		Commission:       &amount,
		CommissionPaidBy: input.PaidBy,
		ActorID:          input.ActorID,
	})
}

// GetRecord returns a record with its audit trail
func (s *Service) GetRecord(ctx context.Context, id int64) (*domain.FinancialRecord, error) {
	record, err := s.Records.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewStoreError("get", id, err)
	}
	return record, nil
}

// GetRecordsByType lists records of one type, newest first
func (s *Service) GetRecordsByType(ctx context.Context, recordType domain.RecordType, limit int) ([]*domain.FinancialRecord, error) {
	return s.list(ctx, domain.RecordFilter{Type: &recordType}, limit)
}

// GetRecordsByCategory lists records whose trimmed category matches case-insensitively
func (s *Service) GetRecordsByCategory(ctx context.Context, category string, limit int) ([]*domain.FinancialRecord, error) {
	return s.list(ctx, domain.RecordFilter{Category: category}, limit)
}

// GetRecordsByDateRange lists records dated within [from, to]; either bound may be nil
func (s *Service) GetRecordsByDateRange(ctx context.Context, from, to *time.Time, limit int) ([]*domain.FinancialRecord, error) {
	return s.list(ctx, domain.RecordFilter{From: from, To: to}, limit)
}

// GetRecordsByContact lists records referencing a contact
func (s *Service) GetRecordsByContact(ctx context.Context, contactID int64, limit int) ([]*domain.FinancialRecord, error) {
	return s.list(ctx, domain.RecordFilter{ContactID: &contactID}, limit)
}

// GetRecordsByProject lists records referencing a project
func (s *Service) GetRecordsByProject(ctx context.Context, projectID int64, limit int) ([]*domain.FinancialRecord, error) {
	return s.list(ctx, domain.RecordFilter{ProjectID: &projectID}, limit)
}

// GetRecordsByUser lists records referencing a user
func (s *Service) GetRecordsByUser(ctx context.Context, userID int64, limit int) ([]*domain.FinancialRecord, error) {
	return s.list(ctx, domain.RecordFilter{UserID: &userID}, limit)
}

// UpdateRecord overwrites the mutable fields of a stored record.
// The record type and creation time are never written. When record.Version is set the write is
// conditional on it and fails with domain.ErrConflict if another writer got there first.
func (s *Service) UpdateRecord(ctx context.Context, record *domain.FinancialRecord, actorID *int64) error {
	log := s.Logger.With().Int64("record_id", record.ID).Str("op", "update").Logger()

	record.Normalize()
	if err := record.Validate(); err != nil {
		log.Warn().Err(err).Msg("record update rejected")
		return err
	}

	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		current, err := s.Records.GetByID(ctx, record.ID)
		if err != nil {
			return err
		}

		record.Type = current.Type
		record.CreatedAt = current.CreatedAt
		if record.Version == 0 {
			record.Version = current.Version
		}

		if err := s.Records.Update(ctx, record); err != nil {
			return err
		}

		return s.Records.AppendAudit(ctx, &domain.AuditEntry{
			RecordID:  record.ID,
			Timestamp: time.Now().UTC(),
			Actor:     domain.ActorName(actorID),
			Field:     domain.AuditFieldUpdated,
			NewValue:  fmt.Sprintf("%s %s", record.Amount.String(), record.Currency),
		})
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to update financial record")
		return domain.NewStoreError("update", record.ID, err)
	}

	s.publish(ctx, domain.EventRecordUpdated, record.ID, map[string]string{
		"actor":   domain.ActorName(actorID),
		"version": fmt.Sprint(record.Version),
	})

	return nil
}

// DeleteRecord hard-deletes a record together with its audit trail
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.Records.Delete(ctx, id)
	})
	if err != nil {
		s.Logger.Error().Err(err).Int64("record_id", id).Str("op", "delete").Msg("failed to delete financial record")
		return domain.NewStoreError("delete", id, err)
	}

	s.publish(ctx, domain.EventRecordDeleted, id, nil)
	return nil
}

// RecordExists reports whether a record with id is stored
func (s *Service) RecordExists(ctx context.Context, id int64) (bool, error) {
	_, err := s.Records.GetByID(ctx, id)
	if errors.Is(err, domain.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, domain.NewStoreError("exists", id, err)
	}
	return true, nil
}

// RecordsCount counts the records matching filter, ignoring its limit
func (s *Service) RecordsCount(ctx context.Context, filter domain.RecordFilter) (int64, error) {
	count, err := s.Records.Count(ctx, filter)
	if err != nil {
		return 0, domain.NewStoreError("count", 0, err)
	}
	return count, nil
}

func (s *Service) list(ctx context.Context, filter domain.RecordFilter, limit int) ([]*domain.FinancialRecord, error) {
	filter.Limit = s.capLimit(limit)
	records, err := s.Records.Query(ctx, filter)
	if err != nil {
		return nil, domain.NewStoreError("query", 0, err)
	}
	return records, nil
}

// capLimit applies the default limit to non-positive values and the hard cap to large ones
func (s *Service) capLimit(limit int) int {
	if limit <= 0 {
		return s.ReportLimit
	}
	if limit > MaxReportLimit {
		return MaxReportLimit
	}
	return limit
}

func (s *Service) buildRecord(input CreateRecordInput) (*domain.FinancialRecord, error) {
	input.Category = strings.TrimSpace(input.Category)
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	input.Source = strings.TrimSpace(input.Source)

	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidRecord, err)
	}

	now := time.Now().UTC()
	record := &domain.FinancialRecord{
		Type:             input.Type,
		Category:         input.Category,
		Amount:           input.Amount,
		Currency:         input.Currency,
		Source:           input.Source,
		Description:      input.Description,
		TransactionDate:  now,
		CreatedAt:        now,
		FundStatus:       input.FundStatus,
		UserID:           input.UserID,
		ProjectID:        input.ProjectID,
		ContactID:        input.ContactID,
		Commission:       input.Commission,
		CommissionPaidBy: input.CommissionPaidBy,
		IsConfirmed:      true,
		TransactionHash:  input.TransactionHash,
	}
	if input.TransactionDate != nil {
		record.TransactionDate = input.TransactionDate.UTC()
	}
	if record.FundStatus == "" {
		record.FundStatus = domain.FundStatusWorking
	}
	if input.IsConfirmed != nil {
		record.IsConfirmed = *input.IsConfirmed
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	actor := input.ActorID
	if actor == nil {
		actor = input.UserID
	}
	record.Audit = []domain.AuditEntry{{
		Timestamp: now,
		Actor:     domain.ActorName(actor),
		Field:     domain.AuditFieldCreated,
		NewValue:  string(record.FundStatus),
	}}

	return record, nil
}

// checkReferences resolves every optional reference inside the creating transaction
func (s *Service) checkReferences(ctx context.Context, record *domain.FinancialRecord) error {
	checks := []struct {
		entity string
		id     *int64
		exists func(context.Context, int64) (bool, error)
	}{
		{"user", record.UserID, s.Directory.UserExists},
		{"contact", record.ContactID, s.Directory.ContactExists},
		{"project", record.ProjectID, s.Directory.ProjectExists},
	}

	for _, c := range checks {
		if c.id == nil {
			continue
		}
		ok, err := c.exists(ctx, *c.id)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.ReferenceError{Entity: c.entity, ID: *c.id}
		}
	}
	return nil
}

// publish emits an event after commit; delivery failures never fail the operation
func (s *Service) publish(ctx context.Context, kind domain.EventKind, recordID int64, attrs map[string]string) {
	if err := s.Events.Publish(ctx, domain.NewEvent(kind, recordID, attrs)); err != nil {
		s.Logger.Warn().Err(err).Str("event", string(kind)).Int64("record_id", recordID).Msg("failed to publish ledger event")
	}
}
