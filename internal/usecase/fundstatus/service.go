package fundstatus

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/simaogato/fundledger/internal/domain"
)

// Service moves records between fund statuses.
//
// TransferStatus is the audited path used for user-facing transfers. SetFundStatus is the
// corrective path for background jobs: it writes the status only, without reason, audit entry
// or version check. Keep the two apart.
type Service struct {
	Records domain.RecordRepository
	Tx      domain.Transactor
	Events  domain.EventPublisher
	Logger  zerolog.Logger
	Now     func() time.Time
}

// NewService creates a new fund status Service instance
func NewService(
	records domain.RecordRepository,
	tx domain.Transactor,
	events domain.EventPublisher,
	logger zerolog.Logger,
) *Service {
	if events == nil {
		events = domain.DiscardEvents{}
	}
	return &Service{
		Records: records,
		Tx:      tx,
		Events:  events,
		Logger:  logger.With().Str("component", "fundstatus").Logger(),
		Now:     time.Now,
	}
}

// TransferStatus moves a record to newStatus and appends one audit entry describing the move.
// Logic:
//  1. Open a transaction and load the record (missing -> domain.ErrRecordNotFound)
//  2. Capture the old status and write the new one, even when they are equal. The write is
//     conditional on the version just read, so a concurrent transfer fails with domain.ErrConflict
//  3. Append "{old}->{new}: {reason} (by user: {actor})" to the audit trail
//  4. Commit; any failure rolls back both the status and the audit entry
func (s *Service) TransferStatus(ctx context.Context, recordID int64, newStatus domain.FundStatus, reason string, actorID *int64) (*domain.AuditEntry, error) {
	log := s.Logger.With().Int64("record_id", recordID).Str("op", "transfer_status").Logger()

	if !newStatus.Valid() {
		log.Warn().Str("status", string(newStatus)).Msg("status transfer rejected")
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, string(newStatus))
	}

	var entry *domain.AuditEntry
	err := s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		record, err := s.Records.GetByID(ctx, recordID)
		if err != nil {
			return err
		}

		oldStatus := record.FundStatus
		expected := record.Version
		if _, err := s.Records.UpdateFundStatus(ctx, recordID, newStatus, &expected); err != nil {
			return err
		}

		entry = &domain.AuditEntry{
			RecordID:  recordID,
			Timestamp: s.Now().UTC(),
			Actor:     domain.ActorName(actorID),
			Field:     domain.AuditFieldFundStatus,
			OldValue:  string(oldStatus),
			NewValue:  string(newStatus),
			Reason:    reason,
		}
		return s.Records.AppendAudit(ctx, entry)
	})
	if err != nil {
		log.Error().Err(err).Str("status", string(newStatus)).Msg("failed to transfer fund status")
		return nil, domain.NewStoreError("transfer_status", recordID, err)
	}

	log.Info().Str("from", entry.OldValue).Str("to", entry.NewValue).Msg("fund status transferred")
	s.publish(ctx, domain.EventRecordStatusTransferred, recordID, map[string]string{
		"from":   entry.OldValue,
		"to":     entry.NewValue,
		"reason": reason,
		"actor":  entry.Actor,
	})

	return entry, nil
}

// SetFundStatus overwrites the status of a record without audit
func (s *Service) SetFundStatus(ctx context.Context, recordID int64, newStatus domain.FundStatus) error {
	log := s.Logger.With().Int64("record_id", recordID).Str("op", "set_status").Logger()

	if !newStatus.Valid() {
		log.Warn().Str("status", string(newStatus)).Msg("status write rejected")
		return fmt.Errorf("%w: %q", domain.ErrInvalidStatus, string(newStatus))
	}

	if _, err := s.Records.UpdateFundStatus(ctx, recordID, newStatus, nil); err != nil {
		log.Error().Err(err).Str("status", string(newStatus)).Msg("failed to set fund status")
		return domain.NewStoreError("set_status", recordID, err)
	}

	s.publish(ctx, domain.EventRecordStatusSet, recordID, map[string]string{"to": string(newStatus)})
	return nil
}

// Transitions returns the fund status entries of a record's audit trail, oldest first
func (s *Service) Transitions(ctx context.Context, recordID int64) ([]domain.AuditEntry, error) {
	record, err := s.Records.GetByID(ctx, recordID)
	if err != nil {
		return nil, domain.NewStoreError("transitions", recordID, err)
	}

	transitions := make([]domain.AuditEntry, 0, len(record.Audit))
	for _, entry := range record.Audit {
		if entry.Field == domain.AuditFieldFundStatus {
			transitions = append(transitions, entry)
		}
	}
	return transitions, nil
}

func (s *Service) publish(ctx context.Context, kind domain.EventKind, recordID int64, attrs map[string]string) {
	if err := s.Events.Publish(ctx, domain.NewEvent(kind, recordID, attrs)); err != nil {
		s.Logger.Warn().Err(err).Str("event", string(kind)).Int64("record_id", recordID).Msg("failed to publish ledger event")
	}
}
